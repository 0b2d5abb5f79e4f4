package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEntry describes one file placed into a test tarball.
type testEntry struct {
	name     string
	body     string
	typeflag byte
}

// writeTarball builds a gzip-compressed tarball with entries in the given order.
func writeTarball(t *testing.T, entries ...testEntry) string {
	t.Helper()

	var buffer bytes.Buffer

	gz := gzip.NewWriter(&buffer)
	tw := tar.NewWriter(gz)

	for _, entry := range entries {
		typeflag := entry.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}

		header := &tar.Header{
			Name:     entry.name,
			Mode:     0o755,
			Size:     int64(len(entry.body)),
			Typeflag: typeflag,
		}
		if typeflag == tar.TypeDir {
			header.Size = 0
		}

		require.NoError(t, tw.WriteHeader(header))

		if typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "update.tar.gz")
	require.NoError(t, os.WriteFile(path, buffer.Bytes(), 0o600))

	return path
}
