package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/uadng/internal/config"
	"github.com/oshokin/uadng/internal/domain/update"
)

var errNoExecutable = errors.New("no executable")

// registry is a fake release registry serving one release and its archive.
type registry struct {
	tag       string
	assets    []map[string]string
	archive   []byte
	downloads atomic.Int32
	server    *httptest.Server
}

func newRegistry(t *testing.T, tag string, archive []byte) *registry {
	t.Helper()

	r := &registry{
		tag:     tag,
		archive: archive,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": r.tag,
			"assets":   r.assets,
		})
	})
	mux.HandleFunc("/download/uadng.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		r.downloads.Add(1)
		_, _ = w.Write(r.archive)
	})

	r.server = httptest.NewServer(mux)
	t.Cleanup(r.server.Close)

	r.assets = []map[string]string{
		{"name": "uadng.tar.gz", "browser_download_url": r.server.URL + "/download/uadng.tar.gz"},
	}

	return r
}

func (r *registry) options(t *testing.T, currentVersion string) *Options {
	t.Helper()

	cfg := config.Default()
	cfg.Owner = "owner"
	cfg.Repo = "repo"
	cfg.APIURL = r.server.URL
	cfg.Backoff = []time.Duration{0}
	cfg.Progress = false

	return &Options{
		Config:         cfg,
		CurrentVersion: currentVersion,
		TargetDir:      t.TempDir(),
		TempDir:        t.TempDir(),
	}
}

// tarball builds a gzip-compressed tar archive from name/body pairs in order.
func tarball(t *testing.T, pairs ...string) []byte {
	t.Helper()

	var buffer bytes.Buffer

	gz := gzip.NewWriter(&buffer)
	tw := tar.NewWriter(gz)

	for i := 0; i+1 < len(pairs); i += 2 {
		body := []byte(pairs[i+1])
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     pairs[i],
			Mode:     0o755,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))

		_, err := tw.Write(body)
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buffer.Bytes()
}

// TestRun_UpToDate ensures an equal version stops before any download.
func TestRun_UpToDate(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "v1.0.0", tarball(t, "uadng", "binary"))
	opts := reg.options(t, "1.0.0")

	outcome, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, update.UpToDate, outcome)
	require.Zero(t, reg.downloads.Load())
}

// TestRun_InstallsNewerRelease runs the full pipeline and checks the installed binary.
func TestRun_InstallsNewerRelease(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "v1.2.0", tarball(t,
		"readme.txt", "read me",
		"uadng-linux-x64", "new binary",
		"license.md", "license",
	))
	opts := reg.options(t, "1.1.0")

	outcome, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, update.Updated, outcome)
	require.True(t, outcome.ShouldRestart())
	require.Equal(t, int32(1), reg.downloads.Load())

	contents, err := os.ReadFile(filepath.Join(opts.TargetDir, "uadng-linux-x64"))
	require.NoError(t, err)
	require.Equal(t, "new binary", string(contents))

	// The temporary archive is removed after a successful install.
	_, err = os.Stat(filepath.Join(opts.TempDir, config.DefaultArchiveName))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_MissingAssets ensures a release without assets fails before downloading.
func TestRun_MissingAssets(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "v2.0.0", tarball(t, "uadng", "binary"))
	reg.assets = nil
	opts := reg.options(t, "1.0.0")

	outcome, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, update.ErrInvalidBinary)
	require.Equal(t, update.Failed, outcome)
	require.Zero(t, reg.downloads.Load())
}

// TestRun_ArchiveWithoutBinary keeps the downloaded archive and reports ErrInvalidBinary.
func TestRun_ArchiveWithoutBinary(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "v2.0.0", tarball(t, "readme.txt", "read me"))
	opts := reg.options(t, "1.0.0")

	outcome, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, update.ErrInvalidBinary)
	require.Equal(t, update.Failed, outcome)
	require.Equal(t, int32(1), reg.downloads.Load())

	_, err = os.Stat(filepath.Join(opts.TempDir, config.DefaultArchiveName))
	require.NoError(t, err)
}

// TestRun_SemverMode checks that the opt-in semantic comparison is honored.
func TestRun_SemverMode(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "v9.0.0", tarball(t, "uadng", "binary"))
	opts := reg.options(t, "10.0.0")

	// Lexically "9.0.0" > "10.0.0", so only semver mode holds the update back.
	opts.Config.VersionCompare = config.CompareSemver

	outcome, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, update.UpToDate, outcome)
	require.Zero(t, reg.downloads.Load())
}

// TestRun_InvalidConfig reports validation errors as Failed.
func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	outcome, err := Run(context.Background(), &Options{
		Config:    &config.Config{},
		TargetDir: t.TempDir(),
	})
	require.Error(t, err)
	require.Equal(t, update.Failed, outcome)
}

// TestExecutableDir uses the seams to check symlink resolution and error paths.
//
//nolint:paralleltest // Mutates package-level seams.
func TestExecutableDir(t *testing.T) {
	prevExecutable, prevEval := osExecutable, evalSymlinks

	t.Cleanup(func() {
		osExecutable, evalSymlinks = prevExecutable, prevEval
	})

	osExecutable = func() (string, error) { return "/opt/link/uadng", nil }
	evalSymlinks = func(string) (string, error) { return "/opt/real/uadng", nil }

	dir, err := executableDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Dir("/opt/real/uadng"), dir)

	osExecutable = func() (string, error) { return "", errNoExecutable }

	_, err = executableDir()
	require.ErrorIs(t, err, errNoExecutable)
}
