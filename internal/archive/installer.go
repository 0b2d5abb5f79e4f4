package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/uadng/internal/domain/update"
	"github.com/oshokin/uadng/internal/logger"
)

const (
	// DefaultFileMode is applied to the installed binary.
	DefaultFileMode os.FileMode = 0o755

	// maxBinaryBytes caps the extracted binary size (500 MB) against decompression bombs.
	maxBinaryBytes = 500 << 20
)

// errBinaryTooLarge is logged when the matched entry exceeds the size cap.
var errBinaryTooLarge = errors.New("binary exceeds size limit")

// Matcher reports whether an archive entry file name is the application binary.
type Matcher func(name string) bool

// ContainsAny matches names containing at least one of patterns.
func ContainsAny(patterns ...string) Matcher {
	return func(name string) bool {
		for _, pattern := range patterns {
			if pattern != "" && strings.Contains(name, pattern) {
				return true
			}
		}

		return false
	}
}

// Install scans the gzip-compressed tarball at archivePath in stream order and
// writes the first regular entry whose file name satisfies match to
// targetDir/<file name>, returning that path. Scanning stops at the first
// match; later entries are never read.
//
// A stream without a match fails with update.ErrInvalidBinary. Every I/O or
// decompression failure, and a matched entry above 500 MB, is reported as
// update.ErrExtraction.
func Install(ctx context.Context, archivePath, targetDir string, match Matcher) (string, error) {
	return install(ctx, archivePath, targetDir, match, maxBinaryBytes)
}

// install is Install with an explicit size cap for the matched entry.
func install(ctx context.Context, archivePath, targetDir string, match Matcher, limit int64) (string, error) {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return "", extractionError(ctx, "open archive", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return "", extractionError(ctx, "open gzip stream", err)
	}

	defer func() {
		_ = decompressor.Close()
	}()

	reader := tar.NewReader(decompressor)

	for {
		header, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return "", extractionError(ctx, "read tar entry", nextErr)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := entryName(header.Name)
		if name == "" || !match(name) {
			continue
		}

		if header.Size > limit {
			return "", extractionError(ctx, "check size of "+name,
				fmt.Errorf("%w: %d bytes, limit %d", errBinaryTooLarge, header.Size, limit))
		}

		target := filepath.Join(targetDir, name)

		logger.InfoKV(ctx, "Installing binary from archive", "entry", header.Name, "target", target)

		if err = unpack(reader, target); err != nil {
			return "", extractionError(ctx, "unpack "+name, err)
		}

		return target, nil
	}

	return "", fmt.Errorf("%s: %w", archivePath, update.ErrInvalidBinary)
}

// entryName returns the final path segment of a tar entry name, or "" when there is none.
func entryName(entryPath string) string {
	name := path.Base(strings.ReplaceAll(entryPath, `\`, "/"))

	switch name {
	case ".", "..", "/":
		return ""
	default:
		return name
	}
}

// unpack atomically replaces target with the contents of payload.
func unpack(payload io.Reader, target string) error {
	// go-update renames the current target aside before moving the new file
	// in, so a first install needs a placeholder to rename.
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if createErr != nil {
			return createErr
		}

		if createErr = placeholder.Close(); createErr != nil {
			return createErr
		}
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
	}

	if err := goupdate.Apply(payload, options); err != nil {
		return err
	}

	oldFileName := target + ".old"
	if _, err := os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// extractionError logs the underlying cause and collapses it into update.ErrExtraction.
func extractionError(ctx context.Context, step string, cause error) error {
	logger.WarnKV(ctx, "Archive extraction failed", "step", step, "error", cause)

	return fmt.Errorf("%w: %s", update.ErrExtraction, step)
}
