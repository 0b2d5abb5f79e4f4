package updater

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/oshokin/uadng/internal/archive"
	"github.com/oshokin/uadng/internal/config"
	"github.com/oshokin/uadng/internal/release"
	"github.com/oshokin/uadng/internal/transport"
)

//nolint:gochecknoglobals // Test seams for the running executable lookup.
var (
	osExecutable = os.Executable
	evalSymlinks = filepath.EvalSymlinks
)

// executableDir returns the directory holding the running binary, symlinks resolved.
func executableDir() (string, error) {
	executable, err := osExecutable()
	if err != nil {
		return "", fmt.Errorf("determine executable path: %w", err)
	}

	resolved, err := evalSymlinks(executable)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks for %s: %w", executable, err)
	}

	return filepath.Dir(resolved), nil
}

// policyFromConfig builds the retry policy from settings.
func policyFromConfig(cfg *config.Config) transport.Policy {
	return transport.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delays:      cfg.Backoff,
	}
}

// newResolver builds the registry client from settings.
func newResolver(cfg *config.Config) *release.Client {
	return release.NewClient(cfg.Owner, cfg.Repo,
		release.WithBaseURL(cfg.APIURL),
		release.WithUserAgent(cfg.UserAgent),
		release.WithToken(cfg.Token),
		release.WithPolicy(policyFromConfig(cfg)),
		release.WithHTTPClient(newRegistryHTTPClient(cfg)),
	)
}

// newFetcher builds the asset downloader from settings.
func newFetcher(cfg *config.Config) *archive.Fetcher {
	return archive.NewFetcher(
		archive.WithUserAgent(cfg.UserAgent),
		archive.WithPolicy(policyFromConfig(cfg)),
		archive.WithProgress(cfg.Progress),
		archive.WithHTTPClient(newDownloadHTTPClient(cfg)),
	)
}

// newRegistryHTTPClient bounds every registry request by the configured timeout.
func newRegistryHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout}
}

// newDownloadHTTPClient bounds the wait for response headers only, so the
// archive body may stream for as long as it needs.
func newDownloadHTTPClient(cfg *config.Config) *http.Client {
	httpTransport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Stdlib default.
	httpTransport.ResponseHeaderTimeout = cfg.RequestTimeout

	return &http.Client{Transport: httpTransport}
}
