package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/uadng/internal/archive"
	"github.com/oshokin/uadng/internal/config"
	"github.com/oshokin/uadng/internal/domain/update"
	"github.com/oshokin/uadng/internal/logger"
	"github.com/oshokin/uadng/internal/release"
	"github.com/oshokin/uadng/internal/version"
)

var errSettingsNotInitialised = errors.New("settings are not initialized")

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Config overrides ConfigPath when set.
	Config *config.Config
	// CurrentVersion is the running build version; defaults to version.Short().
	CurrentVersion string
	// TargetDir receives the new binary; defaults to the running executable's directory.
	TargetDir string
	// TempDir holds the downloaded archive; defaults to os.TempDir().
	TempDir string
}

// runner holds the state of a single update execution.
// Call Run(ctx, Options) from callers.
type runner struct {
	cfg            *config.Config      // Settings loaded from YAML or passed in.
	currentVersion string              // Version of the running build.
	targetDir      string              // Where the binary is installed.
	archivePath    string              // Temporary archive location.
	resolver       *release.Client     // Release registry client.
	fetcher        *archive.Fetcher    // Asset downloader.
	match          archive.Matcher     // Binary naming convention.
	compareMode    release.CompareMode // Version ordering.
}

// Run executes the update pipeline and is the public entry point for the CLI.
// It returns update.Updated when a new binary was installed, update.UpToDate
// when nothing newer exists, and update.Failed with the first error otherwise.
func Run(ctx context.Context, opts *Options) (update.Outcome, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "uadng-updater")

	up, err := newRunner(opts)
	if err != nil {
		logger.ErrorKV(ctx, "Updater setup failed", "error", err)
		return update.Failed, err
	}

	outcome, err := up.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return update.Failed, err
	}

	logger.InfoKV(ctx, "Updater completed", "outcome", outcome.String())

	return outcome, nil
}

// newRunner resolves settings and defaults.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}

		cfg = loaded
	} else if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	currentVersion := opts.CurrentVersion
	if currentVersion == "" {
		currentVersion = version.Short()
	}

	targetDir := opts.TargetDir
	if targetDir == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}

		targetDir = dir
	}

	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &runner{
		cfg:            cfg,
		currentVersion: currentVersion,
		targetDir:      targetDir,
		archivePath:    filepath.Join(tempDir, cfg.ArchiveName),
		resolver:       newResolver(cfg),
		fetcher:        newFetcher(cfg),
		match:          archive.ContainsAny(cfg.BinaryPatterns...),
		compareMode:    release.CompareMode(cfg.VersionCompare),
	}, nil
}

// Run executes the workflow for this runner instance:
// 1) Resolve the latest release.
// 2) Compare versions.
// 3) Pick the first asset.
// 4) Download the archive.
// 5) Install the binary.
// 6) Remove the archive.
func (u *runner) Run(ctx context.Context) (update.Outcome, error) {
	if u.cfg == nil {
		return update.Failed, errSettingsNotInitialised
	}

	logger.Info(ctx, "Checking for updates")

	latest, err := u.resolver.Latest(ctx)
	if err != nil {
		return update.Failed, fmt.Errorf("resolve latest release: %w", err)
	}

	latestVersion := latest.Version()
	if !release.IsNewer(latestVersion, u.currentVersion, u.compareMode) {
		logger.InfoKV(ctx, "No update required",
			"current", u.currentVersion, "latest", latestVersion)

		return update.UpToDate, nil
	}

	ctx = logger.WithKV(ctx, "release", latest.TagName)

	logger.InfoKV(ctx, "New version found, downloading",
		"current", u.currentVersion, "latest", latestVersion)

	assetURL, err := latest.FirstAssetURL()
	if err != nil {
		return update.Failed, err
	}

	if err = u.fetcher.Fetch(ctx, assetURL, u.archivePath); err != nil {
		return update.Failed, fmt.Errorf("fetch archive: %w", err)
	}

	logger.InfoKV(ctx, "Installing update", "target_dir", u.targetDir)

	installed, err := archive.Install(ctx, u.archivePath, u.targetDir, u.match)
	if err != nil {
		return update.Failed, fmt.Errorf("install archive: %w", err)
	}

	u.cleanup(ctx)

	logger.InfoKV(ctx, "Update successful", "binary", installed, "version", latestVersion)

	return update.Updated, nil
}

// cleanup removes the downloaded archive; failures are ignored.
func (u *runner) cleanup(ctx context.Context) {
	if err := os.Remove(u.archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "Could not remove temporary archive", "path", u.archivePath, "error", err)
	}
}
