package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/uadng/internal/config"
	"github.com/oshokin/uadng/internal/logger"
	"github.com/oshokin/uadng/internal/service/updater"
	"github.com/oshokin/uadng/internal/version"
)

// errUnknownLogLevel is returned for an unsupported log level name.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string
	// skipUpdate disables the startup update check.
	skipUpdate bool

	// exit terminates the process after a successful update; replaced in tests.
	//nolint:gochecknoglobals // Test seam for process termination.
	exit = os.Exit

	// rootCmd checks for updates and then runs the application.
	rootCmd = &cobra.Command{
		Use:   "uadng",
		Short: "Debloat Android devices, keeping the tool itself up to date.",
		Long: `Universal Android Debloater Next Generation.

On startup the latest GitHub release is compared with the running version.
When it is newer, the release archive is downloaded with retries, the binary
is replaced next to the running executable and the process exits so that the
launcher can start the new version. A failed update never stops the
application: the error is logged and the installed version keeps running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return run(ctx, cmd.OutOrStdout())
		},
	}
)

// Execute runs the uadng CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run loads the updater settings, updates the binary unless disabled and
// starts the application. Unusable settings only disable the update.
func run(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WarnKV(ctx, "Updater settings are unusable, skipping self-update",
			"path", configPath, "error", err)

		cfg = nil
	}

	if err = applyLogLevel(cfg); err != nil {
		return err
	}

	if !skipUpdate && cfg != nil {
		selfUpdate(ctx, &updater.Options{Config: cfg})
	}

	return runApplication(out)
}

// selfUpdate runs the update pipeline and terminates the process once a new
// binary is installed. Failures are logged and otherwise ignored.
func selfUpdate(ctx context.Context, opts *updater.Options) {
	outcome, err := updater.Run(ctx, opts)
	if err != nil {
		logger.WarnKV(ctx, "Self-update failed (continuing anyway)", "error", err)
		return
	}

	if outcome.ShouldRestart() {
		logger.Info(ctx, "Update successful! Restarting")
		logger.Sync()
		exit(0)
	}
}

// applyLogLevel sets the global level from the flag or, failing that, the configuration.
// cfg may be nil when the settings could not be loaded.
func applyLogLevel(cfg *config.Config) error {
	var level string
	if cfg != nil {
		level = cfg.LogLevel
	}

	if logLevel != "" {
		level = logLevel
	}

	if level == "" {
		return nil
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%q: %w", level, errUnknownLogLevel)
	}

	logger.SetLevel(parsed)

	return nil
}

// runApplication is the entry point of the debloating logic.
func runApplication(out io.Writer) error {
	lines := []string{
		version.ProductName,
		"Version " + version.Short(),
		"Ready to debloat your device!",
		"(Your debloating logic would run here)",
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&skipUpdate, "skip-update", false, "do not check for updates on startup")
}
