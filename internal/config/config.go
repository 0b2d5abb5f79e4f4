package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/uadng/internal/transport"
)

// Config holds the settings of the self-update pipeline.
type Config struct {
	// Owner is the GitHub account publishing releases.
	Owner string `yaml:"owner"`
	// Repo is the GitHub repository publishing releases.
	Repo string `yaml:"repo"`
	// APIURL is the base URL of the release registry API.
	APIURL string `yaml:"api_url"`
	// UserAgent identifies the updater to the registry.
	UserAgent string `yaml:"user_agent"`
	// Token is an optional bearer token for authenticated registry requests.
	Token string `yaml:"token,omitempty"`
	// RequestTimeout bounds every single HTTP attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxAttempts is the retry budget of one request.
	MaxAttempts int `yaml:"max_attempts"`
	// Backoff is the delay schedule between attempts; the last entry is reused.
	Backoff []time.Duration `yaml:"backoff"`
	// ArchiveName is the file name of the downloaded archive inside the system temp directory.
	ArchiveName string `yaml:"archive_name"`
	// BinaryPatterns are substrings identifying the application binary inside the archive.
	BinaryPatterns []string `yaml:"binary_patterns"`
	// VersionCompare selects how release tags are compared: "lexical" or "semver".
	VersionCompare string `yaml:"version_compare"`
	// LogLevel is the minimum level of emitted log messages.
	LogLevel string `yaml:"log_level"`
	// Progress enables the download progress bar when stderr is a terminal.
	Progress bool `yaml:"progress"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "uadng-updater.yaml"

	// DefaultOwner is the GitHub account of the upstream project.
	DefaultOwner = "Universal-Debloater-Alliance"

	// DefaultRepo is the GitHub repository of the upstream project.
	DefaultRepo = "universal-android-debloater-next-generation"

	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com"

	// DefaultUserAgent is sent with every registry request.
	DefaultUserAgent = transport.DefaultUserAgent

	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultMaxAttempts is the retry budget of one request.
	DefaultMaxAttempts = transport.DefaultMaxAttempts

	// DefaultArchiveName is the temporary archive file name.
	DefaultArchiveName = "uadng-update.tar.gz"

	// CompareLexical compares versions as plain strings.
	CompareLexical = "lexical"

	// CompareSemver compares versions by semantic version precedence.
	CompareSemver = "semver"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRepositoryRequired is returned when owner or repo is missing.
	errRepositoryRequired = errors.New("owner and repo must be provided")
	// errUnknownCompareMode is returned for an unsupported version_compare value.
	errUnknownCompareMode = errors.New("unknown version compare mode")
	// errNegativeBackoff is returned when a backoff entry is below zero.
	errNegativeBackoff = errors.New("backoff delays must not be negative")
	// errBadArchiveName is returned when archive_name is not a bare file name.
	errBadArchiveName = errors.New("archive name must be a bare file name")
)

// DefaultBackoff returns the stock delay schedule between attempts.
func DefaultBackoff() []time.Duration {
	return transport.DefaultPolicy().Delays
}

// DefaultBinaryPatterns returns the substrings recognizing the application binary.
func DefaultBinaryPatterns() []string {
	return []string{"universal-android-debloater", "uadng"}
}

// Default returns settings pointing at the upstream repository.
func Default() *Config {
	return &Config{
		Owner:          DefaultOwner,
		Repo:           DefaultRepo,
		APIURL:         DefaultAPIURL,
		UserAgent:      DefaultUserAgent,
		RequestTimeout: DefaultRequestTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		Backoff:        DefaultBackoff(),
		ArchiveName:    DefaultArchiveName,
		BinaryPatterns: DefaultBinaryPatterns(),
		VersionCompare: CompareLexical,
		LogLevel:       "info",
		Progress:       true,
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry a token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for zero values.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(settings.Owner) == "" || strings.TrimSpace(settings.Repo) == "" {
		return errRepositoryRequired
	}

	if settings.APIURL == "" {
		settings.APIURL = DefaultAPIURL
	}

	if _, err := url.ParseRequestURI(settings.APIURL); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	if settings.UserAgent == "" {
		settings.UserAgent = DefaultUserAgent
	}

	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = DefaultRequestTimeout
	}

	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}

	if len(settings.Backoff) == 0 {
		settings.Backoff = DefaultBackoff()
	}

	for _, delay := range settings.Backoff {
		if delay < 0 {
			return errNegativeBackoff
		}
	}

	if settings.ArchiveName == "" {
		settings.ArchiveName = DefaultArchiveName
	}

	if filepath.Base(settings.ArchiveName) != settings.ArchiveName {
		return fmt.Errorf("%q: %w", settings.ArchiveName, errBadArchiveName)
	}

	if len(settings.BinaryPatterns) == 0 {
		settings.BinaryPatterns = DefaultBinaryPatterns()
	}

	switch settings.VersionCompare {
	case "":
		settings.VersionCompare = CompareLexical
	case CompareLexical, CompareSemver:
	default:
		return fmt.Errorf("%q: %w", settings.VersionCompare, errUnknownCompareMode)
	}

	return nil
}
