package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing repository.
	err := Validate(new(Config))
	require.Error(t, err)

	// Bad compare mode.
	settings := &Config{
		Owner:          "owner",
		Repo:           "repo",
		VersionCompare: "numeric",
	}

	err = Validate(settings)
	require.ErrorIs(t, err, errUnknownCompareMode)

	// Archive name with a directory.
	settings = &Config{
		Owner:       "owner",
		Repo:        "repo",
		ArchiveName: "../evil.tar.gz",
	}

	err = Validate(settings)
	require.ErrorIs(t, err, errBadArchiveName)

	// Negative delay.
	settings = &Config{
		Owner:   "owner",
		Repo:    "repo",
		Backoff: []time.Duration{time.Second, -time.Second},
	}

	err = Validate(settings)
	require.ErrorIs(t, err, errNegativeBackoff)

	// Zero values get defaults.
	settings = &Config{
		Owner: "owner",
		Repo:  "repo",
	}

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultAPIURL, settings.APIURL)
	require.Equal(t, "UADNG-Updater/1.0", settings.UserAgent)
	require.Equal(t, DefaultRequestTimeout, settings.RequestTimeout)
	require.Equal(t, DefaultMaxAttempts, settings.MaxAttempts)
	require.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 3 * time.Second, 5 * time.Second, 8 * time.Second,
	}, settings.Backoff)
	require.Equal(t, DefaultArchiveName, settings.ArchiveName)
	require.Equal(t, DefaultBinaryPatterns(), settings.BinaryPatterns)
	require.Equal(t, CompareLexical, settings.VersionCompare)
}

// TestLoad_MissingFileYieldsDefaults ensures an absent settings file is not an error.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoad_PartialFileKeepsDefaults ensures fields absent from YAML keep their defaults.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := "repo: fork\nmax_attempts: 2\nbackoff: [10ms, 20ms]\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultOwner, cfg.Owner)
	require.Equal(t, "fork", cfg.Repo)
	require.Equal(t, 2, cfg.MaxAttempts)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, cfg.Backoff)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := Default()
	settings.Repo = "fork"
	settings.VersionCompare = CompareSemver

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
