// Package paths resolves the configuration directory and the directory that
// relative fixture file paths are read from.
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir  = "DBUNIT_CONFIG_DIR"
	EnvFixtureDir = "DBUNIT_FIXTURE_DIR"
)

// getwd can be overridden in tests.
var getwd = os.Getwd

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > DBUNIT_CONFIG_DIR env > current directory.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return getwd()
}

// ResolveFixtureDir returns the fixture directory following the precedence
// chain: flag > configured dbunit.fixture_dir > DBUNIT_FIXTURE_DIR env >
// current directory.
func ResolveFixtureDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvFixtureDir); env != "" {
		return filepath.Abs(env)
	}
	return getwd()
}

// FixturePath joins a relative fixture path onto dir. Absolute and empty
// paths are returned unchanged.
func FixturePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
