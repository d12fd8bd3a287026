// Package config loads dbunit settings with Viper from dbunit.yaml in the
// configuration directory, overlaid by DBUNIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/dbunit/internal/logging"
	"github.com/mesh-intelligence/dbunit/pkg/types"
)

const (
	configFileName = "dbunit"
	configFileType = "yaml"

	// FileName is the configuration file looked up in the config directory.
	FileName = configFileName + "." + configFileType

	envPrefix = "DBUNIT"
)

// Configuration keys.
const (
	KeyDriver            = "dbunit.driver"
	KeyConnectionURL     = "dbunit.connection_url"
	KeyUsername          = "dbunit.username"
	KeyPassword          = "dbunit.password"
	KeySetUpOperation    = "dbunit.setup_operation"
	KeyTearDownOperation = "dbunit.teardown_operation"
	KeyConnectTimeout    = "dbunit.connect_timeout"
	KeyFixtureDir        = "dbunit.fixture_dir"
	KeyLogLevel          = "log.level"
)

// Defaults.
const (
	DefaultConnectionURL  = "sqlite:./dbunit.db"
	DefaultConnectTimeout = 3 * time.Second
)

// DefaultYAML is the content written by WriteDefault.
const DefaultYAML = `# dbunit configuration

dbunit:
  # database/sql driver name; inferred from the URL scheme when empty
  driver: ""
  connection_url: sqlite:./dbunit.db
  username: ""
  password: ""
  setup_operation: CLEAN_INSERT
  teardown_operation: NONE
  connect_timeout: 3s
  # directory relative fixture paths are read from (default: current directory)
  # fixture_dir:

log:
  level: info
`

// Validation errors.
var (
	ErrInvalidTimeout = errors.New("connect timeout must be positive")
)

// Config is the resolved dbunit configuration.
type Config struct {
	Connection        types.ConnectionParams
	SetUpOperation    string
	TearDownOperation string
	ConnectTimeout    time.Duration
	FixtureDir        string
	LogLevel          string

	// File is the configuration file that was read, empty when none existed.
	File string
}

// Load reads dbunit.yaml from dir. A missing file is not an error; defaults
// and environment variables still apply. Each dbunit.* key can be set from
// DBUNIT_<NAME> (for example DBUNIT_CONNECTION_URL) and log.level from
// DBUNIT_LOG_LEVEL.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDriver, "")
	v.SetDefault(KeyConnectionURL, DefaultConnectionURL)
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeySetUpOperation, types.DefaultSetUpOperation.String())
	v.SetDefault(KeyTearDownOperation, types.DefaultTearDownOperation.String())
	v.SetDefault(KeyConnectTimeout, DefaultConnectTimeout)
	v.SetDefault(KeyFixtureDir, "")
	v.SetDefault(KeyLogLevel, logging.DefaultLevel)

	// KeyFixtureDir has no env binding: paths.ResolveFixtureDir consults
	// DBUNIT_FIXTURE_DIR after the config file value.
	for _, key := range []string{
		KeyDriver, KeyConnectionURL, KeyUsername, KeyPassword,
		KeySetUpOperation, KeyTearDownOperation, KeyConnectTimeout,
		KeyLogLevel,
	} {
		_ = v.BindEnv(key, EnvName(key))
	}
	return v
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	name := strings.TrimPrefix(key, "dbunit.")
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Connection: types.ConnectionParams{
			Driver:   v.GetString(KeyDriver),
			URL:      v.GetString(KeyConnectionURL),
			Username: v.GetString(KeyUsername),
			Password: v.GetString(KeyPassword),
		},
		SetUpOperation:    v.GetString(KeySetUpOperation),
		TearDownOperation: v.GetString(KeyTearDownOperation),
		ConnectTimeout:    v.GetDuration(KeyConnectTimeout),
		FixtureDir:        v.GetString(KeyFixtureDir),
		LogLevel:          v.GetString(KeyLogLevel),
		File:              v.ConfigFileUsed(),
	}
}

// Validate checks the connection URL, the operation names, the timeout and
// the log level.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Connection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Operations(); err != nil {
		errs = append(errs, err)
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.ConnectTimeout))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Operations resolves the configured default setup and teardown operations.
func (c *Config) Operations() (setUp, tearDown types.Operation, err error) {
	setUp, err = types.ParseOperation(c.SetUpOperation)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", KeySetUpOperation, err)
	}
	tearDown, err = types.ParseOperation(c.TearDownOperation)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", KeyTearDownOperation, err)
	}
	return setUp, tearDown, nil
}

// WriteDefault creates dir if needed and writes DefaultYAML to dir/dbunit.yaml
// unless the file already exists. It returns the file path and whether it was
// created.
func WriteDefault(dir string) (string, bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("ensure config dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	_, err := os.Stat(path)
	if err == nil {
		return path, false, nil
	}
	if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.WriteFile(path, []byte(DefaultYAML), 0o644); err != nil {
		return "", false, fmt.Errorf("write config file: %w", err)
	}
	return path, true, nil
}
