// Package config loads service settings with Viper. Values come from, in
// increasing precedence: defaults, config.yaml, TODOS_* environment
// variables, and command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todos/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. TODOS_ADDR.
	EnvPrefix = "TODOS"
)

// Config keys.
const (
	KeyBackend         = "backend"
	KeyAddr            = "addr"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyReadTimeout     = "read_timeout"
	KeyWriteTimeout    = "write_timeout"
	KeyShutdownTimeout = "shutdown_timeout"
)

// Defaults for every key.
const (
	DefaultBackend         = types.BackendMemory
	DefaultAddr            = ":8000"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// defaultConfigYAML is the content written to config.yaml by WriteDefault.
const defaultConfigYAML = `# todos service configuration
# Every key can be overridden with a TODOS_<KEY> environment variable.

# Store backend: memory or sqlite (in-memory, nothing is written to disk)
backend: memory

# Listen address
addr: ":8000"

# Logging: level is debug, info, warn or error; format is text, json or logfmt
log_level: info
log_format: text

# Server timeouts
read_timeout: 10s
write_timeout: 10s
shutdown_timeout: 5s
`

// Settings is the decoded configuration.
type Settings struct {
	Backend         string
	Addr            string
	LogLevel        string
	LogFormat       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Validate checks backend, address and timeouts.
func (s Settings) Validate() error {
	if err := s.Store().Validate(); err != nil {
		return fmt.Errorf("%s %q: %w", KeyBackend, s.Backend, err)
	}
	if s.Addr == "" {
		return types.ErrAddrEmpty
	}
	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{KeyReadTimeout, s.ReadTimeout},
		{KeyWriteTimeout, s.WriteTimeout},
		{KeyShutdownTimeout, s.ShutdownTimeout},
	}
	for _, to := range timeouts {
		if err := types.ValidateTimeout(to.d); err != nil {
			return fmt.Errorf("%s %v: %w", to.key, to.d, err)
		}
	}
	return nil
}

// Store returns the store configuration.
func (s Settings) Store() types.Config {
	return types.Config{Backend: s.Backend}
}

// New returns a Viper instance with defaults and environment bindings, set
// to read config.yaml from configDir. It does not read the file.
func New(configDir string) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, DefaultBackend)
	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyReadTimeout, DefaultReadTimeout)
	v.SetDefault(KeyWriteTimeout, DefaultWriteTimeout)
	v.SetDefault(KeyShutdownTimeout, DefaultShutdownTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	return v
}

// Read loads config.yaml into v. A missing config.yaml is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load is New followed by Read.
func Load(configDir string) (*viper.Viper, error) {
	v := New(configDir)
	if err := Read(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode extracts and validates Settings from v.
func Decode(v *viper.Viper) (Settings, error) {
	s := Settings{
		Backend:         strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		Addr:            v.GetString(KeyAddr),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ReadTimeout:     v.GetDuration(KeyReadTimeout),
		WriteTimeout:    v.GetDuration(KeyWriteTimeout),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Path returns the config.yaml location inside configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, configFileExt)
}

// WriteDefault creates configDir and a default config.yaml unless the file
// already exists. It reports whether a file was written.
func WriteDefault(configDir string) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	path := Path(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return false, fmt.Errorf("write config file: %w", err)
	}
	return true, nil
}
