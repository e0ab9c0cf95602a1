package types

import (
	"errors"
	"time"
)

// Config holds backend selection for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
}

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrAddrEmpty      = errors.New("listen address must not be empty")
	ErrTimeoutInvalid = errors.New("timeout must be positive")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendSQLite: true,
}

// Backends returns the names Validate accepts, in a stable order.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// ValidateTimeout returns ErrTimeoutInvalid unless d is positive.
func ValidateTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrTimeoutInvalid
	}
	return nil
}
