package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: ""},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid memory config",
			config:  Config{Backend: "memory"},
			wantErr: nil,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	if err := ValidateTimeout(time.Second); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	for _, d := range []time.Duration{0, -time.Second} {
		if err := ValidateTimeout(d); !errors.Is(err, ErrTimeoutInvalid) {
			t.Fatalf("ValidateTimeout(%v) = %v, want ErrTimeoutInvalid", d, err)
		}
	}
}

func TestBackendsAreValid(t *testing.T) {
	for _, b := range Backends() {
		if err := (Config{Backend: b}).Validate(); err != nil {
			t.Fatalf("backend %q: %v", b, err)
		}
	}
}
