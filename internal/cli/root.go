// Package cli implements the todos command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todos/internal/config"
	"github.com/mesh-intelligence/todos/internal/logging"
	"github.com/mesh-intelligence/todos/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	logLevel  string
	logFormat string
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

func sysError(err error) error { return &exitError{code: exitSysError, err: err} }

// ExitCode maps a command error to a process exit code. Errors that carry no
// code (bad flags, unknown commands) count as user errors.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// NewRootCmd creates the top-level "todos" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "todos",
		Short:         "A small HTTP service for to-do items",
		Long:          "todos serves create, list, get, update and delete operations on\nto-do items over HTTP with JSON bodies. Items live in memory only.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $TODOS_CONFIG_DIR or the platform config dir)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", config.DefaultLogFormat, "log format: text, json, logfmt")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(flags))
	root.AddCommand(newServeCmd(flags))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitCode(err))
	}
}

// loadSettings resolves the config directory, reads config.yaml and binds
// the global flags and any flags named in bind on cmd.
func loadSettings(cmd *cobra.Command, flags *rootFlags, bind map[string]string) (config.Settings, error) {
	dir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return config.Settings{}, sysError(fmt.Errorf("resolve config dir: %w", err))
	}

	v, err := config.Load(dir)
	if err != nil {
		return config.Settings{}, userError(err)
	}

	bind[config.KeyLogLevel] = "log-level"
	bind[config.KeyLogFormat] = "log-format"
	if err := bindFlags(v, cmd, bind); err != nil {
		return config.Settings{}, sysError(err)
	}

	s, err := config.Decode(v)
	if err != nil {
		return config.Settings{}, userError(err)
	}
	return s, nil
}

// bindFlags binds config keys to the named flags so a flag set on the
// command line wins over env and config.yaml.
func bindFlags(v *viper.Viper, cmd *cobra.Command, bind map[string]string) error {
	for key, name := range bind {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s not defined on %s", name, cmd.Name())
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// newLogger builds the process logger from settings.
func newLogger(w io.Writer, s config.Settings) (*log.Logger, error) {
	opts := logging.DefaultOptions()
	opts.Level = s.LogLevel
	opts.Format = s.LogFormat
	logger, err := logging.New(w, opts)
	if err != nil {
		return nil, userError(err)
	}
	return logger, nil
}
