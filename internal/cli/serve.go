package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todos/internal/config"
	"github.com/mesh-intelligence/todos/internal/server"
	"github.com/mesh-intelligence/todos/pkg/store"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  "Serve the todo API until interrupted. SIGINT and SIGTERM trigger a\ngraceful shutdown bounded by shutdown_timeout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	cmd.Flags().String("addr", config.DefaultAddr, "listen address")
	cmd.Flags().String("backend", config.DefaultBackend, "store backend: memory or sqlite")
	return cmd
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	s, err := loadSettings(cmd, flags, map[string]string{
		config.KeyAddr:    "addr",
		config.KeyBackend: "backend",
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), s)
	if err != nil {
		return err
	}

	st, err := store.Open(s.Store())
	if err != nil {
		return sysError(err)
	}
	logger.Debug("store attached", "backend", s.Backend)
	defer func() {
		if err := st.Detach(); err != nil {
			logger.Warn("detach store", "err", err)
			return
		}
		logger.Debug("store detached", "backend", s.Backend)
	}()

	table, err := st.Todos()
	if err != nil {
		return sysError(fmt.Errorf("todos table: %w", err))
	}

	srv, err := server.New(table, logger, server.Options{
		Addr:            s.Addr,
		ReadTimeout:     s.ReadTimeout,
		WriteTimeout:    s.WriteTimeout,
		ShutdownTimeout: s.ShutdownTimeout,
	})
	if err != nil {
		return userError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "backend", s.Backend, "addr", s.Addr)
	if err := srv.Run(ctx); err != nil {
		return sysError(err)
	}
	logger.Info("stopped")
	return nil
}
