package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editing API server",
		Long: `Start the sync engine and its HTTP API. The server exposes the
component listing, load and edit endpoints plus a server-sent event
stream; the engine watches the components directory for changes made
outside the editing surface.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, cleanup, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{
		Engine: eng,
		Port:   cfg.Port,
		Logger: logger,
	})
	eng.SetCallbacks(srv.Callbacks())

	logger.Info("watching components", "dir", cfg.ComponentsDir, "ext", cfg.Extension)
	return srv.Serve(ctx)
}
