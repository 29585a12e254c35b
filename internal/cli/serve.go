package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hoopstat/scorekeeper/internal/api"
	"github.com/hoopstat/scorekeeper/internal/config"
	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/factory"
	"github.com/hoopstat/scorekeeper/internal/logging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scorekeeping API server",
		Long: `Run the local scorekeeping API. Settings come from flag defaults,
then the YAML file named by --config, then flags given on the command line.`,
		Args: cobra.NoArgs,
		// The client setup on the root command does not apply to the server
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(cmd.Context(), cmd.Flags())
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// RunServer loads configuration from fs, starts the API and blocks until ctx
// is cancelled or SIGINT/SIGTERM arrives, then shuts down gracefully.
func RunServer(ctx context.Context, fs *pflag.FlagSet) error {
	appCfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	logger := logging.Setup(appCfg.Log.Format, appCfg.Log.Level, os.Stdout)
	slog.SetDefault(logger)

	app, err := factory.New(*appCfg, logger)
	if err != nil {
		errutil.LogError(logger, "failed to create application", err)
		return err
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = appCfg.Server.Host
	serverCfg.Port = appCfg.Server.Port
	server := api.NewServer(app.Router(), serverCfg, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("backend", appCfg.Backend.Type),
		slog.String("cache", appCfg.Cache.Type))

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			errutil.LogError(logger, "server error", serveErr)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()

	// Close sessions first so watchers see session_ended before the listener goes away
	app.Close(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "shutdown error", err)
		serveErr = errors.Join(serveErr, err)
	}

	logger.Info("server stopped")
	return serveErr
}
