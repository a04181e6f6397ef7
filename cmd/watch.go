package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncheal/internal/daemon"
	"syncheal/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the daemon and keep every stored root clean",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	manager := daemon.NewRootManager(cfg)
	if err := manager.StartSaved(); err != nil {
		return err
	}

	roots := len(manager.Snapshots())
	if roots == 0 {
		logger.Log.Info("no roots configured, use 'syncheal roots add <path>' to add one")
	}

	srv := daemon.NewServer(manager, cfg.WatchStrategy, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("syncheal daemon started",
		zap.Int("roots", roots),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
