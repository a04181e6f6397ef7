package cmd

import (
	"fmt"
	"os"

	"syncheal/internal/config"
	"syncheal/internal/db"
	"syncheal/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	debug      bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "syncheal",
	Short: "Clean up conflict files left behind by Syncthing and Nextcloud",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		logger.Init(debug)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		dbCmds := map[string]bool{
			"solve": true, "watch": true, "history": true,
		}
		if dbCmds[cmd.Name()] {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	rootCmd.SetArgs(withDefaultCommand(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDefaultCommand routes a command line that names no subcommand to solve.
func withDefaultCommand(args []string) []string {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" || arg == "--version" {
			return args
		}
	}

	c, _, err := rootCmd.Find(args)
	if err != nil || c != rootCmd {
		return args
	}

	return append([]string{solveCmd.Name()}, args...)
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.syncheal/config.yaml)")
}
