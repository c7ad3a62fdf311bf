package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jorge-rr00/newbackend/internal/cli"
	"github.com/jorge-rr00/newbackend/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "nova",
	Short: "Nova is a financial and legal assistant",
	Long: `Nova answers financial and legal questions grounded on a knowledge index
and on the documents attached to a conversation.

Configuration is read from an optional YAML file, then from the environment
(a .env file in the working directory is honoured).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cli.NewLogger(cfg.Log, os.Stderr), nil
}

// openStorage loads the configuration and opens the session store only.
func openStorage(cmd *cobra.Command) (*cli.Services, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.OpenStorage(cfg, logger)
}
