package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/stateguard/internal/logging"
	"github.com/aretw0/stateguard/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stateguard",
	Short: "stateguard protects web applications against parameter tampering",
	Long: `stateguard records every link and form a page renders and rejects requests
whose parameters, target or cookies differ from what the server issued.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (yaml or json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
}

// loadConfig reads --config, or the defaults when it is not set.
// Environment overrides apply in both cases.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	levelName := cfg.Log.Level
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		levelName = override
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, logging.Format(cfg.Log.Format)), nil
}
