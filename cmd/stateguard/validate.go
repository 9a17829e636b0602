package main

import (
	"fmt"

	"github.com/aretw0/stateguard/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config <path>",
	Short: "Check a configuration file",
	Long:  `Loads the file, applies environment overrides and reports the first invalid setting.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return fmt.Errorf("configuration is invalid: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (store: %s, confidentiality: %t)\n",
			cfg.Store.Backend, cfg.Confidentiality())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
