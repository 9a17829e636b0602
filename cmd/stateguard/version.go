package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateguard"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stateguard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stateguard version %s\n", strings.TrimSpace(stateguard.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
