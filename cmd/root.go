package cmd

import (
	"fmt"
	"os"

	"orpheus/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orpheus",
	Short: "Orpheus is the ledger service for collaborative music projects.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
