package cmd

import (
	"orpheus/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Orpheus ledger server",
	Long:  `Start the HTTP server exposing the project registry, ownership ledger, track store and session endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
