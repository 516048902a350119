package cmd

import (
	"fmt"
	"log"

	"orpheus/config"
	"orpheus/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database schema",
	Long:  `Connect to MySQL and auto-migrate the ledger tables (projects, collaborators, splits, audits, tracks, users).`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrate(); err != nil {
			log.Fatalf("failed to migrate schema: %v", err)
		}
		fmt.Println("Schema migrated.")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
