package cmd

import (
	"fmt"
	"log"

	"orpheus/config"
	"orpheus/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Verify that Redis is reachable and round-trip a key.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		if err := db.TestRedis(); err != nil {
			log.Fatalf("Redis round-trip failed: %v", err)
		}
		if err := db.CloseRedis(); err != nil {
			log.Printf("error closing Redis connection: %v", err)
		}
		fmt.Println("Redis connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
