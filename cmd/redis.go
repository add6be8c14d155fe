package cmd

import (
	"fmt"
	"log"

	"demodesk/cache"
	"demodesk/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		fmt.Println("Connected.")

		if err := cache.TestRedis(); err != nil {
			log.Fatalf("Redis operations failed: %v", err)
		}
		fmt.Println("Basic operations OK.")

		if err := cache.CloseRedis(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
