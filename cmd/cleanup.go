package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/core/cleanup"
	"demodesk/storage"

	"github.com/spf13/cobra"
)

var cleanupRetention time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete rejected demos past the retention window",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cleanupRetention > 0 {
			cfg.CleanupRetention = cleanupRetention
		}

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.CloseRedis()

		kv := cache.NewRedisKV()
		store, err := storage.New(cfg, kv)
		if err != nil {
			log.Fatalf("Failed to initialize file store: %v", err)
		}

		sweeper := cleanup.NewSweeper(store, cache.NewDemoCache(kv, cfg.DemoCacheTTL), cfg.CleanupRetention)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		report, err := sweeper.Sweep(ctx)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}

		fmt.Printf("Scanned: %d\nDeleted: %d\nFailed: %d\n", report.Scanned, report.Deleted, report.Failed)
		for _, detail := range report.ErrorDetails {
			fmt.Printf("  %s\n", detail)
		}
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupRetention, "retention", 0, "override the retention window (e.g. 720h)")
	rootCmd.AddCommand(cleanupCmd)
}
