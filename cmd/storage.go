package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/core/review"
	"demodesk/model"
	"demodesk/storage"

	"github.com/spf13/cobra"
)

var storageFolder string

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect the file store",
	Long:  `Lists the demo status folders (or one folder given --folder) against the configured storage driver.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Storage driver: %s\n", cfg.StorageDriver)

		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.CloseRedis()

		store, err := storage.New(cfg, cache.NewRedisKV())
		if err != nil {
			log.Fatalf("Failed to initialize file store: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		folders := []string{storageFolder}
		if storageFolder == "" {
			folders = folders[:0]
			for _, status := range model.Statuses {
				folders = append(folders, review.StatusFolder(status))
			}
		}

		for _, folder := range folders {
			files, err := store.List(ctx, folder)
			if err != nil {
				log.Fatalf("Failed to list %s: %v", folder, err)
			}
			fmt.Printf("\n%s (%d files)\n", folder, len(files))
			for _, f := range files {
				fmt.Printf("  %-60s %8d  %s\n", f.Name, f.Size, f.Modified.Format(time.RFC3339))
			}
		}
	},
}

func init() {
	storageCmd.Flags().StringVar(&storageFolder, "folder", "", "list a single folder instead of the demo folders")
	rootCmd.AddCommand(storageCmd)
}
