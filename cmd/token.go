package cmd

import (
	"fmt"
	"log"
	"time"

	"demodesk/config"
	"demodesk/core/auth"

	"github.com/spf13/cobra"
)

var (
	tokenEmail string
	tokenTTL   time.Duration
)

// tokenCmd issues a signed staff token for local development, standing in
// for the identity provider.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a staff token for local development",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is not configured")
		}
		if tokenEmail == "" {
			log.Fatal("--email is required")
		}

		token, err := auth.GenerateToken(cfg.JWTSecret, tokenEmail, tokenTTL)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "staff email to embed in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
