package cmd

import (
	"fmt"
	"os"

	"demodesk/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "demodesk",
	Short: "demodesk is the demo triage dashboard backend.",
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
