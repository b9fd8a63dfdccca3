package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jamalekbot",
	Short: "Business directory bot for Jamalek Online",
	Long: `jamalekbot answers directory questions on a messaging network: greetings,
keyword searches and business details with photos, backed by a Google Sheets table.`,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
