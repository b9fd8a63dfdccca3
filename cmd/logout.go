package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jamalekbot/pkg/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the linked account",
	Long:  "Deletes the stored credentials and session artifacts so the next gateway run shows a fresh pairing code.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, log, err := loadRuntime("cmd.logout")
		if err != nil {
			fmt.Printf("failed to start: %v\n", err)
			return
		}

		if err := clearCredentials(cmd.Context(), cfg.Session.AuthDir); err != nil {
			log.Error("Logout failed", "error", err)
			return
		}

		log.Info("Stored credentials removed", "auth_dir", cfg.Session.AuthDir)
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func clearCredentials(ctx context.Context, authDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := session.NewFileStore(authDir)
	if err != nil {
		return err
	}

	return store.Clear(ctx)
}
