package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varoOP/vinime/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Serve runs the bot until interrupted.

Updates arrive in one of two modes, set via --mode or bot_mode in config:
  - polling: remove any webhook and long-poll getUpdates (default)
  - webhook: serve POST /api/webhook on --listen, registering webhook_url
    with Telegram when it is set`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Override mode and address from CLI flags if provided
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			viper.Set("bot_mode", mode)
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			viper.Set("listen_addr", listen)
		}

		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.Serve(ctx); err != nil {
				return fmt.Errorf("serve failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().String("mode", "", "update mode: 'polling' or 'webhook'")
	serveCmd.Flags().String("listen", "", "listen address for webhook mode, e.g. :3000")
	rootCmd.AddCommand(serveCmd)
}
