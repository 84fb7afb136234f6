package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varoOP/vinime/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a sparse catalog from the site",
	Long: `Seed crawls the site's A-Z anime list into the catalog when it holds
fewer entries than seed_threshold. When the list yields nothing a fixed
set of searches is run instead. The catalog is written out before exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if threshold, _ := cmd.Flags().GetInt("threshold"); threshold > 0 {
			viper.Set("seed_threshold", threshold)
		}

		return withApp(func(ctx context.Context, a *app.App) error {
			report, err := a.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			log := a.Logger()
			if report.Skipped {
				log.Info().Int("total", report.Total).Msg("catalog already populated, nothing to do")
				return nil
			}
			log.Info().
				Str("source", string(report.Source)).
				Int("added", report.Added).
				Int("total", report.Total).
				Dur("took", report.Duration).
				Msg("seeding finished")
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().Int("threshold", 0, "seed when the catalog holds fewer entries than this")
	rootCmd.AddCommand(seedCmd)
}
