package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varoOP/vinime/internal/app"
	"github.com/varoOP/vinime/internal/domain"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the stored catalog sorted by title",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(func(ctx context.Context, a *app.App) error {
			entries := a.Catalog().ListAllSortedByTitle()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			return printJSON(entries)
		})
	},
}

func init() {
	catalogCmd.Flags().Int("limit", 0, "print at most this many entries (0 for all)")

	catalogMigrateCmd.Flags().String("from", "json", "source backend: json, sqlite, or mongo")
	catalogMigrateCmd.Flags().String("to", "sqlite", "target backend: json, sqlite, or mongo")
	catalogCmd.AddCommand(catalogMigrateCmd)

	rootCmd.AddCommand(catalogCmd)
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the catalog from one storage backend to another",
	Long: `Migrate reads the whole catalog from --from and writes it to --to,
replacing what the target holds. Switch catalog_backend afterwards to
start using the new store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		return withApp(func(ctx context.Context, a *app.App) error {
			n, err := a.MigrateCatalog(ctx, domain.CatalogBackend(from), domain.CatalogBackend(to))
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("\n✓ Catalog migration complete: %d entries copied from %s to %s\n", n, from, to)
			return nil
		})
	},
}
