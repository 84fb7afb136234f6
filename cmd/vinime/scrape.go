package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varoOP/vinime/internal/app"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scraper operation and print the result as JSON",
	Long: `Scrape calls the same operations the bot uses against the live site and
prints what the extractors return. Listing operations feed the catalog
just like the bot does.`,
}

func scrapeCommand(use, short string, args cobra.PositionalArgs, run func(ctx context.Context, a *app.App, args []string) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return printJSON(run(ctx, a, args))
			})
		},
	}
}

func init() {
	scrapeCmd.AddCommand(
		scrapeCommand("latest", "Latest releases", cobra.NoArgs, func(ctx context.Context, a *app.App, _ []string) any {
			return a.Scraper().GetLatest(ctx)
		}),
		scrapeCommand("recommended", "Recommended anime", cobra.NoArgs, func(ctx context.Context, a *app.App, _ []string) any {
			return a.Scraper().GetRecommended(ctx)
		}),
		scrapeCommand("movies", "Anime movies", cobra.NoArgs, func(ctx context.Context, a *app.App, _ []string) any {
			return a.Scraper().GetMovies(ctx)
		}),
		scrapeCommand("search <query>", "Search by title", cobra.MinimumNArgs(1), func(ctx context.Context, a *app.App, args []string) any {
			return a.Scraper().SearchAnime(ctx, strings.Join(args, " "))
		}),
		scrapeCommand("detail <url>", "Anime detail page", cobra.ExactArgs(1), func(ctx context.Context, a *app.App, args []string) any {
			return a.Scraper().GetDetail(ctx, args[0])
		}),
		scrapeCommand("video <url>", "Episode streams", cobra.ExactArgs(1), func(ctx context.Context, a *app.App, args []string) any {
			return a.Scraper().GetVideo(ctx, args[0])
		}),
		scrapeCommand("genres", "Genre list", cobra.NoArgs, func(ctx context.Context, a *app.App, _ []string) any {
			return a.Scraper().GetGenreList(ctx)
		}),
		&cobra.Command{
			Use:   "genre <slug> [page]",
			Short: "One page of a genre",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				page := 1
				if len(args) == 2 {
					n, err := strconv.Atoi(args[1])
					if err != nil {
						return fmt.Errorf("invalid page %q: %w", args[1], err)
					}
					page = n
				}
				return withApp(func(ctx context.Context, a *app.App) error {
					return printJSON(a.Scraper().GetAnimeByGenre(ctx, args[0], page))
				})
			},
		},
	)
	rootCmd.AddCommand(scrapeCmd)
}
