package seed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/extract"
	"github.com/varoOP/vinime/internal/fetch"
)

const (
	DefaultThreshold = 50
	DefaultDelay     = 1500 * time.Millisecond

	animeListPath = "/anime-list/"
)

var DefaultKeywords = []string{"naruto", "one piece", "bleach", "dragon ball", "fairy tail"}

// Catalog is the part of the catalog store seeding needs.
type Catalog interface {
	UpsertMany(entries []domain.CatalogEntry) int
	Len() int
}

// Searcher runs a site search; results reach the catalog through it.
type Searcher interface {
	SearchAnime(ctx context.Context, query string) []domain.ListItem
}

type Config struct {
	Origin    string
	UserAgent string
	Timeout   time.Duration

	// Retries and RetryDelay apply to transport failures of the anime-list
	// request, the same way the page fetcher retries.
	Retries    int
	RetryDelay time.Duration

	Threshold int
	Delay     time.Duration
	Keywords  []string
}

type Service interface {
	SeedIfSparse(ctx context.Context) (domain.SeedReport, error)
}

type service struct {
	log      zerolog.Logger
	config   Config
	parser   *extract.Parser
	catalog  Catalog
	searcher Searcher
	notifier domain.NotificationService

	// one run at a time
	running sync.Mutex
}

func NewService(log zerolog.Logger, config Config, parser *extract.Parser, catalog Catalog, searcher Searcher, notifier domain.NotificationService) Service {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.RetryDelay < 0 {
		config.RetryDelay = 0
	}
	if len(config.Keywords) == 0 {
		config.Keywords = DefaultKeywords
	}
	config.Origin = strings.TrimRight(config.Origin, "/")

	return &service{
		log:      log.With().Str("module", "seed").Logger(),
		config:   config,
		parser:   parser,
		catalog:  catalog,
		searcher: searcher,
		notifier: notifier,
	}
}

// SeedIfSparse fills a catalog holding fewer than Threshold entries, first
// from the A-Z anime list and, when that yields nothing, from a fixed set of
// searches. Only cancellation of ctx is reported as an error.
func (s *service) SeedIfSparse(ctx context.Context) (domain.SeedReport, error) {
	s.running.Lock()
	defer s.running.Unlock()

	start := time.Now()
	before := s.catalog.Len()

	report := domain.SeedReport{Source: domain.SeedSourceNone, Total: before}
	if before >= s.config.Threshold {
		report.Skipped = true
		s.log.Debug().Int("total", before).Msg("catalog is populated, skipping seed")
		return report, nil
	}

	s.log.Info().Int("total", before).Msg("Seeding catalog from anime list")

	entries, err := s.crawlIndex(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("anime list crawl failed")
	}

	if len(entries) > 0 {
		s.catalog.UpsertMany(entries)
		report.Source = domain.SeedSourceIndex
		s.log.Info().Msgf("Seeded %d entries from anime list", len(entries))
	} else {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := s.seedFromSearches(ctx); err != nil {
			return report, err
		}
		report.Source = domain.SeedSourceSearches
	}

	report.Total = s.catalog.Len()
	report.Added = report.Total - before
	report.Duration = time.Since(start)

	s.log.Info().Int("added", report.Added).Int("total", report.Total).Str("source", string(report.Source)).Msg("catalog seeding finished")

	if s.notifier != nil {
		if err := s.notifier.SendSeedReport(ctx, report); err != nil {
			s.log.Warn().Err(err).Msg("could not send seed report")
		}
	}

	return report, nil
}

func (s *service) crawlIndex(ctx context.Context) ([]domain.CatalogEntry, error) {
	options := []func(*colly.Collector){
		func(c *colly.Collector) { c.AllowURLRevisit = true },
	}
	if s.config.UserAgent != "" {
		options = append(options, colly.UserAgent(s.config.UserAgent))
	}

	c := colly.NewCollector(options...)
	if s.config.Timeout > 0 {
		c.SetRequestTimeout(s.config.Timeout)
	}
	if s.config.UserAgent == "" {
		extensions.RandomUserAgent(c)
	}

	var (
		entries []domain.CatalogEntry
		status  int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for k, v := range fetch.BrowserHeaders(s.config.Origin) {
			r.Headers.Set(k, v)
		}
		s.log.Debug().Str("url", r.URL.String()).Msg("visiting")
	})

	c.OnResponse(func(r *colly.Response) {
		found, err := s.parser.AnimeIndex(string(r.Body))
		if err != nil {
			s.log.Warn().Err(err).Msg("could not parse anime list")
			return
		}
		entries = found
	})

	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
	})

	url := s.config.Origin + animeListPath
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		status = 0
		err := c.Visit(url)
		if err == nil {
			return entries, nil
		}

		// status errors are final, transport errors use the retry budget
		if status != 0 || attempt >= s.config.Retries {
			return nil, errors.Wrap(err, "failed to crawl anime list")
		}

		s.log.Warn().Err(err).Int("retries_left", s.config.Retries-attempt).Msg("anime list request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.config.RetryDelay):
		}
	}
}

func (s *service) seedFromSearches(ctx context.Context) error {
	s.log.Info().Strs("keywords", s.config.Keywords).Msg("Anime list empty, seeding from searches")

	for i, keyword := range s.config.Keywords {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.Delay):
			}
		}

		results := s.searcher.SearchAnime(ctx, keyword)
		s.log.Info().Msgf("Seed %q: +%d", keyword, len(results))
	}

	return nil
}
