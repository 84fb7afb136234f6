package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/bot"
	"github.com/varoOP/vinime/internal/catalog"
	"github.com/varoOP/vinime/internal/config"
	"github.com/varoOP/vinime/internal/database"
	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/extract"
	"github.com/varoOP/vinime/internal/fetch"
	"github.com/varoOP/vinime/internal/logger"
	"github.com/varoOP/vinime/internal/media"
	"github.com/varoOP/vinime/internal/notification"
	"github.com/varoOP/vinime/internal/repository"
	"github.com/varoOP/vinime/internal/scraper"
	"github.com/varoOP/vinime/internal/seed"
	"github.com/varoOP/vinime/internal/server"
	"github.com/varoOP/vinime/internal/telegram"
)

const (
	// a catalog smaller than this is seeded shortly after the bot starts
	startupSeedMinimum = 10
	startupSeedDelay   = 3 * time.Second

	closeTimeout = 15 * time.Second
)

// App represents the main application with all dependencies initialized
type App struct {
	log       zerolog.Logger
	logCloser io.Closer
	config    *domain.Config

	repo     domain.CatalogRepository
	closers  []func(context.Context) error
	catalog  *catalog.Store
	parser   *extract.Parser
	scraper  scraper.Service
	seeder   seed.Service
	notifier domain.NotificationService
}

// NewApp creates a new application instance with all dependencies initialized
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{log: log, logCloser: logCloser, config: cfg}

	labels, err := extract.LoadLabels(cfg.LabelsFile)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	a.parser = extract.NewParser(cfg.BaseURL, labels)

	if err := a.openRepository(ctx); err != nil {
		a.closeLog()
		return nil, err
	}

	a.catalog = catalog.NewStore(log, a.repo, cfg.CatalogDebounce)
	a.catalog.Load(ctx)

	fetcher := fetch.NewClient(log, fetch.Config{
		Origin:     cfg.BaseURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.FetchTimeout,
		Retries:    cfg.FetchRetries,
		RetryDelay: cfg.FetchRetryDelay,
	})

	a.scraper = scraper.NewService(log, cfg.BaseURL, fetcher, a.parser, a.catalog)
	a.notifier = notification.NewService(log, cfg.DiscordWebhookURL)
	a.seeder = seed.NewService(log, seed.Config{
		Origin:     cfg.BaseURL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.FetchTimeout,
		Retries:    cfg.FetchRetries,
		RetryDelay: cfg.FetchRetryDelay,
		Threshold:  cfg.SeedThreshold,
		Delay:      cfg.SeedDelay,
		Keywords:   cfg.SeedKeywords,
	}, a.parser, a.catalog, a.scraper, a.notifier)

	return a, nil
}

func (a *App) openRepository(ctx context.Context) error {
	repo, closeFn, err := openRepository(ctx, a.log, a.config, a.config.CatalogBackend)
	if err != nil {
		return err
	}
	a.repo = repo
	if closeFn != nil {
		a.closers = append(a.closers, closeFn)
	}

	a.log.Debug().Str("backend", string(a.config.CatalogBackend)).Msg("catalog repository ready")
	return nil
}

// openRepository opens the catalog repository for backend. The returned
// close function is nil when there is nothing to release.
func openRepository(ctx context.Context, log zerolog.Logger, cfg *domain.Config, backend domain.CatalogBackend) (domain.CatalogRepository, func(context.Context) error, error) {
	switch backend {
	case domain.CatalogBackendSQLite:
		db, err := database.NewDB(cfg.DatabaseDir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database.NewCatalogRepo(log, db), func(context.Context) error { return db.Close() }, nil

	case domain.CatalogBackendMongo:
		if cfg.MongoURI == "" {
			return nil, nil, fmt.Errorf("mongo_uri is required for the mongo backend")
		}
		repo, err := repository.NewMongoRepository(ctx, log, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		return repo, repo.Close, nil

	case domain.CatalogBackendJSON:
		return repository.NewFileRepository(log, cfg.CatalogPath), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown catalog backend: %s", backend)
	}
}

// MigrateCatalog copies the catalog stored in one backend into another,
// replacing what the target holds. It returns the number of entries copied.
func (a *App) MigrateCatalog(ctx context.Context, from, to domain.CatalogBackend) (int, error) {
	if from == to {
		return 0, fmt.Errorf("source and target backend are both %s", from)
	}

	src, closeSrc, err := openRepository(ctx, a.log, a.config, from)
	if err != nil {
		return 0, err
	}
	if closeSrc != nil {
		defer closeSrc(ctx)
	}

	dst, closeDst, err := openRepository(ctx, a.log, a.config, to)
	if err != nil {
		return 0, err
	}
	if closeDst != nil {
		defer closeDst(ctx)
	}

	entries, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s catalog: %w", from, err)
	}

	if err := dst.Save(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to save %s catalog: %w", to, err)
	}

	a.log.Info().Str("from", string(from)).Str("to", string(to)).Int("entries", len(entries)).Msg("catalog migrated")
	return len(entries), nil
}

func (a *App) Logger() zerolog.Logger {
	return a.log
}

func (a *App) Config() *domain.Config {
	return a.config
}

func (a *App) Scraper() scraper.Service {
	return a.scraper
}

func (a *App) Catalog() *catalog.Store {
	return a.catalog
}

// Seed runs one seeding pass and writes the catalog out.
func (a *App) Seed(ctx context.Context) (domain.SeedReport, error) {
	report, err := a.seeder.SeedIfSparse(ctx)
	if err != nil {
		return report, err
	}
	if err := a.catalog.Flush(ctx); err != nil {
		return report, fmt.Errorf("failed to persist catalog: %w", err)
	}
	return report, nil
}

// Serve runs the bot until ctx is done, by long polling or behind the
// webhook server depending on the configured mode.
func (a *App) Serve(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if notifyErr := a.notifier.SendError(context.WithoutCancel(ctx), err); notifyErr != nil {
				a.log.Warn().Err(notifyErr).Msg("Failed to send error notification")
			}
		}
	}()

	if err := a.config.ValidateBot(); err != nil {
		return err
	}

	client := telegram.NewClient(a.log, a.config.TelegramToken, a.config.TelegramAPIRoot)

	maxUpload := bot.UploadLimit
	if a.config.LocalBotAPI() {
		maxUpload = bot.LocalUploadLimit
	}

	b := bot.New(a.log, bot.Config{
		Origin:         a.config.BaseURL,
		PerPage:        a.config.PerPage,
		MaxUploadBytes: maxUpload,
	}, client, a.scraper, a.catalog, media.NewDownloader(a.log, a.config.UserAgent, a.config.BaseURL+"/", ""))
	defer b.Wait()

	if a.catalog.Len() < startupSeedMinimum {
		go a.seedLater(ctx)
	}

	a.log.Info().
		Str("mode", string(a.config.BotMode)).
		Str("origin", a.config.BaseURL).
		Int("catalog", a.catalog.Len()).
		Msg("starting bot")

	if a.config.BotMode == domain.BotModeWebhook {
		if a.config.WebhookURL != "" {
			if err := client.SetWebhook(ctx, a.config.WebhookURL, a.config.WebhookSecret); err != nil {
				return fmt.Errorf("failed to register webhook: %w", err)
			}
			a.log.Info().Str("url", a.config.WebhookURL).Msg("webhook registered")
		}
		return server.NewServer(a.log, b, a.config.WebhookSecret).Run(ctx, a.config.ListenAddr)
	}

	if err := b.Poll(ctx, client); err != nil {
		return fmt.Errorf("polling failed: %w", err)
	}
	return nil
}

func (a *App) seedLater(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(startupSeedDelay):
	}

	report, err := a.seeder.SeedIfSparse(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("startup seeding interrupted")
		return
	}
	a.log.Info().Int("added", report.Added).Int("total", report.Total).Msg("startup seeding done")
}

// Close flushes pending catalog writes and releases the backends.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var firstErr error
	if err := a.catalog.Close(ctx); err != nil {
		firstErr = fmt.Errorf("failed to persist catalog: %w", err)
	}
	for _, closeFn := range a.closers {
		if err := closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closeLog()
	return firstErr
}

func (a *App) closeLog() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}
