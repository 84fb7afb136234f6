package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/domain"
	"github.com/varoOP/vinime/internal/extract"
	"github.com/varoOP/vinime/internal/fetch"
)

// recommendedFallbackSize is how many catalog entries stand in for an empty
// recommendation page.
const recommendedFallbackSize = 20

// Catalog is the part of the catalog store the scraper feeds and reads.
type Catalog interface {
	UpsertMany(entries []domain.CatalogEntry) int
	ListAllSortedByTitle() []domain.CatalogEntry
	Top(n int) []domain.CatalogEntry
}

// Service exposes the site as records. Failures are logged and reported as
// an empty result, never as an error.
type Service interface {
	GetLatest(ctx context.Context) []domain.ListItem
	GetRecommended(ctx context.Context) []domain.ListItem
	GetMovies(ctx context.Context) []domain.ListItem
	SearchAnime(ctx context.Context, query string) []domain.ListItem
	GetDetail(ctx context.Context, animeURL string) *domain.AnimeDetail
	GetVideo(ctx context.Context, episodeURL string) *domain.VideoInfo
	GetAllAnimeAZ(ctx context.Context) []domain.CatalogEntry
	GetGenreList(ctx context.Context) []domain.GenreRef
	GetAnimeByGenre(ctx context.Context, slug string, page int) domain.GenrePage
}

type service struct {
	log     zerolog.Logger
	origin  string
	fetcher fetch.Fetcher
	parser  *extract.Parser
	catalog Catalog
}

func NewService(log zerolog.Logger, origin string, fetcher fetch.Fetcher, parser *extract.Parser, catalog Catalog) Service {
	l := log.With().Str("module", "scraper").Logger()

	if parser.OnDecodeError == nil {
		parser.OnDecodeError = func(e *extract.DecodeError) {
			l.Debug().Err(e.Err).Str("resolution", e.Resolution).Msg("skipping mirror with undecodable payload")
		}
	}

	return &service{
		log:     l,
		origin:  strings.TrimRight(origin, "/"),
		fetcher: fetcher,
		parser:  parser,
		catalog: catalog,
	}
}

func (s *service) GetLatest(ctx context.Context) []domain.ListItem {
	items, err := s.list(ctx, "/", s.parser.Latest)
	if err != nil {
		s.failed(err).Msg("GetLatest")
		return []domain.ListItem{}
	}
	return items
}

// GetRecommended reads the recommendation page. An empty page falls back to
// the head of the catalog, then to the latest releases; a failed fetch goes
// straight to the latest releases.
func (s *service) GetRecommended(ctx context.Context) []domain.ListItem {
	items, err := s.list(ctx, "/rekomendasi/", s.parser.Recommended)
	if err != nil {
		s.failed(err).Msg("GetRecommended")
		return s.GetLatest(ctx)
	}
	if len(items) > 0 {
		return items
	}

	if top := s.catalog.Top(recommendedFallbackSize); len(top) > 0 {
		s.log.Debug().Int("count", len(top)).Msg("recommendation page empty, using catalog")
		return domain.ListItems(top)
	}

	s.log.Debug().Msg("recommendation page and catalog empty, using latest")
	return s.GetLatest(ctx)
}

func (s *service) GetMovies(ctx context.Context) []domain.ListItem {
	items, err := s.list(ctx, "/category/movie/", s.parser.Movies)
	if err != nil {
		s.failed(err).Msg("GetMovies")
		return []domain.ListItem{}
	}
	return items
}

func (s *service) SearchAnime(ctx context.Context, query string) []domain.ListItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ListItem{}
	}

	path := fmt.Sprintf("/?s=%s&post_type=anime", url.QueryEscape(query))
	items, err := s.list(ctx, path, s.parser.Search)
	if err != nil {
		s.failed(err).Str("query", query).Msg("SearchAnime")
		return []domain.ListItem{}
	}
	return items
}

// list fetches origin+path, parses it and feeds the result to the catalog.
func (s *service) list(ctx context.Context, path string, parse func(string) ([]domain.ListItem, error)) ([]domain.ListItem, error) {
	html, err := s.fetcher.FetchPage(ctx, s.origin+path)
	if err != nil {
		return nil, err
	}

	items, err := parse(html)
	if err != nil {
		return nil, err
	}

	s.catalog.UpsertMany(domain.CatalogEntries(items))
	return items, nil
}

func (s *service) GetDetail(ctx context.Context, animeURL string) *domain.AnimeDetail {
	u := s.resolve(animeURL)
	if u == "" {
		return nil
	}

	html, err := s.fetcher.FetchPage(ctx, u)
	if err != nil {
		s.failed(err).Str("url", u).Msg("GetDetail")
		return nil
	}

	detail, err := s.parser.Detail(html)
	if err != nil {
		s.failed(err).Str("url", u).Msg("GetDetail")
		return nil
	}
	if detail == nil {
		s.log.Debug().Str("url", u).Msg("not a detail page")
	}
	return detail
}

func (s *service) GetVideo(ctx context.Context, episodeURL string) *domain.VideoInfo {
	u := s.resolve(episodeURL)
	if u == "" {
		return nil
	}

	html, err := s.fetcher.FetchPage(ctx, u)
	if err != nil {
		s.failed(err).Str("url", u).Msg("GetVideo")
		return nil
	}

	video, err := s.parser.Video(html)
	if err != nil {
		s.failed(err).Str("url", u).Msg("GetVideo")
		return nil
	}
	return video
}

func (s *service) GetAllAnimeAZ(ctx context.Context) []domain.CatalogEntry {
	return s.catalog.ListAllSortedByTitle()
}

func (s *service) GetGenreList(ctx context.Context) []domain.GenreRef {
	html, err := s.fetcher.FetchPage(ctx, s.origin+"/genre-list/")
	if err != nil {
		s.failed(err).Msg("GetGenreList")
		return []domain.GenreRef{}
	}

	genres, err := s.parser.GenreList(html)
	if err != nil {
		s.failed(err).Msg("GetGenreList")
		return []domain.GenreRef{}
	}
	return genres
}

func (s *service) GetAnimeByGenre(ctx context.Context, slug string, page int) domain.GenrePage {
	if page < 1 {
		page = 1
	}
	empty := domain.GenrePage{Items: []domain.GenreItem{}, CurrentPage: page, TotalPages: 1}

	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return empty
	}

	u := fmt.Sprintf("%s/genres/%s/", s.origin, url.PathEscape(slug))
	if page > 1 {
		u = fmt.Sprintf("%s/genres/%s/page/%d/", s.origin, url.PathEscape(slug), page)
	}

	html, err := s.fetcher.FetchPage(ctx, u)
	if err != nil {
		s.failed(err).Str("genre", slug).Int("page", page).Msg("GetAnimeByGenre")
		return empty
	}

	result, err := s.parser.GenreFiltered(html)
	if err != nil {
		s.failed(err).Str("genre", slug).Int("page", page).Msg("GetAnimeByGenre")
		return empty
	}
	result.CurrentPage = page

	s.catalog.UpsertMany(result.CatalogEntries())
	return result
}

// failed starts the log event for err. A page the site reports missing is a
// warning; other failures are errors. The HTTP status is attached when known.
func (s *service) failed(err error) *zerolog.Event {
	status := fetch.StatusOf(err)

	ev := s.log.Error()
	if status == http.StatusNotFound {
		ev = s.log.Warn()
	}
	if status != 0 {
		ev = ev.Int("status", status)
	}
	return ev.Err(err)
}

// resolve accepts an absolute URL or a path on the site.
func (s *service) resolve(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	return domain.AbsURL(s.origin, u)
}
