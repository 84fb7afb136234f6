package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/varoOP/vinime/internal/domain"
)

var genreSlug = regexp.MustCompile(`/genres/([^/?#]+)`)

const (
	genreListSelector     = "ul.genres li a, .genres_wrap li a, .lx li a, .genre-list li a"
	genreFallbackSelector = `a[href*="/genres/"]`
)

// GenreList parses the genre index, deduplicated by slug and sorted by name.
func (p *Parser) GenreList(html string) ([]domain.GenreRef, error) {
	var genres []domain.GenreRef

	err := p.load("genre list", html, func(doc *goquery.Document) error {
		genres = genreRefs(doc.Find(genreListSelector))
		if len(genres) == 0 {
			genres = genreRefs(doc.Find(genreFallbackSelector))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	col := collate.New(language.Indonesian, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(genres, func(i, j int) bool {
		return col.CompareString(genres[i].Name, genres[j].Name) < 0
	})

	return genres, nil
}

func genreRefs(links *goquery.Selection) []domain.GenreRef {
	genres := []domain.GenreRef{}
	seen := make(map[string]struct{})

	links.Each(func(_ int, a *goquery.Selection) {
		m := genreSlug.FindStringSubmatch(a.AttrOr("href", ""))
		if m == nil {
			return
		}
		name := domain.CleanText(a.Text())
		if name == "" {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		genres = append(genres, domain.GenreRef{Name: name, Slug: m[1]})
	})

	return genres
}

// GenreFiltered parses one page of a genre listing. CurrentPage is left for
// the caller to fill in.
func (p *Parser) GenreFiltered(html string) (domain.GenrePage, error) {
	page := domain.GenrePage{Items: []domain.GenreItem{}, TotalPages: 1}

	err := p.load("genre", html, func(doc *goquery.Document) error {
		doc.Find(".col-anime-con").Each(func(_ int, s *goquery.Selection) {
			link := s.Find(".col-anime-title a").First()
			title := domain.CleanText(link.Text())
			url := p.abs(link.AttrOr("href", ""))
			if title == "" || url == "" {
				return
			}

			rating := domain.CleanText(s.Find(".col-anime-rating").First().Text())
			if rating == "" {
				rating = "-"
			}

			page.Items = append(page.Items, domain.GenreItem{
				Title:        title,
				URL:          url,
				CoverURL:     p.abs(imageSrc(s.Find(".col-anime-cover img, img").First())),
				Rating:       rating,
				EpisodeLabel: domain.CleanText(s.Find(".col-anime-eps").First().Text()),
			})
		})

		if len(page.Items) == 0 {
			for _, item := range p.listWith(doc.Selection, venzLayout) {
				page.Items = append(page.Items, domain.GenreItem{
					Title:        item.Title,
					URL:          item.URL,
					CoverURL:     item.CoverURL,
					Rating:       "-",
					EpisodeLabel: item.LastEpisodeLabel,
				})
			}
		}

		page.TotalPages = maxPageNumber(doc.Find(".pagenavix .page-numbers"))
		return nil
	})
	if err != nil {
		return domain.GenrePage{}, err
	}

	return page, nil
}

// maxPageNumber returns the largest numeric pager label, or 1 without a pager.
func maxPageNumber(numbers *goquery.Selection) int {
	highest := 1
	numbers.Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s.Text()), ".", ""))
		if err == nil && n > highest {
			highest = n
		}
	})
	return highest
}

// AnimeIndex parses the full A-Z anime list page.
func (p *Parser) AnimeIndex(html string) ([]domain.CatalogEntry, error) {
	var entries []domain.CatalogEntry

	err := p.load("anime list", html, func(doc *goquery.Document) error {
		entries = p.indexEntries(doc.Find(".daftarkartun .hodebgst"))
		if len(entries) == 0 {
			entries = p.indexEntries(doc.Find(`.daftarkartun a[href*="/anime/"]`))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *Parser) indexEntries(links *goquery.Selection) []domain.CatalogEntry {
	entries := []domain.CatalogEntry{}
	links.Each(func(_ int, a *goquery.Selection) {
		title := domain.CleanText(a.Text())
		url := p.abs(a.AttrOr("href", ""))
		if title != "" && url != "" {
			entries = append(entries, domain.CatalogEntry{Title: title, URL: url})
		}
	})
	return entries
}
