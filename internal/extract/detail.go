package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/varoOP/vinime/internal/domain"
)

var synopsisPrefix = regexp.MustCompile(`(?i)^\s*sinopsis\s*:?\s*`)

const episodePathMarker = "/episode/"

// Detail parses an anime page. It returns nil when the markup carries no
// title, info block or episodes, i.e. it is not a detail page at all.
func (p *Parser) Detail(html string) (*domain.AnimeDetail, error) {
	var detail *domain.AnimeDetail

	err := p.load("detail", html, func(doc *goquery.Document) error {
		info, genres := p.infoBlock(doc)
		episodes := p.episodes(doc)

		title := domain.CleanText(doc.Find(".jdlrx h1").First().Text())
		if title == "" {
			title = domain.CleanText(doc.Find("h1.entry-title").First().Text())
		}
		if title == "" {
			title = p.labels.Lookup(info, FieldTitle)
		}

		if title == "" && len(info) == 0 && len(episodes) == 0 {
			return nil
		}

		if len(genres) == 0 {
			genres = splitList(p.labels.Lookup(info, FieldGenre))
		}

		detail = &domain.AnimeDetail{
			Title:             title,
			Synopsis:          synopsis(doc),
			Rating:            p.labels.Lookup(info, FieldRating),
			Status:            p.labels.Lookup(info, FieldStatus),
			ReleaseDate:       p.labels.Lookup(info, FieldRelease),
			Type:              p.labels.Lookup(info, FieldType),
			Genres:            genres,
			Episodes:          episodes,
			CoverURL:          p.abs(detailCover(doc)),
			Studio:            p.labels.Lookup(info, FieldStudio),
			DurationLabel:     p.labels.Lookup(info, FieldDuration),
			TotalEpisodeLabel: p.labels.Lookup(info, FieldTotalEpisodes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// infoBlock reads the "Label: value" lines. Genre anchors are collected from
// the genre line when the template links them.
func (p *Parser) infoBlock(doc *goquery.Document) (map[string]string, []string) {
	info := make(map[string]string)
	genres := []string{}

	doc.Find(".infozingle p").Each(func(_ int, s *goquery.Selection) {
		text := domain.CleanText(s.Text())
		i := strings.Index(text, ":")
		if i <= 0 {
			return
		}

		key := strings.ToLower(strings.TrimSpace(text[:i]))
		value := strings.TrimSpace(text[i+1:])
		if _, seen := info[key]; !seen {
			info[key] = value
		}

		if p.labels.Has(FieldGenre, key) || strings.Contains(key, "genre") {
			s.Find("a").Each(func(_ int, a *goquery.Selection) {
				if g := domain.CleanText(a.Text()); g != "" {
					genres = append(genres, g)
				}
			})
		}
	})

	return info, genres
}

// episodes scans every episode list block and keeps only episode links; the
// batch and full-list blocks use the same markup.
func (p *Parser) episodes(doc *goquery.Document) []domain.EpisodeRef {
	episodes := []domain.EpisodeRef{}
	seen := make(map[string]struct{})

	doc.Find(".episodelist").Each(func(_ int, block *goquery.Selection) {
		block.Find("ul li a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if !strings.Contains(href, episodePathMarker) {
				return
			}
			label := domain.CleanText(a.Text())
			url := p.abs(href)
			if label == "" || url == "" {
				return
			}
			if _, dup := seen[url]; dup {
				return
			}
			seen[url] = struct{}{}
			episodes = append(episodes, domain.EpisodeRef{Label: label, URL: url})
		})
	})

	return episodes
}

func synopsis(doc *goquery.Document) string {
	var parts []string
	doc.Find(".sinopc").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.TrimSpace(synopsisPrefix.ReplaceAllString(strings.Join(parts, "\n"), ""))
}

func detailCover(doc *goquery.Document) string {
	for _, sel := range []string{".thumbpic img", ".venser img", "img.wp-post-image"} {
		if src := imageSrc(doc.Find(sel).First()); src != "" {
			return src
		}
	}
	return ""
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
