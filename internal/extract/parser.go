package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/varoOP/vinime/internal/domain"
)

// ParseError wraps anything that went wrong while reading a page template.
// Callers log it and treat the page as empty.
type ParseError struct {
	Page string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page: %v", e.Page, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeError is a single embedded mirror whose payload could not be decoded
type DecodeError struct {
	Resolution string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode mirror payload (%s): %v", e.Resolution, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Parser turns site markup into records. It is stateless apart from its
// configuration and safe for concurrent use.
type Parser struct {
	origin string
	labels Labels

	// OnDecodeError, when set, receives every skipped mirror payload.
	OnDecodeError func(*DecodeError)
}

func NewParser(origin string, labels Labels) *Parser {
	if labels == nil {
		labels = DefaultLabels()
	}
	return &Parser{
		origin: strings.TrimRight(origin, "/"),
		labels: labels,
	}
}

func (p *Parser) abs(href string) string {
	return domain.AbsURL(p.origin, href)
}

// load parses html and runs fn, converting a panic inside fn into a ParseError.
func (p *Parser) load(page, html string, fn func(doc *goquery.Document) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{Page: page, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &ParseError{Page: page, Err: err}
	}

	if err := fn(doc); err != nil {
		return &ParseError{Page: page, Err: err}
	}
	return nil
}

// listLayout describes one known markup for a list of anime cards.
type listLayout struct {
	item  string
	title string
	link  string
	cover string
	label func(s *goquery.Selection) string
}

var (
	venzLayout = listLayout{
		item:  ".venz ul li",
		title: ".jdlflm",
		link:  ".thumb a",
		cover: ".thumb img",
		label: textOf(".epz"),
	}
	detpostLayout = listLayout{
		item:  ".detpost",
		title: ".jdlflm",
		link:  "a",
		cover: "img",
		label: textOf(".epz"),
	}
	movieLayout = listLayout{
		item:  ".chivsrc li, .venser .col li",
		title: "h2 a",
		link:  "h2 a",
		cover: "img",
		label: textOf(".set"),
	}
	searchLayout = listLayout{
		item:  ".chivsrc li",
		title: "h2 a",
		link:  "h2 a",
		cover: "img",
		label: searchStatus,
	}
)

// Latest parses the home page's ongoing list.
func (p *Parser) Latest(html string) ([]domain.ListItem, error) {
	return p.list("latest", html, venzLayout, detpostLayout)
}

func (p *Parser) Recommended(html string) ([]domain.ListItem, error) {
	return p.list("recommended", html, venzLayout, detpostLayout)
}

func (p *Parser) Movies(html string) ([]domain.ListItem, error) {
	return p.list("movies", html, movieLayout, detpostLayout)
}

func (p *Parser) Search(html string) ([]domain.ListItem, error) {
	return p.list("search", html, searchLayout, venzLayout)
}

// list tries each layout in order and returns the first non-empty result.
func (p *Parser) list(page, html string, layouts ...listLayout) ([]domain.ListItem, error) {
	var items []domain.ListItem
	err := p.load(page, html, func(doc *goquery.Document) error {
		for _, layout := range layouts {
			items = p.listWith(doc.Selection, layout)
			if len(items) > 0 {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) listWith(root *goquery.Selection, layout listLayout) []domain.ListItem {
	items := []domain.ListItem{}
	root.Find(layout.item).Each(func(_ int, s *goquery.Selection) {
		title := domain.CleanText(s.Find(layout.title).First().Text())
		href, _ := s.Find(layout.link).First().Attr("href")
		url := p.abs(href)
		if title == "" || url == "" {
			return
		}

		item := domain.ListItem{
			Title:    title,
			URL:      url,
			CoverURL: p.abs(imageSrc(s.Find(layout.cover).First())),
		}
		if layout.label != nil {
			item.LastEpisodeLabel = layout.label(s)
		}
		items = append(items, item)
	})
	return items
}

func textOf(selector string) func(*goquery.Selection) string {
	return func(s *goquery.Selection) string {
		return domain.CleanText(s.Find(selector).First().Text())
	}
}

// searchStatus reads "Status : Ongoing" out of the result's .set lines.
func searchStatus(s *goquery.Selection) string {
	var status string
	s.Find(".set").EachWithBreak(func(_ int, set *goquery.Selection) bool {
		text := domain.CleanText(set.Text())
		if !strings.Contains(text, "Status") {
			return true
		}
		if i := strings.Index(text, ":"); i >= 0 {
			status = strings.TrimSpace(text[i+1:])
		} else {
			status = strings.TrimSpace(strings.TrimPrefix(text, "Status"))
		}
		return false
	})
	return status
}

// imageSrc prefers src and falls back to the lazy-load attribute.
func imageSrc(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
