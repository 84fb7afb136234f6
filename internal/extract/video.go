package extract

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/varoOP/vinime/internal/domain"
)

var (
	resolutionToken = regexp.MustCompile(`(?i)(\d{3,4})p\b`)
	mirrorClass     = regexp.MustCompile(`(?i)\bm(\d{3,4})p\b`)
)

// Video parses an episode page. Direct download links are preferred; the
// embedded mirror blocks are read only when there are none.
func (p *Parser) Video(html string) (*domain.VideoInfo, error) {
	var streams []domain.StreamEntry

	err := p.load("video", html, func(doc *goquery.Document) error {
		streams = p.directStreams(doc)
		if len(streams) == 0 {
			streams = p.mirrorStreams(doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return domain.NewVideoInfo(streams), nil
}

func (p *Parser) directStreams(doc *goquery.Document) []domain.StreamEntry {
	var streams []domain.StreamEntry

	doc.Find(".download ul li").Each(func(_ int, li *goquery.Selection) {
		m := resolutionToken.FindStringSubmatch(li.Find("strong").First().Text())
		if m == nil {
			return
		}
		resolution := strings.ToLower(m[1]) + "p"

		li.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			href := strings.TrimSpace(a.AttrOr("href", ""))
			if !isAbsolute(href) {
				return
			}
			streams = append(streams, domain.StreamEntry{
				Resolution:    resolution,
				DirectLink:    href,
				ProviderLabel: domain.CleanText(a.Text()),
			})
		})
	})

	return streams
}

func (p *Parser) mirrorStreams(doc *goquery.Document) []domain.StreamEntry {
	var streams []domain.StreamEntry

	doc.Find(".mirrorstream ul").Each(func(_ int, ul *goquery.Selection) {
		// a block without a resolution class cannot be offered by quality
		m := mirrorClass.FindStringSubmatch(ul.AttrOr("class", ""))
		if m == nil {
			return
		}
		resolution := m[1] + "p"

		ul.Find("li a[data-content]").Each(func(_ int, a *goquery.Selection) {
			payload, err := decodeMirror(a.AttrOr("data-content", ""))
			if err != nil {
				if p.OnDecodeError != nil {
					p.OnDecodeError(&DecodeError{Resolution: resolution, Err: err})
				}
				return
			}
			streams = append(streams, domain.StreamEntry{
				Resolution:       resolution,
				ProviderLabel:    domain.CleanText(a.Text()),
				IsEmbeddedMirror: true,
				EmbedPayload:     payload,
			})
		})
	})

	return streams
}

// decodeMirror turns a data-content attribute (base64 of a JSON object) into
// the object.
func decodeMirror(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty payload")
	}

	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "=")); err != nil {
			return nil, errors.Wrap(err, "invalid base64")
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, errors.Wrap(err, "invalid json")
	}
	if payload == nil {
		return nil, errors.New("payload is not an object")
	}
	return payload, nil
}

func isAbsolute(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
