package domain

import (
	"sort"
	"strconv"
	"strings"
)

// ListItem is one anime as shown on a listing page
type ListItem struct {
	Title            string `json:"title"`
	LastEpisodeLabel string `json:"lastEpisode,omitempty"`
	URL              string `json:"url"`
	CoverURL         string `json:"cover,omitempty"`
}

// CatalogEntry returns the durable projection of the item.
func (i ListItem) CatalogEntry() CatalogEntry {
	return CatalogEntry{Title: i.Title, URL: i.URL, CoverURL: i.CoverURL}
}

// CatalogEntry is the deduplicated record kept in the catalog
type CatalogEntry struct {
	Title    string `json:"title" bson:"title"`
	URL      string `json:"url" bson:"url"`
	CoverURL string `json:"cover" bson:"cover"`
}

// ListItem converts a catalog entry back into a listing record.
func (e CatalogEntry) ListItem() ListItem {
	return ListItem{Title: e.Title, URL: e.URL, CoverURL: e.CoverURL}
}

func CatalogEntries(items []ListItem) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.CatalogEntry())
	}
	return entries
}

func ListItems(entries []CatalogEntry) []ListItem {
	items := make([]ListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entry.ListItem())
	}
	return items
}

type AnimeDetail struct {
	Title             string       `json:"title"`
	Synopsis          string       `json:"synopsis"`
	Rating            string       `json:"rating"`
	Status            string       `json:"status"`
	ReleaseDate       string       `json:"releaseDate"`
	Type              string       `json:"type"`
	Genres            []string     `json:"genres"`
	Episodes          []EpisodeRef `json:"episodes"`
	CoverURL          string       `json:"cover"`
	Studio            string       `json:"studio"`
	DurationLabel     string       `json:"duration"`
	TotalEpisodeLabel string       `json:"totalEpisodes"`
}

// EpisodeRef points at an episode page; video info is fetched on demand
type EpisodeRef struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// StreamEntry is one candidate source for an episode. Embedded mirrors carry
// the decoded payload instead of a direct link.
type StreamEntry struct {
	Resolution       string         `json:"resolution"`
	DirectLink       string         `json:"link,omitempty"`
	ProviderLabel    string         `json:"provider"`
	IsEmbeddedMirror bool           `json:"isEmbed"`
	EmbedPayload     map[string]any `json:"embed,omitempty"`
}

type VideoInfo struct {
	AvailableResolutions []string      `json:"resolutions"`
	Streams              []StreamEntry `json:"streams"`
}

// NewVideoInfo builds a VideoInfo whose resolution set is derived from streams.
func NewVideoInfo(streams []StreamEntry) *VideoInfo {
	if streams == nil {
		streams = []StreamEntry{}
	}
	return &VideoInfo{
		AvailableResolutions: Resolutions(streams),
		Streams:              streams,
	}
}

// Resolutions returns the distinct non-empty resolutions of streams, lowest first.
func Resolutions(streams []StreamEntry) []string {
	seen := make(map[string]struct{})
	res := []string{}
	for _, s := range streams {
		if s.Resolution == "" {
			continue
		}
		if _, ok := seen[s.Resolution]; ok {
			continue
		}
		seen[s.Resolution] = struct{}{}
		res = append(res, s.Resolution)
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, aok := resolutionHeight(res[i])
		b, bok := resolutionHeight(res[j])
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return res[i] < res[j]
	})

	return res
}

func resolutionHeight(r string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(r), "p"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// StreamsFor returns the direct (non-embedded) streams for a resolution.
func (v *VideoInfo) StreamsFor(resolution string) []StreamEntry {
	var out []StreamEntry
	for _, s := range v.Streams {
		if s.Resolution == resolution && !s.IsEmbeddedMirror {
			out = append(out, s)
		}
	}
	return out
}

type GenreRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// GenreItem is a listing record on a genre page
type GenreItem struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	CoverURL     string `json:"cover,omitempty"`
	Rating       string `json:"rating"`
	EpisodeLabel string `json:"episodes,omitempty"`
}

type GenrePage struct {
	Items       []GenreItem `json:"items"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
}

// CatalogEntries projects the page items for the catalog.
func (p GenrePage) CatalogEntries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(p.Items))
	for _, item := range p.Items {
		entries = append(entries, CatalogEntry{Title: item.Title, URL: item.URL, CoverURL: item.CoverURL})
	}
	return entries
}
