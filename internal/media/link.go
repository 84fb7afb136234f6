package media

import (
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/varoOP/vinime/internal/domain"
)

// PreferredResolutions is the order streams are tried in when picking one to
// upload.
var PreferredResolutions = []string{"720p", "480p", "360p", "1080p"}

// hosts whose links lead to an interstitial page rather than the file
var unsupportedHosts = []string{"mega.nz", "gofile.io", "acefile.co", "krakenfiles.com"}

// ResolveDirectLink turns a provider link into something that can be fetched
// as the file itself. It returns "" when the provider has no such link.
func ResolveDirectLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range unsupportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return ""
		}
	}

	if host == "pixeldrain.com" || strings.HasSuffix(host, ".pixeldrain.com") {
		if id, ok := strings.CutPrefix(u.Path, "/u/"); ok && id != "" {
			u.Path = "/api/file/" + strings.Trim(id, "/")
			u.RawQuery = ""
			return u.String()
		}
	}

	lower := strings.ToLower(u.Path)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		return ""
	}

	return u.String()
}

// Pick is a stream chosen for upload together with its resolved link
type Pick struct {
	Stream domain.StreamEntry
	Link   string
}

// PickStream walks the preferred resolutions, then any remaining ones, and
// returns the first direct stream whose link resolves.
func PickStream(video *domain.VideoInfo) (Pick, bool) {
	if video == nil {
		return Pick{}, false
	}

	order := append([]string{}, PreferredResolutions...)
	for _, r := range video.AvailableResolutions {
		if !contains(order, r) {
			order = append(order, r)
		}
	}

	for _, r := range order {
		for _, s := range video.StreamsFor(r) {
			if link := ResolveDirectLink(s.DirectLink); link != "" {
				return Pick{Stream: s, Link: link}, true
			}
		}
	}
	return Pick{}, false
}

// DownloadLinks returns up to max direct streams in page order, for when
// nothing can be uploaded.
func DownloadLinks(video *domain.VideoInfo, max int) []domain.StreamEntry {
	links := []domain.StreamEntry{}
	if video == nil {
		return links
	}
	for _, s := range video.Streams {
		if len(links) == max {
			break
		}
		if !s.IsEmbeddedMirror && s.DirectLink != "" {
			links = append(links, s)
		}
	}
	return links
}

// FormatSize renders n bytes for captions; unknown sizes render as "?".
func FormatSize(n int64) string {
	if n <= 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

// MB converts megabytes to bytes.
func MB(n int64) int64 {
	return n * 1024 * 1024
}

// SafeFileName keeps letters, digits, dot, underscore and dash.
func SafeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
