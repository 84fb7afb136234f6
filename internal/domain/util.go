package domain

import (
	"strings"
)

// AbsURL resolves href against the site origin. Absolute URLs are returned
// unchanged; everything else is treated as origin-relative.
func AbsURL(origin, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}

	origin = strings.TrimRight(origin, "/")
	if strings.HasPrefix(href, "/") {
		return origin + href
	}
	return origin + "/" + href
}

// RelPath strips origin from u, leaving a site path. URLs on other hosts are
// returned unchanged.
func RelPath(origin, u string) string {
	origin = strings.TrimRight(origin, "/")
	if origin != "" && strings.HasPrefix(u, origin+"/") {
		return strings.TrimPrefix(u, origin)
	}
	return u
}

// CleanText collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
