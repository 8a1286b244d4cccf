// Package content discovers article files, parses their front matter and
// assigns stable unique slugs.
package content

import (
	"strings"
	"time"
)

// Article is one content unit of the site. Constructed once per build from a
// directory scan and immutable afterward.
type Article struct {
	Slug        string
	Title       string
	Description string
	Date        string // publication date as written in front matter
	Modified    string
	Author      string
	AuthorLink  string
	Img         string // logical image path, resolved through the asset map
	Content     string // HTML fragment
	Sources     string // HTML fragment
	Category    string
	Linking     []string // explicit related slugs, in priority order
	IsTopLevel  bool     // lives at the site root instead of the articles base
	Link        string   // external pointer; set means no local page is rendered
	FilePath    string

	published time.Time
}

// External reports whether the article points at an external URL instead of a
// locally rendered page.
func (a *Article) External() bool { return a.Link != "" }

// PublishedAt returns the parsed publication date, zero when unparsable.
func (a *Article) PublishedAt() time.Time { return a.published }

// Href returns the site-relative (or external) URL for the article.
func (a *Article) Href(base string) string {
	if a.Link != "" {
		return a.Link
	}
	if a.IsTopLevel || base == "/" || base == "" {
		return "/" + a.Slug
	}
	return base + "/" + a.Slug
}

// AbsoluteURL returns the canonical absolute URL for the article.
func (a *Article) AbsoluteURL(origin, base string) string {
	if a.Link != "" {
		return a.Link
	}
	if a.IsTopLevel {
		return origin + "/" + a.Slug
	}
	return origin + base + "/" + a.Slug
}

// ParseDate parses the date formats accepted in front matter. The zero time
// is returned for anything unparsable.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
