// Package seo writes the crawl artifacts of a build: robots.txt,
// sitemap.xml, rss.xml and the CDN header file.
package seo

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/gorilla/feeds"
	"github.com/snabb/sitemap"

	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/content"
)

// Writer emits the SEO artifacts into the output directory.
type Writer struct {
	Site        config.SiteConfig
	Dist        string
	ErrorTitles []string // error pages excluded from the sitemap
	Logger      *slog.Logger

	// Now supplies the feed build time; tests pin it.
	Now func() time.Time
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// WriteRobots emits an allow-all robots.txt with the sitemap pointer.
func (w *Writer) WriteRobots() error {
	robots := fmt.Sprintf("User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\n", w.Site.Origin)
	if err := os.WriteFile(filepath.Join(w.Dist, "robots.txt"), []byte(robots), 0o644); err != nil {
		return fmt.Errorf("failed to write robots.txt: %w", err)
	}
	return nil
}

// lastMod returns the article's modified date, falling back to the
// publication date.
func lastMod(a *content.Article) time.Time {
	if a.Modified != "" {
		if t := content.ParseDate(a.Modified); !t.IsZero() {
			return t
		}
	}
	return a.PublishedAt()
}

// newestOf returns the most recent modified-or-published date in the slice,
// zero when empty.
func newestOf(articles []*content.Article) time.Time {
	var newest time.Time
	for _, a := range articles {
		if t := lastMod(a); t.After(newest) {
			newest = t
		}
	}
	return newest
}

// WriteSitemap emits sitemap.xml: the homepage and each paginated page dated
// by the newest article they show, plus every locally rendered article.
// Externally linked articles and error pages are excluded.
func (w *Writer) WriteSitemap(articles, latest []*content.Article, pages [][]*content.Article) error {
	sm := sitemap.New()

	addURL := func(loc string, mod time.Time) {
		u := &sitemap.URL{Loc: loc}
		if !mod.IsZero() {
			u.LastMod = &mod
		}
		sm.Add(u)
	}

	addURL(w.Site.Origin+"/", newestOf(latest))
	for i, page := range pages {
		addURL(fmt.Sprintf("%s/page/%d", w.Site.Origin, i+2), newestOf(page))
	}
	for _, a := range articles {
		if a.External() || slices.Contains(w.ErrorTitles, a.Title) {
			continue
		}
		addURL(a.AbsoluteURL(w.Site.Origin, w.Site.ArticlesBase), lastMod(a))
	}

	f, err := os.Create(filepath.Join(w.Dist, "sitemap.xml"))
	if err != nil {
		return fmt.Errorf("failed to create sitemap.xml: %w", err)
	}
	defer f.Close()

	if _, err := sm.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write sitemap.xml: %w", err)
	}
	return nil
}

// WriteRSS emits rss.xml with the limit most recent non-external,
// non-top-level articles.
func (w *Writer) WriteRSS(articles []*content.Article, limit int) error {
	feed := &feeds.Feed{
		Title:       w.Site.Title,
		Link:        &feeds.Link{Href: w.Site.Origin + "/"},
		Description: w.Site.Description,
		Created:     w.now(),
	}

	count := 0
	for _, a := range articles {
		if a.External() || a.IsTopLevel {
			continue
		}
		url := a.AbsoluteURL(w.Site.Origin, w.Site.ArticlesBase)
		item := &feeds.Item{
			Title:   a.Title,
			Link:    &feeds.Link{Href: url},
			Id:      url,
			Created: a.PublishedAt(),
		}
		if a.Author != "" {
			item.Author = &feeds.Author{Name: a.Author}
		}
		feed.Items = append(feed.Items, item)

		count++
		if count == limit {
			break
		}
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fmt.Errorf("failed to build rss feed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dist, "rss.xml"), []byte(rss), 0o644); err != nil {
		return fmt.Errorf("failed to write rss.xml: %w", err)
	}

	if w.Logger != nil {
		w.Logger.Info("RSS feed written", "articles", count)
	}
	return nil
}
