// Package deliver sends a newsletter issue for the latest article to the
// confirmed subscribers, and optionally announces it on X. It is an
// operator-run tool with interactive confirmation before anything goes out.
package deliver

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/vctrpage/vctr/internal/content"
	"github.com/vctrpage/vctr/internal/hashstore"
)

var (
	yearDirRe  = regexp.MustCompile(`^\d{4}$`)
	monthDirRe = regexp.MustCompile(`^\d{2}$`)
)

// Issue is the resolved content of one newsletter sending.
type Issue struct {
	Article        *content.Article
	URL            string
	Subject        string
	FirstParagraph string
	ImageURL       string
	External       bool
}

// findLatestMonthDir walks articles/<year>/<month> and returns the
// lexicographically last populated month directory.
func findLatestMonthDir(root string) (string, error) {
	years, err := subdirsMatching(root, yearDirRe)
	if err != nil {
		return "", err
	}
	if len(years) == 0 {
		return "", fmt.Errorf("no year directories found in %s", root)
	}

	yearPath := filepath.Join(root, years[len(years)-1])
	months, err := subdirsMatching(yearPath, monthDirRe)
	if err != nil {
		return "", err
	}
	if len(months) == 0 {
		return "", fmt.Errorf("no month directories found in %s", yearPath)
	}

	return filepath.Join(yearPath, months[len(months)-1]), nil
}

func subdirsMatching(dir string, re *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && re.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LatestIssue locates the newest article under the articles tree and builds
// the issue for it.
func (d *Deliverer) LatestIssue() (*Issue, error) {
	monthDir, err := findLatestMonthDir(d.Config.Paths.Articles)
	if err != nil {
		return nil, err
	}

	articles, err := content.Load(monthDir, d.logger())
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles found in %s", monthDir)
	}

	latest := articles[0]
	return &Issue{
		Article:        latest,
		URL:            d.articleURL(latest),
		Subject:        latest.Title,
		FirstParagraph: FirstParagraph(latest.Content),
		ImageURL:       d.issueImageURL(latest.Img),
		External:       latest.External(),
	}, nil
}

// articleURL builds the public URL for an issue's article. Articles are
// loaded straight from their month directory here, so the path-based
// top-level detection from full builds does not apply.
func (d *Deliverer) articleURL(a *content.Article) string {
	if a.External() {
		return a.Link
	}
	base := strings.TrimRight(d.Config.Site.Origin, "/") + d.Config.Site.ArticlesBase
	return base + "/" + strings.TrimPrefix(a.Slug, "/")
}

// issueImageURL resolves the article image through the build's hash store to
// the CDN-resized webp variant. An unresolvable image yields an empty URL and
// the email simply carries no picture.
func (d *Deliverer) issueImageURL(img string) string {
	if img == "" {
		return ""
	}

	store, err := hashstore.Load(d.Config.Paths.HashFile)
	if err != nil {
		d.logger().Warn("could not load hash store for issue image", "error", err)
		return ""
	}

	clean := strings.TrimPrefix(img, "/")
	hash, ok := store.Get(clean)
	if !ok {
		return ""
	}

	ext := path.Ext(clean)
	base := strings.TrimSuffix(path.Base(clean), ext)
	hashed := path.Join(path.Dir(clean), base+"."+hash+".webp")

	return fmt.Sprintf("%s/cdn-cgi/image/width=500,quality=auto,format=auto/%s", d.Config.Site.Origin, hashed)
}

func (d *Deliverer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
