// Package site renders pages: it injects head metadata, JSON-LD and content
// into the HTML shell and rewrites asset references to their hashed paths.
package site

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"

	"github.com/vctrpage/vctr/internal/assets"
	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/content"
	"github.com/vctrpage/vctr/internal/hashstore"
)

// Template markers in the HTML shell.
const (
	headDynamicMarker = "<!-- HEAD_DYNAMIC -->"
	headStartMarker   = "<!-- HEAD_START -->"
	headEndMarker     = "<!-- HEAD_END -->"
	contentMarker     = "<!-- CONTENT -->"
)

var (
	headBlockRe = regexp.MustCompile(`(?is)<!-- HEAD_START -->.*?<!-- HEAD_END -->`)
	headCloseRe = regexp.MustCompile(`(?i)</head>`)
	navCloseRe  = regexp.MustCompile(`(?i)</nav>\s*</div>`)
	footerRe    = regexp.MustCompile(`(?i)</div>\s*<footer>`)
	rssLinkRe   = regexp.MustCompile(`(?i)<link[^>]+type="application/rss\+xml"[^>]*>`)
)

// Renderer holds everything a build needs to produce page HTML. It replaces
// the module-level template cache of earlier revisions: constructed fresh per
// build, immutable afterwards, safe to share across render goroutines.
type Renderer struct {
	Site config.SiteConfig
	UI   config.UIConfig

	Prod             bool
	Template         string // raw shell, loaded once per build
	TemplateHash     string
	Assets           assets.Map
	TurnstileSiteKey string

	Logger  *slog.Logger
	htmlMin *minify.M
}

// NewRenderer loads the shell template from templatesDir and prepares the
// HTML minifier.
func NewRenderer(site config.SiteConfig, ui config.UIConfig, templatesDir string, assetMap assets.Map, prod bool) (*Renderer, error) {
	raw, err := os.ReadFile(filepath.Join(templatesDir, "template.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})

	return &Renderer{
		Site:         site,
		UI:           ui,
		Prod:         prod,
		Template:     string(raw),
		TemplateHash: hashstore.HashBytes(raw),
		Assets:       assetMap,
		Logger:       slog.Default(),
		htmlMin:      m,
	}, nil
}

// BaseDocument returns the shell with the default head block, an optional
// JSON-LD script and all asset references rewritten to hashed paths.
func (r *Renderer) BaseDocument(jsonLD string) string {
	defaultHead := r.BuildMeta(MetaParams{
		Title:       r.Site.Title,
		Description: r.Site.Description,
		Canonical:   r.Site.Origin + "/",
		OGImage:     r.Site.OGImage,
		Type:        "website",
	})

	out := strings.Replace(r.Template, headDynamicMarker,
		headStartMarker+"\n"+defaultHead+"\n"+headEndMarker, 1)

	if jsonLD != "" {
		out = headCloseRe.ReplaceAllString(out,
			`<script type="application/ld+json">`+jsonLD+`</script></head>`)
	}

	return r.RewriteAssetRefs(out)
}

// RewriteAssetRefs substitutes every logical asset path in the document with
// its hashed output path. Plain string/regex substitution over serialized
// HTML, matching keys longest-first so nested paths never clobber prefixes.
func (r *Renderer) RewriteAssetRefs(doc string) string {
	keys := make([]string, 0, len(r.Assets))
	for k := range r.Assets {
		if k != r.Assets[k] { // identity entries need no rewriting
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, orig := range keys {
		re := regexp.MustCompile(`/?` + regexp.QuoteMeta(orig))
		doc = re.ReplaceAllString(doc, "/"+r.Assets[orig])
	}
	return doc
}

// InjectContent places html at the content marker; without a marker it goes
// after the nav close, or failing that before the footer.
func (r *Renderer) InjectContent(doc, html string) string {
	if strings.Contains(doc, contentMarker) {
		return strings.Replace(doc, contentMarker, html, 1)
	}
	if navCloseRe.MatchString(doc) {
		return navCloseRe.ReplaceAllString(doc, "</nav>"+html+"</div>")
	}
	return footerRe.ReplaceAllString(doc, html+"</div><footer>")
}

// InjectRSSLink adds (or replaces) the RSS alternate link in the head.
func (r *Renderer) InjectRSSLink(doc string) string {
	title := r.Site.Title
	if title == "" {
		title = "RSS"
	}
	link := fmt.Sprintf(`<link rel="alternate" type="application/rss+xml" title="%s" href="%s/rss.xml">`,
		title, r.Site.Origin)

	if rssLinkRe.MatchString(doc) {
		return rssLinkRe.ReplaceAllString(doc, link)
	}
	return strings.Replace(doc, "</head>", link+"</head>", 1)
}

// SwapHead replaces the wrapped head block with a freshly built one. Falls
// back to the dynamic marker, then to inserting before </head>.
func (r *Renderer) SwapHead(doc, head string) string {
	block := headStartMarker + "\n" + head + "\n" + headEndMarker
	if headBlockRe.MatchString(doc) {
		return headBlockRe.ReplaceAllString(doc, block)
	}
	if strings.Contains(doc, headDynamicMarker) {
		return strings.Replace(doc, headDynamicMarker, block, 1)
	}
	return headCloseRe.ReplaceAllString(doc, block+"</head>")
}

// Finalize minifies the document in production builds. A minifier failure
// falls back to the unminified document.
func (r *Renderer) Finalize(doc string) string {
	if !r.Prod {
		return doc
	}
	out, err := r.htmlMin.String("text/html", doc)
	if err != nil {
		r.Logger.Warn("HTML minify failed, writing unminified output", "error", err)
		return doc
	}
	return out
}

var attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;")

// escAttr escapes a value for use inside a double-quoted HTML attribute.
func escAttr(s string) string { return attrEscaper.Replace(s) }

var spanishMonths = [...]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// formatDate renders an ISO date in the short es-ES form used across the
// site, e.g. "2 ene 2025". Unparsable input passes through untouched.
func formatDate(iso string) string {
	t := content.ParseDate(iso)
	if t.IsZero() {
		return iso
	}
	return fmt.Sprintf("%d %s %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}
