// Package build orchestrates a site build: assets, content, incremental
// page rendering and SEO artifacts.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vctrpage/vctr/internal/assets"
	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/content"
	"github.com/vctrpage/vctr/internal/hashstore"
	"github.com/vctrpage/vctr/internal/seo"
	"github.com/vctrpage/vctr/internal/site"
)

// Visible turnstile keys; the dev key always passes invisibly so local
// builds can submit the form.
const devTurnstileKey = "1x00000000000000000000BB"

// Builder runs one build. Construct a fresh one per invocation; it carries
// no state across builds beyond the persisted hash store.
type Builder struct {
	Config *config.Config
	Prod   bool
	Logger *slog.Logger
}

func New(cfg *config.Config, prod bool, logger *slog.Logger) *Builder {
	return &Builder{Config: cfg, Prod: prod, Logger: logger}
}

func (b *Builder) turnstileSiteKey() string {
	if b.Prod {
		return b.Config.Build.TurnstileSiteKey
	}
	if b.Config.Build.TurnstileSiteKeyDev != "" {
		return b.Config.Build.TurnstileSiteKeyDev
	}
	return devTurnstileKey
}

// Run executes a full (incremental) build.
func (b *Builder) Run(ctx context.Context) error {
	start := time.Now()
	cfg := b.Config
	b.Logger.Info("build started", "prod", b.Prod)

	// a production build starts from a clean output tree
	if b.Prod {
		if err := os.RemoveAll(cfg.Paths.Dist); err != nil {
			return fmt.Errorf("failed to clean dist directory: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.Paths.Dist, 0o755); err != nil {
		return fmt.Errorf("failed to create dist directory: %w", err)
	}

	store, err := hashstore.Load(cfg.Paths.HashFile)
	if err != nil {
		return err
	}

	pipeline := assets.NewPipeline(cfg.Paths.Images, cfg.Paths.Assets, cfg.Paths.Dist)
	pipeline.Prod = b.Prod
	pipeline.MaxWidth = cfg.Build.ImageMaxWidth
	pipeline.Quality = cfg.Build.ImageQuality
	pipeline.WidgetKey = cfg.Build.WidgetKey
	pipeline.Logger = b.Logger
	if b.Prod {
		pipeline.Endpoint = cfg.Site.Origin
	} else {
		pipeline.Endpoint = cfg.Site.Local
	}

	assetMap, err := pipeline.Process(ctx, store)
	if err != nil {
		return err
	}
	assetMapHash := AssetMapFingerprint(assetMap)

	articles, err := content.Load(cfg.Paths.Articles, b.Logger)
	if err != nil {
		return err
	}

	var listed []*content.Article
	for _, a := range articles {
		if !a.IsTopLevel {
			listed = append(listed, a)
		}
	}
	latest := listed
	if len(latest) > cfg.UI.ArticlesOnLanding {
		latest = listed[:cfg.UI.ArticlesOnLanding]
	}
	var remaining []*content.Article
	if len(listed) > cfg.UI.ArticlesOnLanding {
		remaining = listed[cfg.UI.ArticlesOnLanding:]
	}
	pages := site.Paginate(remaining, cfg.UI.ArticlesPerPage)

	renderer, err := site.NewRenderer(cfg.Site, cfg.UI, cfg.Paths.Templates, assetMap, b.Prod)
	if err != nil {
		return err
	}
	renderer.Logger = b.Logger
	renderer.TurnstileSiteKey = b.turnstileSiteKey()

	if err := b.renderUnits(ctx, renderer, store, assetMapHash, articles, latest, pages); err != nil {
		return err
	}

	if err := b.writeArtifacts(articles, latest, pages); err != nil {
		return err
	}

	if err := store.Save(); err != nil {
		return err
	}

	b.Logger.Info("build completed",
		"prod", b.Prod,
		"articles", len(articles),
		"pages", len(pages),
		"duration", time.Since(start).Round(10*time.Millisecond))
	return nil
}

// renderUnits renders every page unit whose fingerprint changed or whose
// output file is missing. Units are independent and render concurrently;
// each writes its own output file and store key.
func (b *Builder) renderUnits(ctx context.Context, renderer *site.Renderer, store *hashstore.Store,
	assetMapHash string, articles, latest []*content.Article, pages [][]*content.Article) error {

	cfg := b.Config
	g, _ := errgroup.WithContext(ctx)

	skipped := 0

	// landing page
	indexPath := filepath.Join(cfg.Paths.Dist, "index.html")
	indexFP := IndexFingerprint(latest, renderer.TemplateHash, assetMapHash)
	if prev, _ := store.Get(hashstore.IndexKey); prev != indexFP || !fileExists(indexPath) {
		store.Set(hashstore.IndexKey, indexFP)
		hasMore := len(pages) > 0
		g.Go(func() error {
			return writePage(indexPath, renderer.RenderIndex(latest, hasMore))
		})
	} else {
		skipped++
	}

	// paginated pages
	for i := range pages {
		pageNum := site.PageNumber(i)
		key := hashstore.PageKey(pageNum)
		outPath := filepath.Join(cfg.Paths.Dist, "page", fmt.Sprintf("%d.html", pageNum))

		fp := PageFingerprint(pages[i], pageNum, renderer.TemplateHash, assetMapHash)
		if prev, _ := store.Get(key); prev == fp && fileExists(outPath) {
			skipped++
			continue
		}
		store.Set(key, fp)

		g.Go(func() error {
			return writePage(outPath, renderer.RenderPage(pages, i))
		})
	}

	// article pages; meta-category articles never join the linking pool
	var pool []*content.Article
	for _, a := range articles {
		if a.Category != "meta" {
			pool = append(pool, a)
		}
	}

	articleDir := filepath.Join(cfg.Paths.Dist, strings.TrimPrefix(cfg.Site.ArticlesBase, "/"))
	if err := os.MkdirAll(articleDir, 0o755); err != nil {
		return fmt.Errorf("failed to create article directory: %w", err)
	}

	for _, a := range articles {
		if a.External() {
			continue // no local page to render
		}

		outPath := filepath.Join(articleDir, a.Slug+".html")
		if a.IsTopLevel {
			outPath = filepath.Join(cfg.Paths.Dist, a.Slug+".html")
		}

		key := hashstore.ArticleKey(a.Slug)
		fp := ArticleFingerprint(a, renderer.TemplateHash, assetMapHash)
		if prev, _ := store.Get(key); prev == fp && fileExists(outPath) {
			skipped++
			continue
		}
		store.Set(key, fp)

		g.Go(func() error {
			return writePage(outPath, renderer.RenderArticle(a, pool))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if skipped > 0 {
		b.Logger.Debug("unchanged page units skipped", "count", skipped)
	}
	return nil
}

// writeArtifacts emits the SEO files and copies the favicon.
func (b *Builder) writeArtifacts(articles, latest []*content.Article, pages [][]*content.Article) error {
	cfg := b.Config
	w := &seo.Writer{
		Site:        cfg.Site,
		Dist:        cfg.Paths.Dist,
		ErrorTitles: cfg.UI.ArticlesWithoutHeader,
		Logger:      b.Logger,
	}

	if err := w.WriteRobots(); err != nil {
		return err
	}
	if err := w.WriteSitemap(articles, latest, pages); err != nil {
		return err
	}
	if err := w.WriteRSS(articles, 12); err != nil {
		return err
	}
	if err := w.WriteCDNHeaders(); err != nil {
		return err
	}

	icoSrc := filepath.Join(cfg.Paths.Root, "favicon.ico")
	if fileExists(icoSrc) {
		if err := copyFile(icoSrc, filepath.Join(cfg.Paths.Dist, "favicon.ico")); err != nil {
			return fmt.Errorf("failed to copy favicon: %w", err)
		}
	} else {
		b.Logger.Warn("no favicon.ico found, skipping copy")
	}
	return nil
}

func writePage(path, html string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
