// Package assets walks the static asset and image directories, producing a
// content-addressed mapping from logical paths to hashed output paths.
// Unchanged inputs with an existing output are skipped entirely.
package assets

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
	"golang.org/x/sync/errgroup"

	"github.com/vctrpage/vctr/internal/hashstore"
)

const (
	endpointToken  = "__ENDPOINT__"
	widgetKeyToken = "__WIDGET_KEY__"
)

// verbatim extensions are copied under their stable names so SEO files keep
// predictable URLs.
var verbatimExts = map[string]bool{".html": true, ".txt": true, ".xml": true}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Map relates a logical relative path (e.g. css/main.css) to the output
// relative path embedding a content hash. Built once per build and consumed
// read-only by every renderer.
type Map map[string]string

// Pipeline processes the images and generic asset trees into the dist
// directory.
type Pipeline struct {
	ImagesDir string
	AssetsDir string
	DistDir   string

	Prod      bool
	Endpoint  string // substituted for __ENDPOINT__ in scripts
	WidgetKey string // substituted for __WIDGET_KEY__ in scripts
	MaxWidth  int
	Quality   int

	Logger *slog.Logger

	jsMinifier *minify.M
}

// NewPipeline builds a pipeline with the shared JS minifier configured.
func NewPipeline(imagesDir, assetsDir, distDir string) *Pipeline {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)
	return &Pipeline{
		ImagesDir:  imagesDir,
		AssetsDir:  assetsDir,
		DistDir:    distDir,
		MaxWidth:   900,
		Quality:    100,
		Logger:     slog.Default(),
		jsMinifier: m,
	}
}

// Process runs both branches concurrently per file and returns the asset map.
// The hash store is updated in place; persisting it is the caller's job.
// Per-file transform failures degrade to copy-through and never abort the
// build; only filesystem-level failures are returned.
func (p *Pipeline) Process(ctx context.Context, store *hashstore.Store) (Map, error) {
	assetMap := Map{}
	var mu sync.Mutex

	record := func(logical, hashed string) {
		mu.Lock()
		assetMap[logical] = hashed
		mu.Unlock()
	}

	if err := p.processImages(ctx, store, record); err != nil {
		return nil, err
	}
	if err := p.processGeneric(ctx, store, record); err != nil {
		return nil, err
	}
	return assetMap, nil
}

func (p *Pipeline) processGeneric(ctx context.Context, store *hashstore.Store, record func(string, string)) error {
	if _, err := os.Stat(p.AssetsDir); err != nil {
		p.Logger.Warn("No assets folder, skipping", "path", p.AssetsDir)
		return nil
	}

	var files []string
	err := filepath.WalkDir(p.AssetsDir, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if skipName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk assets directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, abs := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.processFile(abs, store, record)
		})
	}
	return g.Wait()
}

func (p *Pipeline) processFile(abs string, store *hashstore.Store, record func(string, string)) error {
	rel, err := filepath.Rel(p.AssetsDir, abs)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)
	ext := strings.ToLower(path.Ext(rel))

	destDir := filepath.Join(p.DistDir, filepath.FromSlash(path.Dir(rel)))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Stable-name files are referenced by fixed URLs; no hashing.
	if verbatimExts[ext] {
		if err := copyFile(abs, filepath.Join(p.DistDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
		record(rel, rel)
		return nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read asset: %w", err)
	}

	newHash := hashstore.HashBytes(data)
	prevHash, _ := store.Get(rel)

	base := strings.TrimSuffix(path.Base(rel), ext)
	hashedRel := path.Join(path.Dir(rel), base+"."+newHash+ext)
	hashedAbs := filepath.Join(p.DistDir, filepath.FromSlash(hashedRel))

	store.Set(rel, newHash)

	// Unchanged content with the output already on disk: reuse.
	if prevHash == newHash && fileExists(hashedAbs) {
		record(rel, hashedRel)
		return nil
	}

	if ext == ".js" {
		if err := p.writeScript(rel, abs, data, hashedAbs); err != nil {
			return fmt.Errorf("failed to write script: %w", err)
		}
		record(rel, hashedRel)
		return nil
	}

	if err := os.WriteFile(hashedAbs, data, 0o644); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	record(rel, hashedRel)
	return nil
}

// writeScript substitutes build-time tokens and, in production, minifies.
// A minify failure degrades to copying the original source; write failures
// propagate so the asset map never points at a missing file.
func (p *Pipeline) writeScript(rel, abs string, data []byte, hashedAbs string) error {
	code := strings.ReplaceAll(string(data), endpointToken, strconv.Quote(p.Endpoint))
	if p.WidgetKey != "" {
		code = strings.ReplaceAll(code, widgetKeyToken, strconv.Quote(p.WidgetKey))
	}

	if !p.Prod {
		return os.WriteFile(hashedAbs, []byte(code), 0o644)
	}

	minified, err := p.jsMinifier.String("application/javascript", code)
	if err != nil || minified == "" {
		p.Logger.Warn("Minify failed, copying original script", "asset", rel, "error", err)
		return copyFile(abs, hashedAbs)
	}
	return os.WriteFile(hashedAbs, []byte(minified), 0o644)
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || name == "Thumbs.db" || name == "desktop.ini"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
