package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/vctrpage/vctr/internal/hashstore"
)

// processImages handles the flat images directory: hash, skip when unchanged,
// otherwise resize and re-encode as WebP under a content-addressed name.
func (p *Pipeline) processImages(ctx context.Context, store *hashstore.Store, record func(string, string)) error {
	if p.ImagesDir == "" {
		return nil
	}
	if _, err := os.Stat(p.ImagesDir); err != nil {
		p.Logger.Warn("No images folder, skipping", "path", p.ImagesDir)
		return nil
	}

	destDir := filepath.Join(p.DistDir, "img")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create image output directory: %w", err)
	}

	entries, err := os.ReadDir(p.ImagesDir)
	if err != nil {
		return fmt.Errorf("failed to read images directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || skipName(entry.Name()) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !imageExts[ext] {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.processImage(entry.Name(), ext, destDir, store, record)
		})
	}
	return g.Wait()
}

func (p *Pipeline) processImage(name, ext, destDir string, store *hashstore.Store, record func(string, string)) error {
	abs := filepath.Join(p.ImagesDir, name)
	rel := path.Join("img", name)
	base := strings.TrimSuffix(name, ext)

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	srcHash := hashstore.HashBytes(data)
	hashedRel := path.Join("img", base+"."+srcHash+".webp")
	hashedAbs := filepath.Join(p.DistDir, filepath.FromSlash(hashedRel))

	// Cache hit: same source content and the encoded output still on disk.
	if prev, _ := store.Get(rel); prev == srcHash && fileExists(hashedAbs) {
		record(rel, hashedRel)
		return nil
	}

	encoded, err := p.transform(data)
	if err != nil {
		// Degrade to a plain copy under the hashed original name; a broken
		// image must not abort the build.
		p.Logger.Warn("Image transform failed, copying original", "image", rel, "error", err)
		fallbackRel := path.Join("img", base+"."+srcHash+ext)
		if werr := os.WriteFile(filepath.Join(p.DistDir, filepath.FromSlash(fallbackRel)), data, 0o644); werr != nil {
			return fmt.Errorf("failed to write image fallback: %w", werr)
		}
		store.Set(rel, srcHash)
		record(rel, fallbackRel)
		return nil
	}

	if err := os.WriteFile(hashedAbs, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	store.Set(rel, srcHash)
	record(rel, hashedRel)
	return nil
}

// transform decodes, downscales to the configured max width (never upscaling,
// aspect ratio preserved) and re-encodes as WebP.
func (p *Pipeline) transform(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if p.MaxWidth > 0 && w > p.MaxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, p.MaxWidth, h*p.MaxWidth/w))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, src, &webp.Options{Quality: float32(p.Quality)}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
