package seo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrpage/vctr/internal/config"
	"github.com/vctrpage/vctr/internal/content"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()
	return &Writer{
		Site: config.SiteConfig{
			Title:        "Artículos de Víctor",
			Description:  "Artículos sobre software",
			Origin:       "https://example.com",
			ArticlesBase: "/articulos",
		},
		Dist:        t.TempDir(),
		ErrorTitles: []string{"404", "500"},
		Now:         func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func seoArticle(slug, title, date string) *content.Article {
	return &content.Article{Slug: slug, Title: title, Date: date}
}

func TestWriteRobots(t *testing.T) {
	w := testWriter(t)
	require.NoError(t, w.WriteRobots())

	got, err := os.ReadFile(filepath.Join(w.Dist, "robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\nAllow: /\nSitemap: https://example.com/sitemap.xml\n", string(got))
}

func TestWriteSitemap(t *testing.T) {
	w := testWriter(t)

	local := seoArticle("hola", "Hola", "2025-01-02")
	modified := seoArticle("viejo", "Viejo", "2024-01-01")
	modified.Modified = "2025-03-04"
	external := seoArticle("fuera", "Fuera", "2025-02-01")
	external.Link = "https://otro.example.com/post"
	errPage := seoArticle("404", "404", "2025-01-01")

	articles := []*content.Article{local, modified, external, errPage}
	latest := []*content.Article{local, modified}
	pages := [][]*content.Article{{external}}

	require.NoError(t, w.WriteSitemap(articles, latest, pages))

	got, err := os.ReadFile(filepath.Join(w.Dist, "sitemap.xml"))
	require.NoError(t, err)
	xml := string(got)

	assert.Contains(t, xml, "<loc>https://example.com/</loc>")
	assert.Contains(t, xml, "<loc>https://example.com/page/2</loc>")
	assert.Contains(t, xml, "<loc>https://example.com/articulos/hola</loc>")
	assert.Contains(t, xml, "<loc>https://example.com/articulos/viejo</loc>")
	// modified date wins over the publication date
	assert.Contains(t, xml, "2025-03-04")
	// external pointers and error pages never get article entries
	assert.NotContains(t, xml, "otro.example.com")
	assert.NotContains(t, xml, "articulos/404")
}

func TestWriteRSS(t *testing.T) {
	w := testWriter(t)

	a1 := seoArticle("uno", "Uno", "2025-05-01")
	a1.Author = "Víctor"
	a2 := seoArticle("dos", "Dos", "2025-04-01")
	top := seoArticle("cv", "CV", "2025-03-01")
	top.IsTopLevel = true
	external := seoArticle("fuera", "Fuera", "2025-02-01")
	external.Link = "https://otro.example.com/post"
	a3 := seoArticle("tres", "Tres", "2025-01-01")

	require.NoError(t, w.WriteRSS([]*content.Article{a1, a2, top, external, a3}, 2))

	got, err := os.ReadFile(filepath.Join(w.Dist, "rss.xml"))
	require.NoError(t, err)
	xml := string(got)

	assert.Contains(t, xml, "<title>Artículos de Víctor</title>")
	assert.Contains(t, xml, "https://example.com/articulos/uno")
	assert.Contains(t, xml, "https://example.com/articulos/dos")
	// limit reached before tres; top-level and external never qualify
	assert.NotContains(t, xml, "articulos/tres")
	assert.NotContains(t, xml, "articulos/cv")
	assert.NotContains(t, xml, "otro.example.com")
	assert.Contains(t, xml, "Víctor")
}

func TestWriteCDNHeaders(t *testing.T) {
	w := testWriter(t)
	require.NoError(t, w.WriteCDNHeaders())

	got, err := os.ReadFile(filepath.Join(w.Dist, "_headers"))
	require.NoError(t, err)
	headers := string(got)

	assert.Contains(t, headers, "Strict-Transport-Security: max-age=31536000")
	assert.Contains(t, headers, "Content-Security-Policy: default-src 'self';")
	assert.Contains(t, headers, "/*.webp\n  Cache-Control: public, max-age=31536000, immutable")
	assert.Contains(t, headers, "/*.html\n  Cache-Control: no-cache, must-revalidate")
	assert.Contains(t, headers, "/favicon.ico\n  Cache-Control: public, max-age=86400")
}
