package content

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArticle(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadParsesAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "git/viejo.html", `---
title: Artículo viejo
date: 2024-01-15
category: git
---
<p>viejo</p>
`)
	writeArticle(t, dir, "git/nuevo.html", `---
title: Artículo nuevo
date: 2025-06-01
description: el más reciente
author: Víctor
---
<p>nuevo</p>
`)
	writeArticle(t, dir, "sobre.html", `---
title: Sobre mí
date: 2023-01-01
category: meta
---
<p>sobre</p>
`)

	articles, err := Load(dir, slog.Default())
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, "articulo-nuevo", articles[0].Slug)
	assert.Equal(t, "articulo-viejo", articles[1].Slug)
	assert.Equal(t, "sobre-mi", articles[2].Slug)

	assert.False(t, articles[0].IsTopLevel)
	assert.True(t, articles[2].IsTopLevel)
	assert.Equal(t, "el más reciente", articles[0].Description)
	assert.Equal(t, "<p>nuevo</p>\n", articles[0].Content)
}

func TestLoadSlugCollisionAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "a/uno.html", "---\ntitle: Hola Mundo\ndate: 2025-01-01\n---\n<p>1</p>\n")
	writeArticle(t, dir, "b/dos.html", "---\ntitle: Hola Mundo\ndate: 2025-01-02\n---\n<p>2</p>\n")

	articles, err := Load(dir, slog.Default())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	slugs := []string{articles[0].Slug, articles[1].Slug}
	assert.ElementsMatch(t, []string{"hola-mundo", "hola-mundo-2"}, slugs)
}

func TestLoadMarkdownBody(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "notas.md", "---\ntitle: Notas\ndate: 2025-02-01\n---\n# Título\n\nPárrafo.\n")

	articles, err := Load(dir, slog.Default())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Contains(t, articles[0].Content, "<h1>Título</h1>")
	assert.Contains(t, articles[0].Content, "<p>Párrafo.</p>")
}

func TestLoadMissingFieldsDefault(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "sin-titulo.html", "---\ndate: 2025-01-01\n---\n<p>x</p>\n")

	articles, err := Load(dir, slog.Default())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "articulo", articles[0].Slug)
	assert.Empty(t, articles[0].Description)
	assert.Empty(t, articles[0].Author)
}

func TestLoadSkipsBrokenFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeArticle(t, dir, "roto.html", "---\ntitle: Roto\nsin cierre")
	writeArticle(t, dir, "bien.html", "---\ntitle: Bien\ndate: 2025-01-01\n---\n<p>ok</p>\n")

	articles, err := Load(dir, slog.Default())
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "bien", articles[0].Slug)
}

func TestLoadMissingDirFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), slog.Default())
	require.Error(t, err)
}

func TestHrefAndAbsoluteURL(t *testing.T) {
	a := &Article{Slug: "hola-mundo"}
	assert.Equal(t, "/articulos/hola-mundo", a.Href("/articulos"))
	assert.Equal(t, "https://vctr.page/articulos/hola-mundo", a.AbsoluteURL("https://vctr.page", "/articulos"))

	top := &Article{Slug: "sobre-mi", IsTopLevel: true}
	assert.Equal(t, "/sobre-mi", top.Href("/articulos"))
	assert.Equal(t, "https://vctr.page/sobre-mi", top.AbsoluteURL("https://vctr.page", "/articulos"))

	ext := &Article{Slug: "fuera", Link: "https://example.com/x"}
	assert.Equal(t, "https://example.com/x", ext.Href("/articulos"))
	assert.True(t, ext.External())
}
