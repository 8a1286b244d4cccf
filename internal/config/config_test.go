package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  title: Víctor
  origin: https://vctr.page
paths:
  articles: /tmp/articles
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "es-ES", cfg.Site.Locale)
	assert.Equal(t, "/articulos", cfg.Site.ArticlesBase)
	assert.Equal(t, "Víctor", cfg.Site.SiteName)
	assert.Equal(t, 10, cfg.UI.ArticlesPerPage)
	assert.Equal(t, 3, cfg.UI.MaxInternalLinks)
	assert.Equal(t, []string{"404", "500"}, cfg.UI.ArticlesWithoutHeader)
	assert.Equal(t, 900, cfg.Build.ImageMaxWidth)
	assert.Equal(t, 10*time.Minute, cfg.Newsletter.ResendCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Newsletter.ConfirmTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Newsletter.UnsubscribeTTL)
	assert.Equal(t, 6, cfg.Deliver.Workers)
	assert.Equal(t, 3, cfg.Deliver.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Deliver.Backoff)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_ARTICLES_DIR", "/data/articles")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  title: Víctor
  origin: https://vctr.page
paths:
  articles: ${TEST_ARTICLES_DIR}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/articles", cfg.Paths.Articles)
}

func TestValidateRequiresTitleAndOrigin(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())

	cfg.Site.Title = "Víctor"
	require.Error(t, cfg.Validate())

	cfg.Site.Origin = "https://vctr.page"
	require.NoError(t, cfg.Validate())
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv("TURNSTILE_SECRET_KEY", "ts-secret")
	t.Setenv("NEWSLETTER_UNSUBSCRIBE_SECRET", "unsub-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  title: Víctor
  origin: https://vctr.page
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ts-secret", cfg.Newsletter.TurnstileSecret)
	assert.Equal(t, "unsub-secret", cfg.Newsletter.UnsubSecret)
}
