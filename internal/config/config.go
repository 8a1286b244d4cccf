// Package config loads and normalizes the site, build and newsletter
// configuration from a YAML file plus environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	Paths       PathsConfig       `yaml:"paths"`
	UI          UIConfig          `yaml:"ui"`
	Build       BuildConfig       `yaml:"build"`
	ContentRepo ContentRepoConfig `yaml:"content_repo"`
	Newsletter  NewsletterConfig  `yaml:"newsletter"`
	Deliver     DeliverConfig     `yaml:"deliver"`
}

// ContentRepoConfig points at an external git repository holding the
// article sources; used by `build --from-git`.
type ContentRepoConfig struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch"`
	Dir    string `yaml:"dir"` // local checkout path
}

// SiteConfig holds site identity used across renderers and SEO writers.
type SiteConfig struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Origin       string `yaml:"origin"`
	Local        string `yaml:"local"` // dev endpoint substituted into scripts
	OwnerName    string `yaml:"owner_name"`
	ArticlesBase string `yaml:"articles_base"` // URL base for non-top-level articles
	Locale       string `yaml:"locale"`
	OGImage      string `yaml:"og_image"`
	SiteName     string `yaml:"site_name"`
	TwitterSite  string `yaml:"twitter_site"`
}

// PathsConfig holds the filesystem layout of a build.
type PathsConfig struct {
	Root      string `yaml:"root"` // project root holding favicon.ico
	Articles  string `yaml:"articles"`
	Images    string `yaml:"images"`
	Assets    string `yaml:"assets"`
	Templates string `yaml:"templates"`
	Dist      string `yaml:"dist"`
	HashFile  string `yaml:"hash_file"`
}

// UIConfig holds list/pagination knobs.
type UIConfig struct {
	ArticlesOnLanding     int      `yaml:"articles_on_landing"`
	ArticlesPerPage       int      `yaml:"articles_per_page"`
	MaxInternalLinks      int      `yaml:"max_internal_links"`
	ArticlesWithoutHeader []string `yaml:"articles_without_header"`
}

// BuildConfig holds asset-pipeline knobs.
type BuildConfig struct {
	ImageMaxWidth       int    `yaml:"image_max_width"`
	ImageQuality        int    `yaml:"image_quality"`
	TurnstileSiteKey    string `yaml:"turnstile_site_key"`
	TurnstileSiteKeyDev string `yaml:"turnstile_site_key_dev"`
	WidgetKey           string `yaml:"widget_key"` // site-verification widget key substituted into scripts
}

// NewsletterConfig holds the subscriber store and endpoint settings.
// Secrets come from the environment, never from the YAML file.
type NewsletterConfig struct {
	DBPath          string        `yaml:"db_path"`
	ListenAddr      string        `yaml:"listen_addr"`
	BaseURL         string        `yaml:"base_url"` // public base for confirmation links
	ResendCooldown  time.Duration `yaml:"resend_cooldown"`
	ConfirmTTL      time.Duration `yaml:"confirm_ttl"`
	UnsubscribeTTL  time.Duration `yaml:"unsubscribe_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	TurnstileSecret string        `yaml:"-"`
	UnsubSecret     string        `yaml:"-"`
	UnsubSecretPrev string        `yaml:"-"`
	SESFrom         string        `yaml:"-"`
	SESReplyTo      string        `yaml:"-"`
	SESConfigSet    string        `yaml:"-"`
}

// DeliverConfig holds newsletter delivery settings.
type DeliverConfig struct {
	Workers    int           `yaml:"workers"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
	ReportsDir string        `yaml:"reports_dir"`
}

// Load reads configuration from the given YAML file, expands environment
// variables inside it and applies defaults. A `.env` file in the working
// directory is loaded first when present; existing env vars win.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.loadSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Site.Locale == "" {
		c.Site.Locale = "es-ES"
	}
	if c.Site.ArticlesBase == "" {
		c.Site.ArticlesBase = "/articulos"
	}
	if c.Site.Local == "" {
		c.Site.Local = "http://localhost:8788"
	}
	if c.Site.SiteName == "" {
		c.Site.SiteName = c.Site.Title
	}

	if c.Paths.Root == "" {
		c.Paths.Root = "."
	}
	if c.Paths.Dist == "" {
		c.Paths.Dist = "./dist"
	}
	if c.Paths.Templates == "" {
		c.Paths.Templates = "./templates"
	}
	if c.Paths.Assets == "" {
		c.Paths.Assets = "./assets"
	}
	if c.Paths.HashFile == "" {
		c.Paths.HashFile = "./hashes.json"
	}

	if c.UI.ArticlesOnLanding <= 0 {
		c.UI.ArticlesOnLanding = 10
	}
	if c.UI.ArticlesPerPage <= 0 {
		c.UI.ArticlesPerPage = 10
	}
	if c.UI.MaxInternalLinks <= 0 {
		c.UI.MaxInternalLinks = 3
	}
	if len(c.UI.ArticlesWithoutHeader) == 0 {
		c.UI.ArticlesWithoutHeader = []string{"404", "500"}
	}

	if c.Build.ImageMaxWidth <= 0 {
		c.Build.ImageMaxWidth = 900
	}
	if c.Build.ImageQuality <= 0 || c.Build.ImageQuality > 100 {
		c.Build.ImageQuality = 100
	}

	if c.ContentRepo.Dir == "" {
		c.ContentRepo.Dir = "./content"
	}

	if c.Newsletter.DBPath == "" {
		c.Newsletter.DBPath = "./newsletter.db"
	}
	if c.Newsletter.ListenAddr == "" {
		c.Newsletter.ListenAddr = ":8788"
	}
	if c.Newsletter.BaseURL == "" {
		c.Newsletter.BaseURL = c.Site.Origin
	}
	if c.Newsletter.ResendCooldown <= 0 {
		c.Newsletter.ResendCooldown = 10 * time.Minute
	}
	if c.Newsletter.ConfirmTTL <= 0 {
		c.Newsletter.ConfirmTTL = 24 * time.Hour
	}
	if c.Newsletter.UnsubscribeTTL <= 0 {
		c.Newsletter.UnsubscribeTTL = 7 * 24 * time.Hour
	}
	if c.Newsletter.CleanupInterval <= 0 {
		c.Newsletter.CleanupInterval = time.Hour
	}

	if c.Deliver.Workers <= 0 {
		c.Deliver.Workers = 6
	}
	if c.Deliver.MaxRetries <= 0 {
		c.Deliver.MaxRetries = 3
	}
	if c.Deliver.Backoff <= 0 {
		c.Deliver.Backoff = 500 * time.Millisecond
	}
	if c.Deliver.ReportsDir == "" {
		c.Deliver.ReportsDir = "./reports"
	}
}

func (c *Config) loadSecrets() {
	c.Newsletter.TurnstileSecret = os.Getenv("TURNSTILE_SECRET_KEY")
	c.Newsletter.UnsubSecret = os.Getenv("NEWSLETTER_UNSUBSCRIBE_SECRET")
	c.Newsletter.UnsubSecretPrev = os.Getenv("NEWSLETTER_UNSUBSCRIBE_SECRET_PREV")
	c.Newsletter.SESFrom = os.Getenv("SES_FROM")
	c.Newsletter.SESReplyTo = os.Getenv("SES_REPLY_TO")
	c.Newsletter.SESConfigSet = os.Getenv("SES_CONFIGURATION_SET")
}

// Validate checks invariants that would otherwise surface as confusing
// failures deep inside a build.
func (c *Config) Validate() error {
	if c.Site.Title == "" {
		return fmt.Errorf("site.title is required")
	}
	if c.Site.Origin == "" {
		return fmt.Errorf("site.origin is required")
	}
	return nil
}
