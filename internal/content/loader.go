package content

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/vctrpage/vctr/internal/frontmatter"
)

// articleMeta mirrors the front matter schema of an article file.
type articleMeta struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	Modified    string   `yaml:"modified"`
	Author      string   `yaml:"author"`
	AuthorLink  string   `yaml:"authorLink"`
	Img         string   `yaml:"img"`
	Category    string   `yaml:"category"`
	Linking     []string `yaml:"linking"`
	Sources     string   `yaml:"sources"`
	Link        string   `yaml:"link"`
}

// Load walks dir recursively for .html and .md article files, parses front
// matter, assigns unique slugs in encounter order and returns the articles
// sorted by publication date descending (ties keep encounter order).
//
// A file with broken front matter is logged and skipped; a broken metadata
// field degrades to its zero value. Only a missing directory is fatal.
func Load(dir string, logger *slog.Logger) ([]*Article, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("articles directory not available: %w", err)
	}

	var articles []*Article

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".html" && ext != ".md" {
			return nil
		}

		a, err := loadFile(dir, path, ext)
		if err != nil {
			logger.Warn("Skipping unreadable article", "path", path, "error", err)
			return nil
		}
		articles = append(articles, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk articles directory: %w", err)
	}

	assignUniqueSlugs(articles)

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].published.After(articles[j].published)
	})

	logger.Debug("Articles loaded", "dir", dir, "count", len(articles))
	return articles, nil
}

func loadFile(root, path, ext string) (*Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	metaRaw, body, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	var meta articleMeta
	if err := frontmatter.Decode(metaRaw, &meta); err != nil {
		// Unparsable metadata degrades to zero values, the body still renders.
		slog.Warn("Unparsable front matter, using defaults", "path", path, "error", err)
		meta = articleMeta{}
	}

	content := string(body)
	if ext == ".md" {
		var buf bytes.Buffer
		if err := goldmark.New().Convert(body, &buf); err != nil {
			return nil, fmt.Errorf("markdown render: %w", err)
		}
		content = buf.String()
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}

	return &Article{
		Title:       meta.Title,
		Description: meta.Description,
		Date:        meta.Date,
		Modified:    meta.Modified,
		Author:      meta.Author,
		AuthorLink:  meta.AuthorLink,
		Img:         meta.Img,
		Category:    meta.Category,
		Linking:     meta.Linking,
		Sources:     meta.Sources,
		Link:        meta.Link,
		Content:     content,
		FilePath:    path,
		IsTopLevel:  !strings.ContainsRune(rel, filepath.Separator),
		published:   ParseDate(meta.Date),
	}, nil
}
