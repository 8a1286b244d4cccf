package build

import (
	"encoding/json"

	"github.com/vctrpage/vctr/internal/content"
	"github.com/vctrpage/vctr/internal/hashstore"
)

// listEntry is the slice of article data that list pages actually render;
// changes outside these fields must not invalidate list pages.
type listEntry struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Img         string `json:"img"`
}

func listEntries(articles []*content.Article) []listEntry {
	entries := make([]listEntry, 0, len(articles))
	for _, a := range articles {
		entries = append(entries, listEntry{
			Slug:        a.Slug,
			Title:       a.Title,
			Description: a.Description,
			Date:        a.Date,
			Img:         a.Img,
		})
	}
	return entries
}

type indexSignature struct {
	Type         string      `json:"type"`
	TemplateHash string      `json:"templateHash"`
	AssetMapHash string      `json:"assetMapHash"`
	Articles     []listEntry `json:"articles"`
}

type pageSignature struct {
	Type         string      `json:"type"`
	PageNum      int         `json:"pageNum"`
	TemplateHash string      `json:"templateHash"`
	AssetMapHash string      `json:"assetMapHash"`
	Articles     []listEntry `json:"articles"`
}

type articleSignature struct {
	Type         string `json:"type"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	Modified     string `json:"modified"`
	Img          string `json:"img"`
	Author       string `json:"author"`
	AuthorLink   string `json:"authorLink"`
	Category     string `json:"category"`
	IsTopLevel   bool   `json:"isTopLevel"`
	Content      string `json:"content"`
	Sources      string `json:"sources"`
	TemplateHash string `json:"templateHash"`
	AssetMapHash string `json:"assetMapHash"`
}

func fingerprint(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// signature structs only hold strings/bools/ints
		panic(err)
	}
	return hashstore.HashString(string(raw))
}

// IndexFingerprint derives the rebuild fingerprint for the landing page.
func IndexFingerprint(latest []*content.Article, templateHash, assetMapHash string) string {
	return fingerprint(indexSignature{
		Type:         "index",
		TemplateHash: templateHash,
		AssetMapHash: assetMapHash,
		Articles:     listEntries(latest),
	})
}

// PageFingerprint derives the rebuild fingerprint for paginated page pageNum.
func PageFingerprint(pageArticles []*content.Article, pageNum int, templateHash, assetMapHash string) string {
	return fingerprint(pageSignature{
		Type:         "paginated",
		PageNum:      pageNum,
		TemplateHash: templateHash,
		AssetMapHash: assetMapHash,
		Articles:     listEntries(pageArticles),
	})
}

// ArticleFingerprint derives the rebuild fingerprint for one article page
// from every field its rendering depends on.
func ArticleFingerprint(a *content.Article, templateHash, assetMapHash string) string {
	return fingerprint(articleSignature{
		Type:         "article",
		Slug:         a.Slug,
		Title:        a.Title,
		Description:  a.Description,
		Date:         a.Date,
		Modified:     a.Modified,
		Img:          a.Img,
		Author:       a.Author,
		AuthorLink:   a.AuthorLink,
		Category:     a.Category,
		IsTopLevel:   a.IsTopLevel,
		Content:      a.Content,
		Sources:      a.Sources,
		TemplateHash: templateHash,
		AssetMapHash: assetMapHash,
	})
}

// AssetMapFingerprint hashes the asset map so any asset rename invalidates
// every page unit.
func AssetMapFingerprint(assetMap map[string]string) string {
	raw, err := json.Marshal(assetMap)
	if err != nil {
		panic(err)
	}
	return hashstore.HashString(string(raw))
}
