package site

import (
	"encoding/json"
	"strings"

	"github.com/vctrpage/vctr/internal/content"
)

type ldRef struct {
	Type string `json:"@type"`
	ID   string `json:"@id"`
}

type ldIDOnly struct {
	ID string `json:"@id"`
}

type ldImageObject struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

type ldPerson struct {
	Type string `json:"@type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type ldOrganization struct {
	Type string         `json:"@type"`
	Name string         `json:"name"`
	URL  string         `json:"url,omitempty"`
	Logo *ldImageObject `json:"logo,omitempty"`
}

type ldWebSite struct {
	Context    string `json:"@context"`
	Type       string `json:"@type"`
	ID         string `json:"@id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	InLanguage string `json:"inLanguage"`
}

type ldBlog struct {
	Context     string     `json:"@context"`
	Type        string     `json:"@type"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	BlogPost    []ldIDOnly `json:"blogPost"`
}

type ldBlogPosting struct {
	Context       string          `json:"@context"`
	Type          string          `json:"@type"`
	Headline      string          `json:"headline"`
	Description   string          `json:"description"`
	DatePublished string          `json:"datePublished,omitempty"`
	DateModified  string          `json:"dateModified,omitempty"`
	URL           string          `json:"url"`
	InLanguage    string          `json:"inLanguage"`
	WordCount     int             `json:"wordCount,omitempty"`
	IsPartOf      *ldRef          `json:"isPartOf"`
	Author        any             `json:"author"`
	Publisher     *ldOrganization `json:"publisher"`
	MainEntity    *ldRef          `json:"mainEntityOfPage"`
	Image         string          `json:"image,omitempty"`
}

type ldWebPage struct {
	Context     string          `json:"@context"`
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	InLanguage  string          `json:"inLanguage"`
	IsPartOf    *ldRef          `json:"isPartOf"`
	Author      *ldOrganization `json:"author"`
	Publisher   *ldOrganization `json:"publisher"`
	MainEntity  *ldRef          `json:"mainEntityOfPage"`
	Image       string          `json:"image,omitempty"`
}

func (r *Renderer) siteOrg() *ldOrganization {
	return &ldOrganization{Type: "Organization", Name: r.Site.Title, URL: r.Site.Origin + "/"}
}

func (r *Renderer) publisher() *ldOrganization {
	return &ldOrganization{
		Type: "Organization",
		Name: r.Site.Title,
		Logo: &ldImageObject{Type: "ImageObject", URL: r.absolute(r.hashedPath("favicon.png"))},
	}
}

// IndexJSONLD builds the structured data for list pages: the WebSite entity
// plus a Blog entity referencing the articles shown on the page.
func (r *Renderer) IndexJSONLD(shown []*content.Article) string {
	posts := make([]ldIDOnly, 0, len(shown))
	for _, a := range shown {
		posts = append(posts, ldIDOnly{ID: a.AbsoluteURL(r.Site.Origin, r.Site.ArticlesBase)})
	}

	docs := []any{
		ldWebSite{
			Context:    "https://schema.org",
			Type:       "WebSite",
			ID:         r.Site.Origin + "/",
			Name:       r.Site.Title,
			URL:        r.Site.Origin + "/",
			InLanguage: r.Site.Locale,
		},
		ldBlog{
			Context:     "https://schema.org",
			Type:        "Blog",
			Name:        r.Site.Title,
			URL:         r.Site.Origin + "/",
			Description: r.Site.Description,
			BlogPost:    posts,
		},
	}
	out, err := json.Marshal(docs)
	if err != nil {
		return ""
	}
	return string(out)
}

// ArticleJSONLD builds the structured data for an article page. Articles in
// the meta category describe the site itself rather than a post, so they
// become AboutPage or WebPage instead of BlogPosting.
func (r *Renderer) ArticleJSONLD(a *content.Article) string {
	url := a.AbsoluteURL(r.Site.Origin, r.Site.ArticlesBase)
	desc := a.Description
	if desc == "" {
		desc = a.Title
	}

	var img string
	if a.Img != "" {
		if hashed, ok := r.Assets[a.Img]; ok {
			img = r.Site.Origin + "/" + hashed
		}
	}

	blogRef := &ldRef{Type: "Blog", ID: r.Site.Origin + "/"}
	pageRef := &ldRef{Type: "WebPage", ID: url}

	if a.Category == "meta" {
		typ := "WebPage"
		if strings.HasPrefix(a.Slug, "sobre-") {
			typ = "AboutPage"
		}
		doc := ldWebPage{
			Context:     "https://schema.org",
			Type:        typ,
			Name:        a.Title,
			Description: desc,
			URL:         url,
			InLanguage:  r.Site.Locale,
			IsPartOf:    blogRef,
			Author:      r.siteOrg(),
			Publisher:   r.publisher(),
			MainEntity:  pageRef,
			Image:       img,
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return ""
		}
		return string(out)
	}

	var author any = r.siteOrg()
	if a.Author != "" {
		author = &ldPerson{Type: "Person", Name: a.Author, URL: a.AuthorLink}
	}

	modified := a.Modified
	if modified == "" {
		modified = a.Date
	}

	doc := ldBlogPosting{
		Context:       "https://schema.org",
		Type:          "BlogPosting",
		Headline:      a.Title,
		Description:   desc,
		DatePublished: a.Date,
		DateModified:  modified,
		URL:           url,
		InLanguage:    r.Site.Locale,
		WordCount:     len(strings.Fields(a.Content)),
		IsPartOf:      blogRef,
		Author:        author,
		Publisher:     r.publisher(),
		MainEntity:    pageRef,
		Image:         img,
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(out)
}

// hashedPath resolves a logical asset path through the asset map; unknown
// paths pass through unchanged.
func (r *Renderer) hashedPath(logical string) string {
	if hashed, ok := r.Assets[logical]; ok {
		return hashed
	}
	return logical
}
