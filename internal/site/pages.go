package site

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vctrpage/vctr/internal/content"
)

// RenderIndex produces the landing page: the latest articles plus the
// newsletter opt-in, with a "load more" link when paginated pages follow.
func (r *Renderer) RenderIndex(latest []*content.Article, hasMore bool) string {
	doc := r.BaseDocument(r.IndexJSONLD(latest))

	list := r.renderArticlesList(latest, true) + r.EmbedNewsletter(LandingNewsletterCTA)
	doc = r.InjectContent(doc, list)
	doc = r.InjectRSSLink(doc)

	if hasMore {
		doc = strings.Replace(doc, "</head>", `<link rel="next" href="/page/2"></head>`, 1)
		doc = strings.Replace(doc, "</ul>", "</ul>"+moreButton("/page/2"), 1)
	}

	return r.Finalize(doc)
}

// PageNumber maps a pagination index to its public page number. The landing
// page is page 1, so paginated pages start at 2.
func PageNumber(i int) int { return i + 2 }

// RenderPage produces paginated page i (zero-based index into pages).
func (r *Renderer) RenderPage(pages [][]*content.Article, i int) string {
	pageArticles := pages[i]
	doc := r.BaseDocument(r.IndexJSONLD(pageArticles))

	doc = r.InjectContent(doc, r.renderArticlesList(pageArticles, false))
	doc = r.InjectRSSLink(doc)

	nextURL := ""
	if i+1 < len(pages) {
		nextURL = fmt.Sprintf("/page/%d", PageNumber(i+1))
		doc = strings.Replace(doc, "</ul>", "</ul>"+moreButton(nextURL), 1)
	}

	prevURL := "/"
	if i > 0 {
		prevURL = fmt.Sprintf("/page/%d", PageNumber(i-1))
	}
	links := fmt.Sprintf(`<link rel="prev" href="%s">`, prevURL)
	if nextURL != "" {
		links += fmt.Sprintf(`<link rel="next" href="%s">`, nextURL)
	}
	doc = strings.Replace(doc, "</head>", links+"</head>", 1)

	pageNum := PageNumber(i)
	head := r.BuildMeta(MetaParams{
		Title:       fmt.Sprintf("%s — Página %d", r.Site.Title, pageNum),
		Description: r.Site.Description,
		Canonical:   fmt.Sprintf("%s/page/%d", r.Site.Origin, pageNum),
		Type:        "website",
	})
	doc = r.SwapHead(doc, head)

	return r.Finalize(doc)
}

// RenderArticle produces one article page. pool is the set of candidate
// articles for internal linking (meta-category articles excluded by the
// caller).
func (r *Renderer) RenderArticle(a *content.Article, pool []*content.Article) string {
	isError := slices.Contains(r.UI.ArticlesWithoutHeader, a.Title)

	jsonLD := ""
	if !isError {
		jsonLD = r.ArticleJSONLD(a)
	}
	doc := r.BaseDocument(jsonLD)
	doc = r.SwapHead(doc, r.articleHead(a, isError))

	imgTag := ""
	if a.Img != "" {
		if hashed, ok := r.Assets[a.Img]; ok {
			imgTag = r.articleImgTag(hashed, a.Title)
		}
	}

	if a.Category == "meta" {
		doc = r.InjectContent(doc, a.Content+r.EmbedNewsletter(LandingNewsletterCTA))
	} else {
		body := r.articleHeader(a) + imgTag + a.Content +
			r.EmbedNewsletter(ArticleNewsletterCTA) +
			r.InternalLinking(a, pool) +
			a.Sources
		doc = r.InjectContent(doc, body)
	}

	doc = r.InjectRSSLink(doc)
	return r.Finalize(doc)
}

func (r *Renderer) articleHead(a *content.Article, isError bool) string {
	desc := a.Description
	if desc == "" {
		desc = a.Title
	}
	if desc == "" {
		desc = r.Site.Description
	}

	ogImage := ""
	if a.Img != "" {
		if hashed, ok := r.Assets[a.Img]; ok {
			ogImage = r.Site.Origin + "/" + hashed
		}
	}

	metaType := "article"
	if a.IsTopLevel {
		metaType = "website"
	}

	published := isoDate(a.Date)
	modified := published
	if a.Modified != "" {
		modified = isoDate(a.Modified)
	}

	robots := ""
	if isError {
		robots = "noindex, nofollow"
	}

	return r.BuildMeta(MetaParams{
		Title:         a.Title,
		Description:   desc,
		Canonical:     a.AbsoluteURL(r.Site.Origin, r.Site.ArticlesBase),
		OGImage:       ogImage,
		Robots:        robots,
		Type:          metaType,
		Published:     published,
		Modified:      modified,
		SkipCanonical: isError,
	})
}

// articleHeader renders the title/description/author/date chrome above the
// body.
func (r *Renderer) articleHeader(a *content.Article) string {
	publishedStr := formatDate(a.Date)
	modifiedStr := ""
	if a.Modified != "" && a.Modified != a.Date {
		modifiedStr = formatDate(a.Modified)
	}

	dates := fmt.Sprintf(`<time datetime="%s">%s</time>`, a.Date, publishedStr)
	if modifiedStr != "" {
		dates += fmt.Sprintf(` · Actualizado: <time datetime="%s">%s</time>`, a.Modified, modifiedStr)
	}

	authorTag := ""
	switch {
	case a.Author != "" && a.AuthorLink != "":
		authorTag = fmt.Sprintf(`
        <p class="article-author">
            <a href="%s" target="_blank" rel="noopener noreferrer">%s</a>
            <svg class="author-link-icon" width="14" height="14" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2">
                <path d="M7 17L17 7M17 7H7M17 7V17" />
            </svg>
        </p>`, a.AuthorLink, escAttr(a.Author))
	case a.Author != "":
		authorTag = `
        <p class="article-author">` + escAttr(a.Author) + `</p>`
	}

	return fmt.Sprintf(`
    <h1 class="article-title">%s</h1>
    <p class="article-description">%s</p>
    <div class="article-sub">
        <p class="date">%s</p>%s
    </div>
`, escAttr(a.Title), escAttr(a.Description), dates, authorTag)
}

// isoDate normalizes a front-matter date to RFC 3339; unparsable input
// passes through.
func isoDate(s string) string {
	t := content.ParseDate(s)
	if t.IsZero() {
		return s
	}
	return t.UTC().Format(time.RFC3339)
}
