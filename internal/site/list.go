package site

import (
	"fmt"
	"strings"

	"github.com/vctrpage/vctr/internal/content"
)

// Paginate splits the remaining (post-landing) articles into fixed-size
// pages, preserving order. The last page may be short.
func Paginate(articles []*content.Article, perPage int) [][]*content.Article {
	var pages [][]*content.Article
	for i := 0; i < len(articles); i += perPage {
		end := i + perPage
		if end > len(articles) {
			end = len(articles)
		}
		pages = append(pages, articles[i:end])
	}
	return pages
}

// renderArticlesList renders the list body shared by the landing page and
// the paginated pages. Top-level articles never appear in lists. On the
// landing page the first item's image is the likely LCP element and gets a
// high fetch priority.
func (r *Renderer) renderArticlesList(articles []*content.Article, isLanding bool) string {
	var b strings.Builder
	b.WriteString(`<h1 class="visually-hidden">` + escAttr("Artículos de "+r.Site.OwnerName) + `</h1>`)
	b.WriteString(`<ul class="landing-list">`)

	i := 0
	for _, a := range articles {
		if a.IsTopLevel {
			continue
		}

		href := a.Href(r.Site.ArticlesBase)
		target := ""
		if a.External() {
			target = ` target="_blank" rel="noopener noreferrer"`
		}

		imgTag := ""
		if a.Img != "" {
			if hashed, ok := r.Assets[a.Img]; ok {
				imgTag = r.landingImgTag(hashed, a.Title, false, isLanding && i == 0)
			}
		}

		authorTag := ""
		if a.Author != "" {
			authorTag = `<p class="article-author">` + escAttr(a.Author) + `</p>`
		}

		fmt.Fprintf(&b, `
<li class="landing-item">
    <a class="landing-link" href="%s"%s>
        %s
        <div class="landing-item-text">
            <p class="landing-title">%s</p>
            <p class="landing-description">%s</p>
            <div class="landing-item-meta">
                <p class="date"><time datetime="%s">%s</time></p>
                %s
            </div>
        </div>
    </a>
</li>`, href, target, imgTag, escAttr(a.Title), escAttr(a.Description), a.Date, formatDate(a.Date), authorTag)

		i++
	}

	b.WriteString(`</ul>`)
	return b.String()
}

// moreButton renders the "load more" control linking to the next page.
func moreButton(nextURL string) string {
	return fmt.Sprintf(`<div class="load-more">
    <a href="%s" class="load-more-link">Ver más</a>
    <noscript><a href="%s">Ver más</a></noscript>
</div>`, nextURL, nextURL)
}
