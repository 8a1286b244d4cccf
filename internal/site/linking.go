package site

import (
	"fmt"
	"strings"

	"github.com/vctrpage/vctr/internal/content"
)

// SelectRelated picks up to max related articles for a, in order:
// explicit linking slugs first (in the given order, unknown and self slugs
// skipped), then the most recent articles from the same category, then
// recent articles from categories other than "git", and finally anything
// left including "git". Each stage preserves the candidate pool's order and
// never introduces duplicates.
func SelectRelated(a *content.Article, pool []*content.Article, max int) []*content.Article {
	links := make([]*content.Article, 0, max)
	picked := make(map[string]bool, max)

	add := func(t *content.Article) bool {
		if t.Slug == a.Slug || picked[t.Slug] {
			return false
		}
		links = append(links, t)
		picked[t.Slug] = true
		return len(links) == max
	}

	for _, slug := range a.Linking {
		for _, t := range pool {
			if t.Slug == slug {
				if add(t) {
					return links
				}
				break
			}
		}
	}

	if a.Category != "" {
		for _, t := range pool {
			if t.Category == a.Category && add(t) {
				return links
			}
		}
	}

	// "git" articles are a de-prioritized backlog, linked only as a last
	// resort.
	for _, t := range pool {
		if t.Category != "git" && add(t) {
			return links
		}
	}
	for _, t := range pool {
		if add(t) {
			return links
		}
	}

	return links
}

// InternalLinking renders the "related articles" aside, or nothing when no
// candidates exist.
func (r *Renderer) InternalLinking(a *content.Article, pool []*content.Article) string {
	links := SelectRelated(a, pool, r.UI.MaxInternalLinks)
	if len(links) == 0 {
		return ""
	}

	var items strings.Builder
	for _, t := range links {
		href := t.Href(r.Site.ArticlesBase)
		target := ""
		if t.External() {
			target = ` target="_blank" rel="noopener noreferrer"`
		}

		imgTag := ""
		if t.Img != "" {
			if hashed, ok := r.Assets[t.Img]; ok {
				imgTag = r.landingImgTag(hashed, t.Title, false, false)
			}
		}

		authorTag := ""
		if t.Author != "" {
			authorTag = `<p class="article-author">` + escAttr(t.Author) + `</p>`
		}

		fmt.Fprintf(&items, `
<li class="internal-linking-item">
    <a class="internal-linking-link" href="%s"%s>
        %s
        <div class="internal-linking-item-text">
            <p class="internal-linking-title">%s</p>
            <p class="internal-linking-description">%s</p>
            <div class="internal-linking-item-meta">
                <p class="date"><time datetime="%s">%s</time></p>
                %s
            </div>
        </div>
    </a>
</li>`, href, target, imgTag, escAttr(t.Title), escAttr(t.Description), t.Date, formatDate(t.Date), authorTag)
	}

	return fmt.Sprintf(`
<aside class="internal-linking" role="complementary" aria-labelledby="relacionados-titulo">
    <h2 id="relacionados-titulo" class="internal-linking-title">También puede interesarte:</h2>
    <ul class="internal-linking-list">%s</ul>
</aside>`, items.String())
}
