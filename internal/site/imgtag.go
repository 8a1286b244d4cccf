package site

import (
	"fmt"
	"strings"
)

// Cloudflare image-resizing widths per context. Browsers pick the small or
// large variant through srcset/sizes.
const (
	landingImgSmall = 200
	landingImgLarge = 500
	articleImgSmall = 600
	articleImgLarge = 800
)

// cfImg builds a Cloudflare image-resizing URL for a hashed asset path.
func cfImg(asset string, width int) string {
	return fmt.Sprintf("/cdn-cgi/image/width=%d,quality=auto,format=auto/%s", width, asset)
}

// landingImgTag renders the thumbnail for list items. In development it
// references the hashed asset directly; in production it goes through
// Cloudflare image resizing with small/large variants. highPriority marks
// the likely LCP image.
func (r *Renderer) landingImgTag(asset, title string, isFirst, highPriority bool) string {
	if asset == "" {
		return ""
	}

	class := "landing-thumb"
	if isFirst {
		class = "landing-thumb-featured"
	}
	loading := `loading="lazy" decoding="async"`
	if isFirst || highPriority {
		loading = `fetchpriority="high" decoding="async"`
	}

	if !r.Prod {
		return fmt.Sprintf(
			`<img class="%s" src="/%s" alt="%s" width="500" height="500" %s>`,
			class, asset, escAttr(title), loading)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<img class="%s" src="%s"`, class, cfImg(asset, landingImgSmall))
	fmt.Fprintf(&b, ` srcset="%s %dw, %s %dw"`,
		cfImg(asset, landingImgSmall), landingImgSmall,
		cfImg(asset, landingImgLarge), landingImgLarge)
	fmt.Fprintf(&b, ` sizes="(max-width: %dpx) %dpx, %dpx"`,
		landingImgLarge, landingImgLarge, landingImgSmall)
	fmt.Fprintf(&b, ` alt="%s" width="%d" height="%d" %s>`,
		escAttr(title), landingImgSmall, landingImgSmall, loading)
	return b.String()
}

// articleImgTag renders the header image of an article page. Always fetched
// with high priority.
func (r *Renderer) articleImgTag(asset, title string) string {
	if asset == "" {
		return ""
	}

	if !r.Prod {
		return fmt.Sprintf(
			`<img class="article-image" src="/%s" width="900" height="900" alt="%s" fetchpriority="high" decoding="async">`,
			asset, escAttr(title))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<img class="article-image" src="%s"`, cfImg(asset, articleImgLarge))
	fmt.Fprintf(&b, ` srcset="%s %dw, %s %dw"`,
		cfImg(asset, articleImgSmall), articleImgSmall,
		cfImg(asset, articleImgLarge), articleImgLarge)
	fmt.Fprintf(&b, ` sizes="(max-width: %dpx) %dpx, %dpx"`,
		articleImgSmall, articleImgSmall, articleImgLarge)
	fmt.Fprintf(&b, ` width="%d" height="%d" alt="%s" fetchpriority="high" decoding="async">`,
		articleImgLarge, articleImgLarge, escAttr(title))
	return b.String()
}
