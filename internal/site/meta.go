package site

import "strings"

// logicalOGImage is the site-wide social card asset, resolved through the
// asset map when present.
const logicalOGImage = "og_img.png"

// MetaParams describes one page's head metadata.
type MetaParams struct {
	Title         string
	Description   string
	Canonical     string
	OGImage       string // absolute URL or logical asset path
	Robots        string // defaults to "index, follow"
	Type          string // "website" or "article"
	Published     string // ISO date, article pages only
	Modified      string
	SkipCanonical bool // error pages carry no canonical link
}

// BuildMeta renders the dynamic head block: title, canonical, description,
// robots directive, Open Graph and Twitter card tags.
func (r *Renderer) BuildMeta(p MetaParams) string {
	if p.Type == "" {
		p.Type = "website"
	}
	if p.Robots == "" {
		p.Robots = "index, follow"
	}

	t := escAttr(p.Title)
	d := escAttr(p.Description)
	og := escAttr(r.resolveOGImage(p.OGImage))
	locale := strings.Replace(r.Site.Locale, "-", "_", 1)

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line("<title>" + t + "</title>")
	if !p.SkipCanonical {
		line(`<link rel="canonical" href="` + p.Canonical + `" />`)
	}
	line(`<meta name="description" content="` + d + `" />`)
	line(`<meta name="robots" content="` + p.Robots + `" />`)
	line(`<meta property="og:type" content="` + p.Type + `" />`)
	line(`<meta property="og:title" content="` + t + `" />`)
	line(`<meta property="og:site_name" content="` + escAttr(r.Site.SiteName) + `" />`)
	line(`<meta property="og:description" content="` + d + `" />`)
	line(`<meta property="og:url" content="` + p.Canonical + `" />`)
	line(`<meta property="og:image" content="` + og + `" />`)
	line(`<meta property="og:locale" content="` + locale + `" />`)
	if p.Type == "article" {
		if p.Published != "" {
			line(`<meta property="article:published_time" content="` + p.Published + `" />`)
		}
		if p.Modified != "" {
			line(`<meta property="article:modified_time" content="` + p.Modified + `" />`)
		}
	}
	line(`<meta name="twitter:card" content="summary_large_image" />`)
	line(`<meta name="twitter:title" content="` + t + `" />`)
	line(`<meta name="twitter:description" content="` + d + `" />`)
	line(`<meta name="twitter:image" content="` + og + `" />`)
	if r.Site.TwitterSite != "" {
		line(`<meta name="twitter:site" content="` + escAttr(r.Site.TwitterSite) + `" />`)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// resolveOGImage picks the social card URL. An absolute URL passes through,
// a logical path goes through the asset map, and with no explicit image the
// site-wide card is used, hashed when the build processed it.
func (r *Renderer) resolveOGImage(ogImage string) string {
	if ogImage != "" {
		if strings.HasPrefix(ogImage, "http://") || strings.HasPrefix(ogImage, "https://") {
			return ogImage
		}
		return r.Site.Origin + "/" + r.hashedPath(ogImage)
	}
	if hashed, ok := r.Assets[logicalOGImage]; ok {
		return r.Site.Origin + "/" + hashed
	}
	if r.Site.OGImage != "" {
		return r.resolveOGImage(r.Site.OGImage)
	}
	return r.Site.Origin + "/" + logicalOGImage
}

// absolute resolves a site-relative path against the origin; absolute URLs
// pass through.
func (r *Renderer) absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return r.Site.Origin + "/" + strings.TrimPrefix(path, "/")
}
