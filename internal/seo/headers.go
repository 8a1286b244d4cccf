package seo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Hosts allowed to serve scripts and receive beacons: analytics plus the
// bot-check challenge frames.
var allowedHosts = []string{
	"'self'",
	"https://cloudflareinsights.com",
	"https://static.cloudflareinsights.com",
	"https://challenges.cloudflare.com",
}

func cspDirectives() string {
	hosts := strings.Join(allowedHosts, " ")
	return strings.Join([]string{
		"default-src 'self'",
		"script-src " + hosts + " 'unsafe-inline'",
		"script-src-attr 'none'",
		"connect-src " + hosts,
		"img-src 'self' data: https://cloudflareinsights.com https://static.cloudflareinsights.com",
		"style-src 'self' 'unsafe-inline'",
		"font-src 'self' data:",
		"frame-src 'self' https://challenges.cloudflare.com",
		"form-action 'self'",
		"object-src 'none'",
		"base-uri 'none'",
		"frame-ancestors 'none'",
		"upgrade-insecure-requests",
	}, "; ")
}

// immutableExts get year-long immutable caching; their filenames embed a
// content hash, so stale serves are impossible.
var immutableExts = []string{
	"css", "js", "webp", "png", "jpg", "jpeg", "svg", "woff2", "woff", "ttf",
}

// noCachePaths are rendered or rewritten in place and must revalidate.
var noCachePaths = []string{"/", "/*/", "/*.html", "/robots.txt", "/sitemap.xml"}

// WriteCDNHeaders emits the _headers file consumed by the CDN: security
// headers for every path plus cache-control rules split between hashed
// static assets and rendered HTML.
func (w *Writer) WriteCDNHeaders() error {
	var b strings.Builder

	b.WriteString("/*\n")
	b.WriteString("  Strict-Transport-Security: max-age=31536000; includeSubDomains; preload\n")
	b.WriteString("  X-Content-Type-Options: nosniff\n")
	b.WriteString("  Referrer-Policy: strict-origin-when-cross-origin\n")
	b.WriteString("  Permissions-Policy: geolocation=(), microphone=(), camera=()\n")
	b.WriteString("  Cross-Origin-Opener-Policy: same-origin\n")
	b.WriteString("  Cross-Origin-Resource-Policy: same-origin\n")
	b.WriteString("  X-Frame-Options: DENY\n")
	b.WriteString("  Content-Security-Policy: " + cspDirectives() + ";\n")
	b.WriteString("  Content-Security-Policy-Report-Only: require-trusted-types-for 'script'; trusted-types default vctr vctr#unsafe-html;\n")

	for _, p := range noCachePaths {
		fmt.Fprintf(&b, "\n%s\n  Cache-Control: no-cache, must-revalidate\n", p)
	}
	for _, ext := range immutableExts {
		fmt.Fprintf(&b, "\n/*.%s\n  Cache-Control: public, max-age=31536000, immutable\n", ext)
	}
	b.WriteString("\n/img/*\n  Cache-Control: public, max-age=31536000, immutable\n")
	b.WriteString("\n/fonts/*\n  Cache-Control: public, max-age=31536000, immutable\n")
	b.WriteString("\n/favicon.ico\n  Cache-Control: public, max-age=86400\n")

	if err := os.WriteFile(filepath.Join(w.Dist, "_headers"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write _headers: %w", err)
	}
	return nil
}
