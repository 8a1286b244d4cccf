package server

import (
	"fmt"
	"html"
	"net/http"
)

const statusPageShell = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>%s</title>
<style>body{font-family: Georgia, 'Times New Roman', Times, serif;padding:2rem;text-align:center;color:black}</style>
</head>
<body><p>%s</p>
<a style="display:inline-block;margin-top:20px;font-variant:small-caps;font-weight:400;font-size:32px;color:black;text-decoration:none" href="%s" aria-label="%s">%s</a>
</body>
</html>`

// statusPage writes a minimal Spanish HTML page for confirm and unsubscribe
// results, with the same hardening headers either way.
func (s *Server) statusPage(w http.ResponseWriter, status int, title, content string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.WriteHeader(status)
	fmt.Fprintf(w, statusPageShell,
		html.EscapeString(title),
		html.EscapeString(content),
		s.Origin,
		html.EscapeString(s.OwnerName),
		html.EscapeString(s.OwnerName),
	)
}
