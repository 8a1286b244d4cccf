package deliver

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FirstParagraph extracts the first <p> of an article fragment as a teaser,
// restyled for the email body and always ending in an ellipsis.
func FirstParagraph(fragment string) string {
	if fragment == "" {
		return ""
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}

	var para *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if para != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			para = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	for _, n := range nodes {
		find(n)
	}
	if para == nil {
		return ""
	}

	var buf strings.Builder
	for c := para.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}

	inner := strings.TrimSpace(buf.String())
	switch {
	case inner == "":
		return ""
	case strings.HasSuffix(inner, "..."):
		// already trails off
	case strings.HasSuffix(inner, "."):
		inner = strings.TrimSuffix(inner, ".") + "..."
	default:
		inner += "..."
	}

	return `<p style="margin: 16px 0 0 0;">` + inner + `</p>`
}
