package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// textTags are the elements whose text is kept, matching the tag filter the
// page loader has always applied.
var textTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "span": true, "div": true, "a": true,
}

// skipTags never contribute text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true,
}

// ExtractText returns the readable text of a page. Each outermost text-bearing
// element contributes its whole subtree once, one line per element.
func ExtractText(doc *goquery.Document) string {
	var lines []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if textTags[n.Data] {
				if text := collapseSpace(nodeText(n)); text != "" {
					lines = append(lines, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(lines, "\n")
}

// nodeText concatenates the text nodes under n, skipping non-content elements.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipTags[n.Data] {
				return
			}
			if n.Data == "br" {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageMetadata returns source, title, description and language of a page.
func PageMetadata(doc *goquery.Document, source string) map[string]string {
	meta := map[string]string{"source": source}

	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		meta["title"] = title
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && strings.TrimSpace(desc) != "" {
		meta["description"] = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").First().Attr("lang"); ok && lang != "" {
		meta["language"] = lang
	}

	return meta
}
