package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks parses htmlContent and returns the absolute http(s) links that
// stay on baseURL's site. Links carrying a fragment are dropped. The result is
// deduplicated and kept in document order.
func ExtractLinks(htmlContent string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	return linksFromDocument(doc, base), nil
}

func linksFromDocument(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		link, ok := resolveLink(base, href)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}

// resolveLink resolves href against base and reports whether the result is a
// crawlable same-site link.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if strings.Contains(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	full := base.ResolveReference(ref)
	if full.Scheme != "http" && full.Scheme != "https" {
		return "", false
	}
	if full.Fragment != "" {
		return "", false
	}
	if !SameSite(base.Host, full.Host) {
		return "", false
	}
	s := full.String()
	if strings.Contains(s, "#") {
		return "", false
	}
	return s, true
}

// SameSite reports whether two hosts are equal or one is a subdomain of the
// other. The dot prefix keeps notexample.com from matching example.com.
func SameSite(baseHost, linkHost string) bool {
	b := strings.ToLower(baseHost)
	l := strings.ToLower(linkHost)
	if b == "" || l == "" {
		return false
	}
	return l == b ||
		strings.HasSuffix(l, "."+b) ||
		strings.HasSuffix(b, "."+l)
}
