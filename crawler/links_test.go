package crawler

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks_SameDomainOnly(t *testing.T) {
	page := `<html><body>
		<a href="https://example.com/a">A</a>
		<a href="https://other.com/b">B</a>
		<a href="https://example.com/a#section">A section</a>
	</body></html>`

	links, err := ExtractLinks(page, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a"}, links)
}

func TestExtractLinks_ResolvesRelative(t *testing.T) {
	page := `<a href="/about">about</a>
		<a href="team">team</a>
		<a href="../up">up</a>
		<a href="?q=1">query</a>`

	links, err := ExtractLinks(page, "https://example.com/company/index.html")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/company/team",
		"https://example.com/up",
		"https://example.com/company/index.html?q=1",
	}, links)
}

func TestExtractLinks_AbsoluteUnchanged(t *testing.T) {
	abs := "https://blog.example.com/posts/1?x=y"
	links, err := ExtractLinks(`<a href="`+abs+`">post</a>`, "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, []string{abs}, links)
}

func TestExtractLinks_DropsNonHTTPAndFragments(t *testing.T) {
	page := `<a href="mailto:hi@example.com">mail</a>
		<a href="tel:+5511999">tel</a>
		<a href="javascript:void(0)">js</a>
		<a href="#top">top</a>
		<a href="/faq#pricing">faq</a>
		<a href="ftp://example.com/file">ftp</a>
		<a>no href</a>`

	links, err := ExtractLinks(page, "https://example.com")
	require.NoError(t, err)

	assert.Empty(t, links)
}

func TestExtractLinks_Deduplicates(t *testing.T) {
	page := `<a href="/a">1</a><a href="/a">2</a><a href="https://example.com/a">3</a>`

	links, err := ExtractLinks(page, "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a"}, links)
}

func TestExtractLinks_NeverLeavesSite(t *testing.T) {
	page := `<a href="https://www.example.com/x">www</a>
		<a href="https://shop.www.example.com/y">deeper</a>
		<a href="https://example.com/z">apex</a>
		<a href="https://notexample.com/n">lookalike</a>
		<a href="https://example.com.evil.io/e">suffix trick</a>
		<a href="https://evil.io/?next=https://example.com">param</a>
		<a href="//cdn.other.net/lib.js">protocol relative</a>`

	base := "https://www.example.com"
	links, err := ExtractLinks(page, base)
	require.NoError(t, err)

	baseURL, _ := url.Parse(base)
	for _, l := range links {
		assert.NotContains(t, l, "#")
		u, err := url.Parse(l)
		require.NoError(t, err)
		assert.True(t, SameSite(baseURL.Host, u.Host), "link %s left the site", l)
		assert.True(t, u.IsAbs())
	}
	assert.ElementsMatch(t, []string{
		"https://www.example.com/x",
		"https://shop.www.example.com/y",
		"https://example.com/z",
	}, links)
}

func TestSameSite(t *testing.T) {
	tests := []struct {
		base, link string
		want       bool
	}{
		{"example.com", "example.com", true},
		{"example.com", "www.example.com", true},
		{"www.example.com", "example.com", true},
		{"Example.COM", "example.com", true},
		{"cloudwalk.io", "notcloudwalk.io", false},
		{"notcloudwalk.io", "cloudwalk.io", false},
		{"example.com", "other.com", false},
		{"example.com", "", false},
		{"example.com:8080", "example.com:8080", true},
		{"example.com:8080", "example.com:9090", false},
	}

	for _, tt := range tests {
		t.Run(tt.base+"|"+tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, SameSite(tt.base, tt.link))
		})
	}
}

func TestExtractLinks_InvalidBase(t *testing.T) {
	_, err := ExtractLinks("<a href='/x'>x</a>", "http://[::1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse base url"))
}
