package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"cloudwalk-rag/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// Crawler walks same-site links breadth-first from a list of seed URLs.
// It is not safe for concurrent use; each Crawl call owns its own state.
type Crawler struct {
	fetcher  Fetcher
	log      *slog.Logger
	maxPages int
	limiter  *rate.Limiter
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages stops the crawl after n fetch attempts. Zero means unlimited.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithDelay waits at least d between consecutive fetches. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// New creates a Crawler.
func New(fetcher Fetcher, log *slog.Logger, opts ...Option) *Crawler {
	if log == nil {
		log = slog.Default()
	}
	c := &Crawler{
		fetcher: fetcher,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches every page reachable from seeds exactly once and returns one
// Document per successfully processed page, in visit order. Per-page failures
// are logged and skipped. Documents are not filtered by length. The only error
// returned is ctx's.
func (c *Crawler) Crawl(ctx context.Context, seeds []string) ([]models.Document, error) {
	f := newFrontier(seeds)
	var results []models.Document
	attempts := 0

	c.log.Info("crawl started", "seeds", len(seeds))

	for {
		u, ok := f.pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !f.visit(u) {
			continue
		}
		if c.maxPages > 0 && attempts >= c.maxPages {
			c.log.Warn("crawl page limit reached", "max_pages", c.maxPages, "pending", f.len()+1)
			break
		}
		attempts++

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		c.log.Info("visiting", "url", u)
		doc, links, err := c.process(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.log.Warn("visit failed", "url", u, "error", err)
			continue
		}

		added := 0
		for _, link := range links {
			if f.push(link) {
				added++
			}
		}
		c.log.Debug("links discovered", "url", u, "found", len(links), "queued", added)

		results = append(results, doc)
	}

	c.log.Info("crawl finished", "visited", f.visitedCount(), "documents", len(results))
	return results, nil
}

// process fetches one page and returns its document and same-site links.
func (c *Crawler) process(ctx context.Context, pageURL string) (models.Document, []string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return models.Document{}, nil, fmt.Errorf("parse url: %w", err)
	}

	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return models.Document{}, nil, err
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.Document{}, nil, fmt.Errorf("parse html: %w", err)
	}

	doc := models.Document{
		SourceURL: pageURL,
		Text:      ExtractText(page),
		Meta:      PageMetadata(page, pageURL),
	}
	return doc, linksFromDocument(page, base), nil
}

// frontier is the FIFO of URLs to visit plus the visited set. A URL is queued
// only if it is neither visited nor already queued.
type frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

func newFrontier(seeds []string) *frontier {
	f := &frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	for _, s := range seeds {
		f.push(s)
	}
	return f
}

// push appends u unless it was already seen, and reports whether it did.
func (f *frontier) push(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	return u, true
}

// visit marks u visited and reports false if it already was.
func (f *frontier) visit(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	f.visited[u] = struct{}{}
	return true
}

func (f *frontier) len() int          { return len(f.queue) }
func (f *frontier) visitedCount() int { return len(f.visited) }
