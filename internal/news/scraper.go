package news

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"crypto-autotrade/internal/api"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const (
	// DefaultFeedURL is a Google News RSS search; {query} is replaced with the escaped query.
	DefaultFeedURL = "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Scraper reads headlines from an RSS feed, or from an HTML page when a
// selector for the page is configured.
type Scraper struct {
	feedURL      string
	htmlURL      string
	htmlSelector string
	timeout      time.Duration
	page         *api.Client
}

func NewScraper(feedURL, htmlURL, htmlSelector string, timeout time.Duration) *Scraper {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Scraper{
		feedURL:      feedURL,
		htmlURL:      htmlURL,
		htmlSelector: htmlSelector,
		timeout:      timeout,
		page:         api.NewClient(api.WithTimeout(timeout), api.WithLogging(true)),
	}
}

func expand(tmpl, query string) string {
	return strings.ReplaceAll(tmpl, "{query}", url.QueryEscape(query))
}

// ScrapeFeed collects up to max <item> entries from the RSS feed.
func (s *Scraper) ScrapeFeed(ctx context.Context, query string, max int) ([]types.NewsItem, error) {
	items := []types.NewsItem{}

	c := colly.NewCollector(colly.MaxDepth(1), colly.Async(false), colly.StdlibContext(ctx))
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnXML("//item", func(e *colly.XMLElement) {
		if len(items) >= max {
			return
		}
		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		items = append(items, types.NewsItem{
			Title:       title,
			Source:      strings.TrimSpace(e.ChildText("source")),
			URL:         strings.TrimSpace(e.ChildText("link")),
			PublishedAt: strings.TrimSpace(e.ChildText("pubDate")),
		})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("feed %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	feed := expand(s.feedURL, query)
	if err := c.Visit(feed); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", feed, err)
	}
	c.Wait()
	if scrapeErr != nil {
		return nil, scrapeErr
	}

	logger.Debug(ctx, "Feed scraping completed", "query", query, "items", len(items))
	return items, nil
}

// ScrapePage collects up to max anchors matching the configured selector.
func (s *Scraper) ScrapePage(ctx context.Context, query string, max int) ([]types.NewsItem, error) {
	if s.htmlURL == "" || s.htmlSelector == "" {
		return nil, fmt.Errorf("no html fallback configured")
	}
	pageURL := expand(s.htmlURL, query)
	req := api.NewRequest("GET", pageURL).WithContext(ctx)
	for k, v := range api.BrowserHeaders() {
		req.WithHeader(k, v)
	}
	req.WithHeader("Accept", "text/html")
	resp, err := s.page.Do(req)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	base, _ := url.Parse(pageURL)

	items := []types.NewsItem{}
	doc.Find(s.htmlSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if title == "" {
			return true
		}
		item := types.NewsItem{Title: title, Source: base.Hostname()}
		if href, ok := sel.Attr("href"); ok {
			if u, err := base.Parse(href); err == nil {
				item.URL = u.String()
			}
		}
		items = append(items, item)
		return len(items) < max
	})

	logger.Debug(ctx, "Page scraping completed", "query", query, "items", len(items))
	return items, nil
}
