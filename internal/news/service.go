package news

import (
	"context"
	"errors"
	"sync"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const source = "news"

// Service provides recent headlines with caching
type Service struct {
	scraper *Scraper
	cache   *headlineCache
}

var _ interfaces.NewsSource = (*Service)(nil)

// ServiceConfig configures the headline service
type ServiceConfig struct {
	FeedURL        string
	HTMLURL        string
	HTMLSelector   string
	CacheDuration  time.Duration // How long to cache headlines
	ScraperTimeout time.Duration // Timeout for scraping operations
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		FeedURL:        DefaultFeedURL,
		CacheDuration:  30 * time.Minute,
		ScraperTimeout: 15 * time.Second,
	}
}

// headlineCache stores headlines per query temporarily
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	items     []types.NewsItem
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// get retrieves cached headlines if still fresh
func (c *headlineCache) get(query string) ([]types.NewsItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[query]
	if !exists || c.now().Sub(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.items, true
}

// set stores headlines and drops expired entries
func (c *headlineCache) set(query string, items []types.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for q, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, q)
		}
	}
	c.data[query] = &cacheEntry{items: items, timestamp: now}
}

// NewService creates a new headline service
func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		scraper: NewScraper(cfg.FeedURL, cfg.HTMLURL, cfg.HTMLSelector, cfg.ScraperTimeout),
		cache:   newHeadlineCache(cfg.CacheDuration),
	}
}

// Headlines returns at most max headlines for query, feed first and the
// HTML page when the feed fails or is empty.
func (s *Service) Headlines(ctx context.Context, query string, max int) ([]types.NewsItem, error) {
	if cached, ok := s.cache.get(query); ok {
		logger.Debug(ctx, "Using cached headlines", "query", query, "items", len(cached))
		return limit(cached, max), nil
	}

	items, err := s.scraper.ScrapeFeed(ctx, query, max)
	if err != nil || len(items) == 0 {
		if err != nil {
			logger.Warn(ctx, "Feed scraping failed, trying page", "query", query, "error", err)
		}
		pageItems, pageErr := s.scraper.ScrapePage(ctx, query, max)
		if pageErr != nil {
			return nil, types.NewFetchError(source, "headlines", errors.Join(err, pageErr))
		}
		items = pageItems
	}
	if len(items) == 0 {
		return nil, types.NewFetchError(source, "headlines", errors.New("no headlines found"))
	}

	s.cache.set(query, items)
	return limit(items, max), nil
}

func limit(items []types.NewsItem, max int) []types.NewsItem {
	if max > 0 && len(items) > max {
		return items[:max]
	}
	return items
}

// ClearCache removes all cached headlines
func (s *Service) ClearCache() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.cache.data = make(map[string]*cacheEntry)
}
