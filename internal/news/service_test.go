package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crypto-autotrade/internal/types"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>bitcoin</title>
<item><title>Bitcoin climbs past resistance</title><link>https://example.com/a</link><pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate><source url="https://example.com">Example</source></item>
<item><title>ETF inflows continue</title><link>https://example.com/b</link><pubDate>Mon, 01 Jan 2024 01:00:00 GMT</pubDate></item>
<item><title>Miners sell reserves</title><link>https://example.com/c</link></item>
</channel></rss>`

const pageBody = `<html><body>
<div class="story"><a class="headline" href="/news/1">  Exchange outflows   rise </a></div>
<div class="story"><a class="headline" href="https://other.example/2">Hashrate hits record</a></div>
</body></html>`

func TestHeadlineCache(t *testing.T) {
	cache := newHeadlineCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.set("bitcoin", []types.NewsItem{{Title: "a"}})
	got, found := cache.get("bitcoin")
	if !found || len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("Expected cached headline, got %v %v", got, found)
	}

	now = now.Add(2 * time.Minute)
	if _, found := cache.get("bitcoin"); found {
		t.Error("Expected cache entry to be expired")
	}

	cache.set("ethereum", nil)
	cache.mu.RLock()
	count := len(cache.data)
	cache.mu.RUnlock()
	if count != 1 {
		t.Errorf("Expected expired entries to be dropped on set, got %d", count)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	if cfg.FeedURL != DefaultFeedURL {
		t.Errorf("Expected default feed, got %s", cfg.FeedURL)
	}
	if cfg.CacheDuration != 30*time.Minute {
		t.Errorf("Expected CacheDuration to be 30m, got %v", cfg.CacheDuration)
	}
}

func TestHeadlinesFromFeed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Query().Get("q") != "bitcoin price" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	svc := NewService(&ServiceConfig{FeedURL: srv.URL + "/rss?q={query}", CacheDuration: time.Hour, ScraperTimeout: 5 * time.Second})
	ctx := context.Background()

	items, err := svc.Headlines(ctx, "bitcoin price", 2)
	if err != nil {
		t.Fatalf("Expected headlines, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 headlines, got %d", len(items))
	}
	if items[0].Title != "Bitcoin climbs past resistance" || items[0].URL != "https://example.com/a" || items[0].Source != "Example" {
		t.Errorf("Unexpected first item %+v", items[0])
	}

	if _, err := svc.Headlines(ctx, "bitcoin price", 2); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected second call to be served from cache, got %d hits", n)
	}

	svc.ClearCache()
	if _, err := svc.Headlines(ctx, "bitcoin price", 2); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("Expected refetch after ClearCache, got %d hits", n)
	}
}

func TestHeadlinesFallBackToPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(pageBody))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewService(&ServiceConfig{
		FeedURL:        srv.URL + "/rss?q={query}",
		HTMLURL:        srv.URL + "/search?q={query}",
		HTMLSelector:   "div.story a.headline",
		CacheDuration:  time.Minute,
		ScraperTimeout: 5 * time.Second,
	})

	items, err := svc.Headlines(context.Background(), "bitcoin", 5)
	if err != nil {
		t.Fatalf("Expected page fallback, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 headlines, got %+v", items)
	}
	if items[0].Title != "Exchange outflows rise" || items[0].URL != srv.URL+"/news/1" {
		t.Errorf("Unexpected first item %+v", items[0])
	}
	if items[1].URL != "https://other.example/2" {
		t.Errorf("Expected absolute URL kept, got %s", items[1].URL)
	}
}

func TestHeadlinesAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(&ServiceConfig{FeedURL: srv.URL + "/rss", CacheDuration: time.Minute, ScraperTimeout: 5 * time.Second})
	if _, err := svc.Headlines(context.Background(), "bitcoin", 5); !types.IsFetchError(err) {
		t.Errorf("Expected FetchError, got %v", err)
	}
}

func TestScrapeFeedHonoursCancellation(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScraper(srv.URL+"/rss?q={query}", "", "", 5*time.Second)
	items, err := s.ScrapeFeed(ctx, "bitcoin", 5)
	if err == nil {
		t.Fatalf("Expected cancelled scrape to fail, got %v", items)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("Expected no request after cancellation, got %d", n)
	}
}
