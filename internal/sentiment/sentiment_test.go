package sentiment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"crypto-autotrade/internal/types"
)

const fngBody = `{"name":"Fear and Greed Index","data":[
	{"value":"20","value_classification":"Extreme Fear","timestamp":"1700172800"},
	{"value":"30","value_classification":"Fear","timestamp":"1700086400"},
	{"value":"40","value_classification":"Fear","timestamp":"1700000000"}
],"metadata":{"error":null}}`

func TestFearGreedIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fng/" || r.URL.Query().Get("limit") != "3" {
			t.Errorf("Unexpected request %s", r.URL.String())
		}
		w.Write([]byte(fngBody))
	}))
	defer srv.Close()

	reading, err := NewFearGreedClient(srv.URL).Index(context.Background(), 3)
	if err != nil {
		t.Fatalf("Expected reading, got %v", err)
	}
	if reading.Value != 20 || reading.Classification != "Extreme Fear" {
		t.Errorf("Unexpected current reading %+v", reading)
	}
	if reading.Average != 30 || reading.Trend != types.TrendDeteriorating {
		t.Errorf("Expected average 30 and deteriorating, got %v %s", reading.Average, reading.Trend)
	}
	if len(reading.History) != 3 || reading.History[2].Time.Unix() != 1700000000 {
		t.Errorf("Unexpected history %+v", reading.History)
	}
}

func TestFearGreedBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty data", `{"data":[],"metadata":{"error":null}}`},
		{"api error", `{"data":[],"metadata":{"error":"rate limited"}}`},
		{"non numeric", `{"data":[{"value":"x"}]}`},
		{"not json", `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			if _, err := NewFearGreedClient(srv.URL).Index(context.Background(), 1); !types.IsFetchError(err) {
				t.Errorf("Expected FetchError, got %v", err)
			}
		})
	}
}

func TestNewReadingTrend(t *testing.T) {
	r := NewReading([]types.SentimentPoint{{Value: 60}, {Value: 40}, {Value: 50}})
	if r.Trend != types.TrendImproving || r.Average != 50 {
		t.Errorf("Expected improving with average 50, got %+v", r)
	}
	r = NewReading([]types.SentimentPoint{{Value: 50}})
	if r.Trend != types.TrendDeteriorating {
		t.Errorf("Expected a single reading equal to its average to be deteriorating, got %s", r.Trend)
	}
}

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Index(ctx context.Context, limit int) (types.SentimentReading, error) {
	c.calls++
	if c.err != nil {
		return types.SentimentReading{}, c.err
	}
	return NewReading([]types.SentimentPoint{{Value: 55, Classification: "Greed"}}), nil
}

func TestCachedServesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	src := &countingSource{}
	c := NewCached(src, rdb, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := c.Index(ctx, 7)
		if err != nil || r.Value != 55 {
			t.Fatalf("Unexpected reading %+v err=%v", r, err)
		}
	}
	if src.calls != 1 {
		t.Errorf("Expected one upstream call, got %d", src.calls)
	}
	if ttl := mr.TTL("sentiment:fng:7"); ttl != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := c.Index(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("Expected refetch after expiry, got %d calls", src.calls)
	}
}

func TestCachedFallsThroughWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	src := &countingSource{}
	r, err := NewCached(src, rdb, time.Minute).Index(context.Background(), 7)
	if err != nil || r.Value != 55 {
		t.Errorf("Expected direct fetch, got %+v err=%v", r, err)
	}
}

func TestCachedPropagatesSourceError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	boom := errors.New("boom")
	_, err := NewCached(&countingSource{err: boom}, rdb, time.Minute).Index(context.Background(), 7)
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
	if mr.Exists("sentiment:fng:7") {
		t.Error("Expected failures not to be cached")
	}
}
