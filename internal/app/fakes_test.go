package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// ---- fakes ----

type fakeSource struct {
	recs    []map[string]any
	err     error
	listing string
}

func (f *fakeSource) GetReviews(ctx context.Context, listingID string) ([]map[string]any, error) {
	f.listing = listingID
	return f.recs, f.err
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	hits  int
	sets  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.sets++
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(string(c.store[key]), 10, 64)
	n++
	c.store[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

type recMetrics struct {
	records, ok, failed, fetchFailed int
}

func (m *recMetrics) Records(n int) { m.records += n }
func (m *recMetrics) Batch(ok bool) {
	if ok {
		m.ok++
		return
	}
	m.failed++
}
func (m *recMetrics) FetchFailed() { m.fetchFailed++ }

// rawReviews builds n upstream records with distinct ids.
func rawReviews(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"id":          float64(1000 + i),
			"listingId":   float64(10 + i%3),
			"listingName": fmt.Sprintf("Flat %d", i%3),
			"guestName":   fmt.Sprintf("Guest %d", i),
			"rating":      float64(1 + i%5),
			"channel":     []string{"airbnb", "booking.com"}[i%2],
			"submittedAt": fmt.Sprintf("2024-%02d-10 12:00:00", 1+i%12),
		})
	}
	return out
}
