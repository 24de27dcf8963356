package hostaway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"flex_reviews/internal/adapters/hostaway"
	"flex_reviews/internal/domain"
)

func TestClient_GetReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "success",
				"result": []any{map[string]any{"id": 7453, "rating": 9}},
			})
		}
	}))
	defer ts.Close()

	cl, err := hostaway.New(ts.URL, "61148", "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.GetReviews(ctx, "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}
	if id, ok := got[0]["id"].(json.Number); !ok || id.String() != "7453" {
		t.Fatalf("unexpected payload: %+v", got[0])
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetReviews_RequestShape(t *testing.T) {
	var path, account, auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, account, auth = r.URL.Path, r.URL.Query().Get("accountId"), r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL+"/v1/", "61148", "secret", 100)
	got, err := cl.GetReviews(context.Background(), "155613")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
	if path != "/v1/listings/155613/reviews" {
		t.Fatalf("path = %q", path)
	}
	if account != "61148" {
		t.Fatalf("accountId = %q", account)
	}
	if auth != "Bearer secret" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestClient_GetReviews_NonArrayResultIsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"unexpected":true}}`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "", "k", 100)
	got, err := cl.GetReviews(context.Background(), "")
	if err != nil || len(got) != 0 {
		t.Fatalf("want empty result, got %v, %v", got, err)
	}
}

func TestClient_GetReviews_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "", "bad", 100)
	_, err := cl.GetReviews(context.Background(), "")
	if !errors.Is(err, hostaway.ErrUnauthorized) || !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("want ErrUnauthorized wrapping ErrUpstream, got %v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := hostaway.New(" ", "", "", 1); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
