package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type counterStore struct {
	counts map[string]int64
	keys   []string
	err    error
}

func (c *counterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	c.keys = append(c.keys, key)
	return c.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAsTenant(h http.Handler, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/detect", nil)
	if tenantID != "" {
		req = req.WithContext(WithTenantID(req.Context(), tenantID))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestTenantRateLimitBlocksAfterLimit(t *testing.T) {
	store := &counterStore{}
	h := TenantRateLimit(NewRateLimitPolicy("Detect", time.Minute, 2), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		if resp := serveAsTenant(h, "T1"); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, resp.Code)
		}
	}
	resp := serveAsTenant(h, "T1")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", resp.Header().Get("Retry-After"))
	}
	if store.keys[0] != "mp:rate_limit:detect:T1" {
		t.Fatalf("unexpected key %s", store.keys[0])
	}

	if resp := serveAsTenant(h, "T2"); resp.Code != http.StatusOK {
		t.Fatalf("other tenants keep their own budget, got %d", resp.Code)
	}
}

func TestTenantRateLimitFallsBackToIP(t *testing.T) {
	store := &counterStore{}
	h := TenantRateLimit(NewRateLimitPolicy("imports", time.Minute, 5), store, nil)(okHandler())
	serveAsTenant(h, "")
	if store.keys[0] != "mp:rate_limit:imports:192.0.2.1" {
		t.Fatalf("expected ip key, got %s", store.keys[0])
	}
}

func TestTenantRateLimitDisabledPolicy(t *testing.T) {
	store := &counterStore{}
	h := TenantRateLimit(NewRateLimitPolicy("exports", time.Minute, 0), store, nil)(okHandler())
	for i := 0; i < 5; i++ {
		if resp := serveAsTenant(h, "T1"); resp.Code != http.StatusOK {
			t.Fatalf("expected disabled policy to pass, got %d", resp.Code)
		}
	}
	if len(store.keys) != 0 {
		t.Fatal("disabled policy must not touch redis")
	}
}

func TestTenantRateLimitStoreFailure(t *testing.T) {
	store := &counterStore{err: errors.New("redis down")}
	h := TenantRateLimit(NewRateLimitPolicy("detect", time.Minute, 1), store, nil)(okHandler())
	if resp := serveAsTenant(h, "T1"); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
