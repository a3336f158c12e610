package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/consuldesk/invoicedesk/libs/cache"
)

func cachedHandler(hits *int) http.Handler {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"code":"SUCCESS"}`))
	})
	mw := withResponseCache(cache.NewMemoryStore(), time.Minute, []string{"/api/v1/clients"}, slog.Default())
	return mw(upstream)
}

func TestResponseCacheServesRepeatGets(t *testing.T) {
	hits := 0
	h := cachedHandler(&hits)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/clients?region=emea", nil)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rw.Code)
		}
	}
	if hits != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits)
	}
}

func TestResponseCacheDistinguishesQueries(t *testing.T) {
	hits := 0
	h := cachedHandler(&hits)

	for _, q := range []string{"?region=emea", "?region=apac"} {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/clients"+q, nil)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
	}
	if hits != 2 {
		t.Fatalf("different queries must not share entries, upstream hit %d times", hits)
	}
}

func TestResponseCachePurgedByWrite(t *testing.T) {
	hits := 0
	h := cachedHandler(&hits)

	get := func() {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/clients", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	get()
	get()
	if hits != 1 {
		t.Fatalf("expected cached second read, upstream hit %d times", hits)
	}

	post := httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/clients", strings.NewReader("{}"))
	h.ServeHTTP(httptest.NewRecorder(), post)

	get()
	if hits != 3 {
		t.Fatalf("write must purge cached reads, upstream hit %d times", hits)
	}
}

func TestResponseCacheSkipsNonListedPaths(t *testing.T) {
	hits := 0
	h := cachedHandler(&hits)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/invoices/preview?client_id=c1", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if hits != 2 {
		t.Fatalf("non-listed path must not be cached, upstream hit %d times", hits)
	}
}
