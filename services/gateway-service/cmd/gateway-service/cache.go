package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/consuldesk/invoicedesk/libs/cache"
	"github.com/consuldesk/invoicedesk/libs/httpx"
)

// cachedResponse is the stored form of an upstream 200. Only successful GET
// responses are cached; everything else passes through.
type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.status == http.StatusOK {
		w.body = append(w.body, p...)
	}
	return w.ResponseWriter.Write(p)
}

// withResponseCache serves repeated GETs on the listed path prefixes from the
// TTL cache. Any mutating request purges every cached entry under the API
// root, so stale lists never outlive a write.
func withResponseCache(store cache.Store, ttl time.Duration, prefixes []string, logger *slog.Logger) httpx.Middleware {
	cacheable := func(r *http.Request) bool {
		if r.Method != http.MethodGet {
			return false
		}
		for _, p := range prefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				next.ServeHTTP(w, r)
				store.DeletePrefix(r.Context(), "/api/v1")
				return
			}
			if !cacheable(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.Path + "?" + r.URL.RawQuery
			if raw, ok := store.Get(r.Context(), key); ok {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					w.Header().Set("Content-Type", cached.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write(cached.Body)
					return
				}
			}

			cw := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			if cw.status != http.StatusOK || len(cw.body) == 0 {
				return
			}
			raw, err := json.Marshal(cachedResponse{
				ContentType: cw.Header().Get("Content-Type"),
				Body:        cw.body,
			})
			if err != nil {
				logger.Error("response cache encode failed", "key", key, "err", err)
				return
			}
			store.Set(r.Context(), key, raw, ttl)
		})
	}
}
