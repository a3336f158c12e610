package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const csrfHeader = "x-csrf-token"

// csrfIssuer hands out stateless HMAC tokens. The admin frontend fetches one
// from /csrf-token and replays it on every mutating request.
type csrfIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newCSRFIssuer(secret string, ttl time.Duration) *csrfIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &csrfIssuer{secret: []byte(secret), ttl: ttl}
}

func (c *csrfIssuer) Issue(now time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	msg := base64.RawURLEncoding.EncodeToString(nonce) + "." + strconv.FormatInt(now.Add(c.ttl).Unix(), 10)
	return msg + "." + c.sign(msg), nil
}

func (c *csrfIssuer) Verify(token string, now time.Time) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	msg := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(c.sign(msg))) {
		return false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return false
	}
	return now.Unix() < exp
}

func (c *csrfIssuer) sign(msg string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(msg))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// TokenHandler serves GET /csrf-token in the frontend's response envelope.
func (c *csrfIssuer) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token, err := c.Issue(time.Now())
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": "SUCCESS",
		"data": map[string]string{csrfHeader: token},
	})
}

// requireCSRF rejects mutating requests without a valid token. Safe methods
// and the exempt paths (login, the token endpoint itself) pass through.
func requireCSRF(next http.Handler, issuer *csrfIssuer, exempt ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		for _, path := range exempt {
			if r.URL.Path == path {
				next.ServeHTTP(w, r)
				return
			}
		}
		if !issuer.Verify(r.Header.Get(csrfHeader), time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    "CSRF_ERROR",
				"message": "missing or invalid csrf token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
