package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCSRFIssueVerify(t *testing.T) {
	issuer := newCSRFIssuer("secret", time.Hour)
	token, err := issuer.Issue(time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !issuer.Verify(token, time.Now()) {
		t.Fatal("freshly issued token should verify")
	}
	if issuer.Verify(token, time.Now().Add(2*time.Hour)) {
		t.Fatal("expired token should not verify")
	}
	if issuer.Verify(token+"x", time.Now()) {
		t.Fatal("tampered token should not verify")
	}
	other := newCSRFIssuer("other-secret", time.Hour)
	if other.Verify(token, time.Now()) {
		t.Fatal("token signed with a different secret should not verify")
	}
}

func TestCSRFTokenHandlerEnvelope(t *testing.T) {
	issuer := newCSRFIssuer("secret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/csrf-token", nil)
	rw := httptest.NewRecorder()
	issuer.TokenHandler(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var env struct {
		Code string            `json:"code"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if env.Code != "SUCCESS" {
		t.Fatalf("code = %q, want SUCCESS", env.Code)
	}
	if !issuer.Verify(env.Data[csrfHeader], time.Now()) {
		t.Fatal("token from handler should verify")
	}
}

func TestRequireCSRF(t *testing.T) {
	issuer := newCSRFIssuer("secret", time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := requireCSRF(ok, issuer, "/api/v1/auth/login")

	// GET passes without a token.
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/v1/clients", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("GET should bypass csrf, got %d", rw.Code)
	}

	// POST without a token is rejected.
	req = httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/clients", strings.NewReader("{}"))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("POST without token should 403, got %d", rw.Code)
	}

	// Exempt path passes.
	req = httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/auth/login", strings.NewReader("{}"))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("exempt path should pass, got %d", rw.Code)
	}

	// POST with a valid token passes.
	token, err := issuer.Issue(time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/clients", strings.NewReader("{}"))
	req.Header.Set(csrfHeader, token)
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("POST with valid token should pass, got %d", rw.Code)
	}
}
