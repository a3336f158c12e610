package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

func TestRefundForDecision(t *testing.T) {
	cases := []struct {
		decision string
		refund   model.RefundStatus
		ok       bool
	}{
		{"free", model.RefundFull, true},
		{"charge", model.RefundNone, true},
		{"", "", false},
		{"maybe", "", false},
	}
	for _, tc := range cases {
		refund, ok := refundForDecision(tc.decision)
		if ok != tc.ok || refund != tc.refund {
			t.Errorf("refundForDecision(%q) = (%q, %v), want (%q, %v)", tc.decision, refund, ok, tc.refund, tc.ok)
		}
	}
}

func TestParsePolicyTier(t *testing.T) {
	if got := parsePolicyTier("STRICT"); got != model.PolicyStrict {
		t.Fatalf("expected strict, got %s", got)
	}
	if got := parsePolicyTier("premium"); got != model.PolicyModerate {
		t.Fatalf("unknown tier should fall back to moderate, got %s", got)
	}
	if got := parsePolicyTier(""); got != model.PolicyModerate {
		t.Fatalf("empty tier should fall back to moderate, got %s", got)
	}
}

func TestCriteriaFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("person_name", "alice")
	q.Set("status", "cancelled")
	q.Set("duration", "short")
	q.Set("date_from", "2025-01-01")
	q.Set("search", "tech")

	c := criteriaFromQuery(q)
	if c.PersonName != "alice" || c.Status != "cancelled" || c.Duration != "short" || c.Search != "tech" {
		t.Fatalf("unexpected criteria: %+v", c)
	}
	if c.DateFrom.IsZero() {
		t.Fatal("date_from should be parsed")
	}
	// Untouched enum params keep the match-all sentinel.
	if c.Type != "all" || c.RefundStatus != "all" || c.CancelledBy != "all" {
		t.Fatalf("absent enum params must stay open: %+v", c)
	}
}

func TestCriteriaFromQueryBadDateIgnored(t *testing.T) {
	q := url.Values{}
	q.Set("date_to", "not-a-date")
	c := criteriaFromQuery(q)
	if !c.DateTo.IsZero() {
		t.Fatalf("unparseable date must stay open, got %v", c.DateTo)
	}
}

func TestWriteListEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeList(rec, 200, []string{"a", "b"}, 2)

	var env struct {
		Code  string   `json:"code"`
		Data  []string `json:"data"`
		Total *int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope json: %v", err)
	}
	if env.Code != "SUCCESS" {
		t.Fatalf("code = %q, want SUCCESS", env.Code)
	}
	if env.Total == nil || *env.Total != 2 {
		t.Fatalf("total = %v, want 2", env.Total)
	}
	if len(env.Data) != 2 {
		t.Fatalf("data length = %d, want 2", len(env.Data))
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, 409, codeAlreadyReviewed, "cancellation already reviewed")

	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope json: %v", err)
	}
	if env.Code != codeAlreadyReviewed || env.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Total != nil {
		t.Fatal("error envelope must not carry a total")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("pass123")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if err := verifyPassword(hash, "pass123"); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}
