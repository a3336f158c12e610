package policy

import (
	"testing"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

func TestThresholds(t *testing.T) {
	cases := []struct {
		tier model.PolicyTier
		want float64
	}{
		{model.PolicyStrict, 48},
		{model.PolicyModerate, 24},
		{model.PolicyFlexible, 12},
		{model.PolicyTier("unknown"), 24},
		{model.PolicyTier(""), 24},
	}
	for _, c := range cases {
		if got := Threshold(c.tier); got != c.want {
			t.Errorf("Threshold(%q) = %v, want %v", c.tier, got, c.want)
		}
	}
}

func TestDecideAboveAndBelowThreshold(t *testing.T) {
	tiers := []model.PolicyTier{model.PolicyStrict, model.PolicyModerate, model.PolicyFlexible}
	for _, tier := range tiers {
		th := Threshold(tier)
		if got := Decide(th+1, tier, model.RefundNone, true); got != OutcomeFree {
			t.Errorf("tier %s: %vh before should be free, got %s", tier, th+1, got)
		}
		if got := Decide(th-1, tier, model.RefundNone, true); got != OutcomeCharge {
			t.Errorf("tier %s: %vh before should be charge, got %s", tier, th-1, got)
		}
	}
}

func TestDecideBoundaryEscalates(t *testing.T) {
	// Exactly on the threshold, approached from either side within epsilon,
	// goes to a human.
	for _, h := range []float64{24, 24.0004, 23.9996} {
		if got := Decide(h, model.PolicyModerate, model.RefundNone, true); got != OutcomeNeedsReview {
			t.Errorf("Decide(%v, moderate) = %s, want needs_review", h, got)
		}
	}
}

func TestDecidePendingAlwaysWins(t *testing.T) {
	// An unresolved pending case needs review even when well past the free window.
	if got := Decide(100, model.PolicyStrict, model.RefundPending, false); got != OutcomeNeedsReview {
		t.Fatalf("pending+unreviewed should need review, got %s", got)
	}
	// Once reviewed, hours decide again.
	if got := Decide(100, model.PolicyStrict, model.RefundFull, true); got != OutcomeFree {
		t.Fatalf("reviewed far-out cancellation should be free, got %s", got)
	}
}

func TestDecideScenarios(t *testing.T) {
	// Boundary plus pending: moderate client cancelled exactly 24h before.
	if got := Decide(24, model.PolicyModerate, model.RefundPending, false); got != OutcomeNeedsReview {
		t.Fatalf("24h/moderate/pending = %s, want needs_review", got)
	}
	// 25h before a moderate threshold is free regardless of past refund state.
	if got := Decide(25, model.PolicyModerate, model.RefundNone, true); got != OutcomeFree {
		t.Fatalf("25h/moderate = %s, want free", got)
	}
}

func TestDecideAppointment(t *testing.T) {
	completed := model.Appointment{Status: model.StatusCompleted}
	if _, ok := DecideAppointment(completed, model.PolicyModerate); ok {
		t.Fatal("completed appointment must not produce an outcome")
	}

	cancelled := model.Appointment{
		Status: model.StatusCancelled,
		Cancellation: &model.Cancellation{
			HoursBefore:  0.25,
			RefundStatus: model.RefundNone,
			Reviewed:     true,
		},
	}
	got, ok := DecideAppointment(cancelled, model.PolicyFlexible)
	if !ok || got != OutcomeCharge {
		t.Fatalf("late cancellation = (%s, %v), want (charge, true)", got, ok)
	}
}
