package invoice

import (
	"math"
	"testing"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

var testClient = model.Client{
	ID:                 "client-1",
	Name:               "TechCorp Solutions",
	PaymentTerms:       "Net 15",
	CancellationPolicy: model.PolicyStrict,
}

func billingSet() []model.Appointment {
	return []model.Appointment{
		{
			PersonName: "Alice Johnson",
			Service:    "Strategic Consultation",
			Rate:       200,
			Status:     model.StatusCompleted,
			StartTime:  time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			PersonName: "Bob Wilson",
			Service:    "Technical Review",
			Rate:       150,
			Status:     model.StatusCancelled,
			StartTime:  time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
			Cancellation: &model.Cancellation{
				HoursBefore:  0.25,
				RefundStatus: model.RefundNone,
				Reviewed:     true,
			},
		},
		{
			PersonName: "Carol Davis",
			Service:    "Project Planning",
			Rate:       300,
			Status:     model.StatusCancelled,
			StartTime:  time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC),
			Cancellation: &model.Cancellation{
				HoursBefore:  24.5,
				RefundStatus: model.RefundFull,
				Reviewed:     true,
			},
		},
	}
}

func TestBuildSelectsBillableAndSums(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	inv := Build(testClient, billingSet(), now)

	// Completed 200 + charged cancellation 150; the fully-refunded one excluded.
	if len(inv.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(inv.Items))
	}
	if inv.Subtotal != 350 {
		t.Fatalf("subtotal = %v, want 350", inv.Subtotal)
	}
	if inv.Tax != 35 {
		t.Fatalf("tax = %v, want 35", inv.Tax)
	}
	if inv.Total != 385 {
		t.Fatalf("total = %v, want 385", inv.Total)
	}

	if inv.Items[0].Description != "Strategic Consultation - Alice Johnson" {
		t.Fatalf("unexpected description %q", inv.Items[0].Description)
	}
	if inv.Items[0].Type != ServiceFee || inv.Items[1].Type != CancellationFee {
		t.Fatalf("unexpected item types: %s, %s", inv.Items[0].Type, inv.Items[1].Type)
	}
	if inv.Status != StatusPending {
		t.Fatalf("status = %s, want pending", inv.Status)
	}
}

func TestBuildMonetaryFieldsDeterministic(t *testing.T) {
	now := time.Now()
	a := Build(testClient, billingSet(), now)
	b := Build(testClient, billingSet(), now)

	if a.Subtotal != b.Subtotal || a.Tax != b.Tax || a.Total != b.Total {
		t.Fatalf("monetary fields must be deterministic: %+v vs %+v", a, b)
	}
	if a.InvoiceNumber == b.InvoiceNumber {
		t.Fatalf("invoice numbers must be unique per build, both %q", a.InvoiceNumber)
	}
}

func TestBuildTotalIsSubtotalPlusTenPercent(t *testing.T) {
	inv := Build(testClient, billingSet(), time.Now())
	if math.Abs(inv.Total-inv.Subtotal*1.10) > 1e-9 {
		t.Fatalf("total %v != subtotal*1.10 (%v)", inv.Total, inv.Subtotal*1.10)
	}
}

func TestBuildDueDateIgnoresPaymentTerms(t *testing.T) {
	// The client says Net 15 but the due date is fixed at issue+30 days.
	now := time.Date(2025, 2, 1, 23, 30, 0, 0, time.UTC)
	inv := Build(testClient, billingSet(), now)

	wantIssue := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if !inv.IssueDate.Equal(wantIssue) {
		t.Fatalf("issue date = %v, want %v", inv.IssueDate, wantIssue)
	}
	if !inv.DueDate.Equal(wantIssue.AddDate(0, 0, 30)) {
		t.Fatalf("due date = %v, want issue+30d", inv.DueDate)
	}
}

func TestBuildEmptySet(t *testing.T) {
	inv := Build(testClient, nil, time.Now())
	if len(inv.Items) != 0 || inv.Subtotal != 0 || inv.Tax != 0 || inv.Total != 0 {
		t.Fatalf("empty appointment set must produce an empty invoice, got %+v", inv)
	}
}
