package stats

import (
	"testing"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

func cancelled(by model.CancelActor, hoursBefore float64, refund model.RefundStatus, reviewed bool) model.Appointment {
	return model.Appointment{
		Status: model.StatusCancelled,
		Cancellation: &model.Cancellation{
			CancelledBy:  by,
			HoursBefore:  hoursBefore,
			RefundStatus: refund,
			Reviewed:     reviewed,
		},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (CancellationStats{}) {
		t.Fatalf("empty collection should yield all zeroes, got %+v", s)
	}
}

func TestSummarizeNoDefinedHours(t *testing.T) {
	appts := []model.Appointment{
		{Status: model.StatusCompleted},
		cancelled(model.CancelledByClient, 0, model.RefundNone, true),
	}
	s := Summarize(appts)
	if s.AverageCancellationTime != 0 {
		t.Fatalf("no defined hours should average to 0, got %d", s.AverageCancellationTime)
	}
	if s.Cancelled != 1 || s.CancelledByClient != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
}

func TestSummarizePartitionsAndAverages(t *testing.T) {
	appts := []model.Appointment{
		{Status: model.StatusCompleted},
		{Status: model.StatusScheduled},
		cancelled(model.CancelledByClient, 14.25, model.RefundFull, true),
		cancelled(model.CancelledByFirm, 25.75, model.RefundNone, true),
		cancelled(model.CancelledByClinic, 2, model.RefundPending, false),
		cancelled(model.CancelActor("unknown"), 6, model.RefundNone, true),
	}
	s := Summarize(appts)

	if s.Total != 6 || s.Cancelled != 4 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.CancelledByClient != 1 || s.CancelledByProfessional != 2 {
		t.Fatalf("unexpected partition (unknown actor must count toward neither): %+v", s)
	}
	// (14.25+25.75+2+6)/4 = 12
	if s.AverageCancellationTime != 12 {
		t.Fatalf("average = %d, want 12", s.AverageCancellationTime)
	}
	// 4/6*100 = 66.666 -> 66.7
	if s.CancellationRate != 66.7 {
		t.Fatalf("rate = %v, want 66.7", s.CancellationRate)
	}
}

func TestCalculateMetrics(t *testing.T) {
	appts := []model.Appointment{
		{Status: model.StatusCompleted, Rate: 200},
		cancelled(model.CancelledByClient, 0.25, model.RefundNone, true),
		cancelled(model.CancelledByClient, 24, model.RefundPending, false),
	}
	appts[1].Rate = 150
	appts[2].Rate = 300

	m := CalculateMetrics(appts)
	if m.TotalContracts != 3 || m.CancelledContracts != 2 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if m.CancelledWithoutRefund != 1 || m.PendingReview != 1 {
		t.Fatalf("unexpected refund partition: %+v", m)
	}
	// completed 200 + charged cancellation 150; pending one excluded.
	if m.TotalCharge != 350 {
		t.Fatalf("total charge = %v, want 350", m.TotalCharge)
	}
	if m.CancellationRate != 66.7 {
		t.Fatalf("rate = %v, want 66.7", m.CancellationRate)
	}
}

func TestCalculateMetricsEmpty(t *testing.T) {
	m := CalculateMetrics(nil)
	if m.CancellationRate != 0 || m.TotalCharge != 0 {
		t.Fatalf("empty set must not divide, got %+v", m)
	}
}

func TestFilterIdentityWithDefaults(t *testing.T) {
	appts := []model.Appointment{
		{PersonName: "Alice Johnson", Status: model.StatusCompleted, StartTime: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)},
		cancelled(model.CancelledByClient, 14.25, model.RefundFull, true),
	}
	got := Filter(appts, DefaultCriteria())
	if len(got) != len(appts) {
		t.Fatalf("default criteria must be identity: got %d of %d", len(got), len(appts))
	}
}
