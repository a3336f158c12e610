package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/stats"
)

type stubAppointmentLister struct {
	appointments []model.Appointment
	lastClientID string
}

func (s *stubAppointmentLister) List(_ context.Context, _ int) ([]model.Appointment, error) {
	return s.appointments, nil
}

func (s *stubAppointmentLister) ListByClient(_ context.Context, clientID string, _ int) ([]model.Appointment, error) {
	s.lastClientID = clientID
	return s.appointments, nil
}

func listFixture() []model.Appointment {
	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return []model.Appointment{
		{ID: "a1", ClientID: "c1", PersonName: "Alice", Service: "Consulting", StartTime: start, DurationMins: 60, Rate: 200, Status: model.StatusCompleted},
		{ID: "a2", ClientID: "c1", PersonName: "Bob", Service: "Audit", StartTime: start.AddDate(0, 0, 1), DurationMins: 30, Rate: 150, Status: model.StatusCancelled,
			Cancellation: &model.Cancellation{Timestamp: start, HoursBefore: 10, RefundStatus: model.RefundNone, Reviewed: true, CancelledBy: model.CancelledByClient}},
		{ID: "a3", ClientID: "c1", PersonName: "Carol", Service: "Consulting", StartTime: start.AddDate(0, 0, 2), DurationMins: 45, Rate: 300, Status: model.StatusScheduled},
	}
}

type listResponse struct {
	Code string `json:"code"`
	Data struct {
		Appointments []appointmentDTO        `json:"appointments"`
		Stats        stats.CancellationStats `json:"stats"`
		Metrics      stats.Metrics           `json:"metrics"`
	} `json:"data"`
	Total int `json:"total"`
}

func TestListStatsCoverFullCollection(t *testing.T) {
	h := &AppointmentHandler{appointments: &stubAppointmentLister{appointments: listFixture()}}

	req := httptest.NewRequest("GET", "/api/v1/appointments?status=completed", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// The table honors the filter.
	if len(resp.Data.Appointments) != 1 || resp.Data.Appointments[0].ID != "a1" {
		t.Fatalf("expected only the completed appointment, got %+v", resp.Data.Appointments)
	}
	if resp.Total != 1 {
		t.Fatalf("expected total 1, got %d", resp.Total)
	}

	// The header aggregates do not: they cover the whole collection even
	// though the filter excluded the cancelled appointment.
	if resp.Data.Stats.Total != 3 {
		t.Fatalf("expected stats.total 3, got %d", resp.Data.Stats.Total)
	}
	if resp.Data.Stats.Cancelled != 1 {
		t.Fatalf("expected stats.cancelled 1, got %d", resp.Data.Stats.Cancelled)
	}
	if resp.Data.Stats.CancelledByClient != 1 {
		t.Fatalf("expected stats.cancelled_by_client 1, got %d", resp.Data.Stats.CancelledByClient)
	}
	if resp.Data.Stats.AverageCancellationTime != 10 {
		t.Fatalf("expected average cancellation time 10, got %d", resp.Data.Stats.AverageCancellationTime)
	}
	if resp.Data.Stats.CancellationRate != 33.3 {
		t.Fatalf("expected cancellation rate 33.3, got %v", resp.Data.Stats.CancellationRate)
	}
	if resp.Data.Metrics.TotalContracts != 3 {
		t.Fatalf("expected metrics.total_contracts 3, got %d", resp.Data.Metrics.TotalContracts)
	}
	if resp.Data.Metrics.CancelledWithoutRefund != 1 {
		t.Fatalf("expected metrics.cancelled_without_refund 1, got %d", resp.Data.Metrics.CancelledWithoutRefund)
	}
}

func TestListScopesToClient(t *testing.T) {
	lister := &stubAppointmentLister{appointments: listFixture()}
	h := &AppointmentHandler{appointments: lister}

	req := httptest.NewRequest("GET", "/api/v1/appointments?client_id=c1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if lister.lastClientID != "c1" {
		t.Fatalf("expected client-scoped load, got %q", lister.lastClientID)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Appointments) != 3 || resp.Data.Stats.Total != 3 {
		t.Fatalf("expected the unfiltered client set, got %d appointments, stats.total %d",
			len(resp.Data.Appointments), resp.Data.Stats.Total)
	}
}
