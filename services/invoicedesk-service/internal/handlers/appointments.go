package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/export"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/stats"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

type appointmentLister interface {
	List(ctx context.Context, limit int) ([]model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
}

type AppointmentHandler struct {
	appointments appointmentLister
}

func NewAppointmentHandler(appointments *storage.AppointmentRepository) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

type cancellationDTO struct {
	Timestamp    time.Time `json:"timestamp"`
	HoursBefore  float64   `json:"hours_before"`
	RefundStatus string    `json:"refund_status"`
	Reason       string    `json:"reason,omitempty"`
	Reviewed     bool      `json:"reviewed"`
	CancelledBy  string    `json:"cancelled_by"`
}

type appointmentDTO struct {
	ID               string           `json:"id"`
	ClientID         string           `json:"client_id"`
	PersonName       string           `json:"person_name"`
	Service          string           `json:"service"`
	StartTime        time.Time        `json:"start_time"`
	DurationMins     int              `json:"duration_mins"`
	Rate             float64          `json:"rate"`
	Status           string           `json:"status"`
	Cancellation     *cancellationDTO `json:"cancellation,omitempty"`
	Company          string           `json:"company,omitempty"`
	ContactName      string           `json:"contact_name,omitempty"`
	ContactEmail     string           `json:"contact_email,omitempty"`
	ProfessionalName string           `json:"professional_name,omitempty"`
	Type             string           `json:"type,omitempty"`
	Specialty        string           `json:"specialty,omitempty"`
	Location         string           `json:"location,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

func appointmentToDTO(appt model.Appointment) appointmentDTO {
	dto := appointmentDTO{
		ID:               appt.ID,
		ClientID:         appt.ClientID,
		PersonName:       appt.PersonName,
		Service:          appt.Service,
		StartTime:        appt.StartTime,
		DurationMins:     appt.DurationMins,
		Rate:             appt.Rate,
		Status:           string(appt.Status),
		Company:          appt.Company,
		ContactName:      appt.ContactName,
		ContactEmail:     appt.ContactEmail,
		ProfessionalName: appt.ProfessionalName,
		Type:             appt.Type,
		Specialty:        appt.Specialty,
		Location:         appt.Location,
		Notes:            appt.Notes,
	}
	if c := appt.Cancellation; c != nil {
		dto.Cancellation = &cancellationDTO{
			Timestamp:    c.Timestamp,
			HoursBefore:  c.HoursBefore,
			RefundStatus: string(c.RefundStatus),
			Reason:       c.Reason,
			Reviewed:     c.Reviewed,
			CancelledBy:  string(c.CancelledBy),
		}
	}
	return dto
}

// criteriaFromQuery maps list query params onto filter criteria. Absent
// params keep the match-everything defaults.
func criteriaFromQuery(q url.Values) stats.Criteria {
	c := stats.DefaultCriteria()
	c.PersonName = q.Get("person_name")
	c.Service = q.Get("service")
	c.Company = q.Get("company")
	c.ContactName = q.Get("contact_name")
	c.ContactEmail = q.Get("contact_email")
	c.ProfessionalName = q.Get("professional_name")
	c.Specialty = q.Get("specialty")
	c.Location = q.Get("location")
	c.Rate = q.Get("rate")
	c.CancellationHours = q.Get("cancellation_hours")
	c.Search = q.Get("search")

	if v := q.Get("type"); v != "" {
		c.Type = v
	}
	if v := q.Get("status"); v != "" {
		c.Status = v
	}
	if v := q.Get("refund_status"); v != "" {
		c.RefundStatus = v
	}
	if v := q.Get("duration"); v != "" {
		c.Duration = v
	}
	if v := q.Get("cancelled_by"); v != "" {
		c.CancelledBy = v
	}
	if t, ok := parseDateParam(q.Get("date_from")); ok {
		c.DateFrom = t
	}
	if t, ok := parseDateParam(q.Get("date_to")); ok {
		c.DateTo = t
	}
	return c
}

func parseDateParam(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (h *AppointmentHandler) load(r *http.Request) ([]model.Appointment, error) {
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientID != "" && clientID != "all" {
		return h.appointments.ListByClient(r.Context(), clientID, 0)
	}
	return h.appointments.List(r.Context(), 0)
}

// List serves /api/v1/appointments: the filtered set plus the aggregate
// cancellation stats and desk metrics. The aggregates are computed over the
// full client-scoped collection, not the filtered one, so the header figures
// stay stable while the admin narrows the table.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	appointments, err := h.load(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list appointments")
		return
	}

	filtered := stats.Filter(appointments, criteriaFromQuery(r.URL.Query()))
	out := make([]appointmentDTO, 0, len(filtered))
	for _, appt := range filtered {
		out = append(out, appointmentToDTO(appt))
	}

	writeList(w, http.StatusOK, map[string]any{
		"appointments": out,
		"stats":        stats.Summarize(appointments),
		"metrics":      stats.CalculateMetrics(appointments),
	}, len(out))
}

// Export serves /api/v1/appointments/export as an xlsx download of the
// filtered set.
func (h *AppointmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	appointments, err := h.load(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list appointments")
		return
	}
	filtered := stats.Filter(appointments, criteriaFromQuery(r.URL.Query()))

	data, err := export.AppointmentsXLSX(filtered)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to build export")
		return
	}

	filename := fmt.Sprintf("appointments-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
