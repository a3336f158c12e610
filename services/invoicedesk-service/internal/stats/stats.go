package stats

import (
	"math"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// CancellationStats are the header aggregates for the appointments screen,
// computed over the full (unfiltered) collection.
type CancellationStats struct {
	Total                   int     `json:"total"`
	Cancelled               int     `json:"cancelled"`
	CancelledByClient       int     `json:"cancelled_by_client"`
	CancelledByProfessional int     `json:"cancelled_by_professional"`
	AverageCancellationTime int     `json:"average_cancellation_time"`
	CancellationRate        float64 `json:"cancellation_rate"`
}

// Summarize computes cancellation aggregates. All ratios are defined for the
// empty collection: no division ever yields NaN or Inf.
func Summarize(appointments []model.Appointment) CancellationStats {
	var s CancellationStats
	s.Total = len(appointments)

	var hoursSum float64
	var hoursCount int
	for _, appt := range appointments {
		c := appt.Cancellation
		if appt.Status != model.StatusCancelled || c == nil {
			continue
		}
		s.Cancelled++
		switch {
		case c.CancelledBy == model.CancelledByClient:
			s.CancelledByClient++
		case c.CancelledBy.IsProfessional():
			s.CancelledByProfessional++
		}
		if c.HoursBefore > 0 {
			hoursSum += c.HoursBefore
			hoursCount++
		}
	}

	if hoursCount > 0 {
		s.AverageCancellationTime = int(math.Round(hoursSum / float64(hoursCount)))
	}
	if s.Total > 0 {
		s.CancellationRate = round1(float64(s.Cancelled) / float64(s.Total) * 100)
	}
	return s
}

// Metrics are the invoice-desk aggregates for one client's appointment set.
type Metrics struct {
	TotalContracts         int     `json:"total_contracts"`
	CancelledContracts     int     `json:"cancelled_contracts"`
	CancelledWithoutRefund int     `json:"cancelled_without_refund"`
	PendingReview          int     `json:"pending_review"`
	TotalCharge            float64 `json:"total_charge"`
	CancellationRate       float64 `json:"cancellation_rate"`
}

// CalculateMetrics derives billing-facing aggregates over a client's appointments.
func CalculateMetrics(appointments []model.Appointment) Metrics {
	var m Metrics
	m.TotalContracts = len(appointments)

	for _, appt := range appointments {
		if appt.Status == model.StatusCancelled {
			m.CancelledContracts++
		}
		c := appt.Cancellation
		if c != nil && c.RefundStatus == model.RefundNone {
			m.CancelledWithoutRefund++
		}
		if c != nil && c.RefundStatus == model.RefundPending {
			m.PendingReview++
		}
		if isBillable(appt) {
			m.TotalCharge += appt.Rate
		}
	}

	if m.TotalContracts > 0 {
		m.CancellationRate = round1(float64(m.CancelledContracts) / float64(m.TotalContracts) * 100)
	}
	return m
}

func isBillable(appt model.Appointment) bool {
	if appt.Status == model.StatusCompleted {
		return true
	}
	return appt.Cancellation != nil && appt.Cancellation.RefundStatus == model.RefundNone
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
