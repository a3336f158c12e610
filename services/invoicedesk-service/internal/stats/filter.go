package stats

import (
	"strconv"
	"strings"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

// matchAll is the sentinel for enum/bucket filters meaning "no constraint".
// Text filters use the empty string for the same purpose.
const matchAll = "all"

// Criteria is a conjunction of per-field predicates. The zero value (with
// enum fields set to "all" via DefaultCriteria) matches every appointment.
type Criteria struct {
	PersonName       string
	Service          string
	Company          string
	ContactName      string
	ContactEmail     string
	ProfessionalName string
	Specialty        string
	Location         string

	Type         string // exact, "all" = any
	Status       string // exact, "all" = any
	RefundStatus string // exact on cancellation, "none" also matches uncancelled

	DateFrom time.Time // inclusive, zero = open
	DateTo   time.Time // inclusive, zero = open

	// Duration buckets: "short" <=30, "medium" 31-60, "long" >60.
	Duration string

	// CancelledBy buckets: "none" = not cancelled, "client", "professional".
	CancelledBy string

	Rate              string // substring over the formatted rate
	CancellationHours string // substring over the formatted hours-before

	Search string // free-text across a fixed field set
}

// DefaultCriteria matches everything.
func DefaultCriteria() Criteria {
	return Criteria{
		Type:         matchAll,
		Status:       matchAll,
		RefundStatus: matchAll,
		Duration:     matchAll,
		CancelledBy:  matchAll,
	}
}

// Filter returns the appointments matching every predicate in c. Absent or
// nil fields are treated as non-matching, never as errors.
func Filter(appointments []model.Appointment, c Criteria) []model.Appointment {
	out := make([]model.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if matches(appt, c) {
			out = append(out, appt)
		}
	}
	return out
}

func matches(appt model.Appointment, c Criteria) bool {
	if !containsFold(appt.PersonName, c.PersonName) ||
		!containsFold(appt.Service, c.Service) ||
		!containsFold(appt.Company, c.Company) ||
		!containsFold(appt.ContactName, c.ContactName) ||
		!containsFold(appt.ContactEmail, c.ContactEmail) ||
		!containsFold(appt.ProfessionalName, c.ProfessionalName) ||
		!containsFold(appt.Specialty, c.Specialty) ||
		!containsFold(appt.Location, c.Location) {
		return false
	}

	if !matchesEnum(appt.Type, c.Type) {
		return false
	}
	if !matchesEnum(string(appt.Status), c.Status) {
		return false
	}
	if !matchesRefund(appt, c.RefundStatus) {
		return false
	}
	if !matchesDateRange(appt.StartTime, c.DateFrom, c.DateTo) {
		return false
	}
	if !matchesDuration(appt.DurationMins, c.Duration) {
		return false
	}
	if !matchesCancelledBy(appt, c.CancelledBy) {
		return false
	}

	if c.Rate != "" && !strings.Contains(formatFloat(appt.Rate), c.Rate) {
		return false
	}
	if c.CancellationHours != "" {
		if appt.Cancellation == nil {
			return false
		}
		if !strings.Contains(formatFloat(appt.Cancellation.HoursBefore), c.CancellationHours) {
			return false
		}
	}

	return matchesSearch(appt, c.Search)
}

func containsFold(value, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

func matchesEnum(value, filter string) bool {
	if filter == "" || filter == matchAll {
		return true
	}
	return value == filter
}

func matchesRefund(appt model.Appointment, filter string) bool {
	switch filter {
	case "", matchAll:
		return true
	case "none":
		// "none" covers charged cancellations and appointments never cancelled.
		if appt.Cancellation == nil {
			return true
		}
		return appt.Cancellation.RefundStatus == model.RefundNone
	default:
		return appt.Cancellation != nil && string(appt.Cancellation.RefundStatus) == filter
	}
}

func matchesDateRange(t time.Time, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func matchesDuration(mins int, bucket string) bool {
	switch bucket {
	case "", matchAll:
		return true
	case "short":
		return mins <= 30
	case "medium":
		return mins > 30 && mins <= 60
	case "long":
		return mins > 60
	default:
		return true
	}
}

func matchesCancelledBy(appt model.Appointment, bucket string) bool {
	switch bucket {
	case "", matchAll:
		return true
	case "none":
		return appt.Cancellation == nil
	case "client":
		return appt.Cancellation != nil && appt.Cancellation.CancelledBy == model.CancelledByClient
	case "professional":
		return appt.Cancellation != nil && appt.Cancellation.CancelledBy.IsProfessional()
	default:
		return true
	}
}

// matchesSearch matches if any of a fixed field set contains the term.
func matchesSearch(appt model.Appointment, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	fields := []string{
		appt.PersonName,
		appt.ProfessionalName,
		appt.Specialty,
		appt.Company,
		appt.ContactName,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
