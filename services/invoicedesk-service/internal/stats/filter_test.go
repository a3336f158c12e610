package stats

import (
	"testing"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
)

func sampleAppointments() []model.Appointment {
	return []model.Appointment{
		{
			ID:               "APT-001",
			PersonName:       "Sarah Johnson",
			Service:          "Strategic Consultation",
			Company:          "TechCorp Inc",
			ContactName:      "John Smith",
			ContactEmail:     "john.smith@example.com",
			ProfessionalName: "Dr. Michael Chen",
			Type:             "medical",
			Specialty:        "Cardiology",
			Location:         "Medical Center - Room 205",
			DurationMins:     30,
			Rate:             200,
			Status:           model.StatusCompleted,
			StartTime:        time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		},
		{
			ID:               "APT-002",
			PersonName:       "Robert Martinez",
			Service:          "Technical Review",
			Company:          "Innovate Labs",
			ProfessionalName: "Dr. Emily Wilson",
			Type:             "medical",
			Specialty:        "Dermatology",
			DurationMins:     45,
			Rate:             150,
			Status:           model.StatusCancelled,
			StartTime:        time.Date(2025, 1, 16, 10, 30, 0, 0, time.UTC),
			Cancellation: &model.Cancellation{
				CancelledBy:  model.CancelledByClient,
				HoursBefore:  14.25,
				RefundStatus: model.RefundFull,
				Reviewed:     true,
			},
		},
		{
			ID:               "APT-003",
			PersonName:       "Jennifer Kim",
			Service:          "Contract Review",
			Company:          "Global Solutions",
			ProfessionalName: "Atty. James Rodriguez",
			Type:             "legal",
			Specialty:        "Corporate Law",
			DurationMins:     90,
			Rate:             250,
			Status:           model.StatusCancelled,
			StartTime:        time.Date(2025, 1, 20, 14, 0, 0, 0, time.UTC),
			Cancellation: &model.Cancellation{
				CancelledBy:  model.CancelledByFirm,
				HoursBefore:  25.75,
				RefundStatus: model.RefundNone,
				Reviewed:     true,
			},
		},
	}
}

func TestFilterTextSubstringCaseInsensitive(t *testing.T) {
	c := DefaultCriteria()
	c.PersonName = "sarah"
	got := Filter(sampleAppointments(), c)
	if len(got) != 1 || got[0].ID != "APT-001" {
		t.Fatalf("expected only APT-001, got %d results", len(got))
	}
}

func TestFilterEnumExact(t *testing.T) {
	c := DefaultCriteria()
	c.Type = "legal"
	got := Filter(sampleAppointments(), c)
	if len(got) != 1 || got[0].ID != "APT-003" {
		t.Fatalf("expected only APT-003, got %d results", len(got))
	}

	c = DefaultCriteria()
	c.Status = "cancelled"
	if got := Filter(sampleAppointments(), c); len(got) != 2 {
		t.Fatalf("expected 2 cancelled, got %d", len(got))
	}
}

func TestFilterDateRangeInclusive(t *testing.T) {
	c := DefaultCriteria()
	c.DateFrom = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	c.DateTo = time.Date(2025, 1, 16, 23, 59, 59, 0, time.UTC)
	got := Filter(sampleAppointments(), c)
	if len(got) != 1 || got[0].ID != "APT-002" {
		t.Fatalf("expected only APT-002 inside range, got %d", len(got))
	}

	// Open-ended bounds.
	c = DefaultCriteria()
	c.DateFrom = time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	if got := Filter(sampleAppointments(), c); len(got) != 2 {
		t.Fatalf("expected 2 on/after Jan 16, got %d", len(got))
	}
}

func TestFilterDurationBuckets(t *testing.T) {
	cases := map[string]string{
		"short":  "APT-001",
		"medium": "APT-002",
		"long":   "APT-003",
	}
	for bucket, wantID := range cases {
		c := DefaultCriteria()
		c.Duration = bucket
		got := Filter(sampleAppointments(), c)
		if len(got) != 1 || got[0].ID != wantID {
			t.Errorf("bucket %q: expected %s, got %d results", bucket, wantID, len(got))
		}
	}
}

func TestFilterCancelledByBuckets(t *testing.T) {
	c := DefaultCriteria()
	c.CancelledBy = "none"
	if got := Filter(sampleAppointments(), c); len(got) != 1 || got[0].ID != "APT-001" {
		t.Fatalf("bucket none: expected APT-001 only")
	}

	c.CancelledBy = "client"
	if got := Filter(sampleAppointments(), c); len(got) != 1 || got[0].ID != "APT-002" {
		t.Fatalf("bucket client: expected APT-002 only")
	}

	c.CancelledBy = "professional"
	if got := Filter(sampleAppointments(), c); len(got) != 1 || got[0].ID != "APT-003" {
		t.Fatalf("bucket professional: expected APT-003 only")
	}
}

func TestFilterRefundStatus(t *testing.T) {
	c := DefaultCriteria()
	c.RefundStatus = "full"
	if got := Filter(sampleAppointments(), c); len(got) != 1 || got[0].ID != "APT-002" {
		t.Fatalf("refund full: expected APT-002 only")
	}

	// "none" matches charged cancellations and never-cancelled appointments.
	c.RefundStatus = "none"
	if got := Filter(sampleAppointments(), c); len(got) != 2 {
		t.Fatalf("refund none: expected 2, got %d", len(got))
	}
}

func TestFilterGlobalSearch(t *testing.T) {
	c := DefaultCriteria()
	c.Search = "rodriguez"
	if got := Filter(sampleAppointments(), c); len(got) != 1 || got[0].ID != "APT-003" {
		t.Fatalf("search should hit professional name")
	}

	c.Search = "no-such-term"
	if got := Filter(sampleAppointments(), c); len(got) != 0 {
		t.Fatalf("search miss should return empty, got %d", len(got))
	}
}

func TestFilterConjunction(t *testing.T) {
	c := DefaultCriteria()
	c.Type = "medical"
	c.Status = "cancelled"
	got := Filter(sampleAppointments(), c)
	if len(got) != 1 || got[0].ID != "APT-002" {
		t.Fatalf("predicates must AND together, got %d results", len(got))
	}
}

func TestFilterMissingFieldsNeverPanic(t *testing.T) {
	// Cancellation-dependent filters against an uncancelled appointment.
	appts := []model.Appointment{{ID: "bare", Status: model.StatusScheduled}}

	c := DefaultCriteria()
	c.CancellationHours = "24"
	if got := Filter(appts, c); len(got) != 0 {
		t.Fatalf("missing cancellation should not match hours filter")
	}

	c = DefaultCriteria()
	c.RefundStatus = "pending"
	if got := Filter(appts, c); len(got) != 0 {
		t.Fatalf("missing cancellation should not match refund filter")
	}
}
