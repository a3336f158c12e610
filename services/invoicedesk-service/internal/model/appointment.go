package model

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusScheduled AppointmentStatus = "scheduled"
)

// RefundStatus tracks the outcome of a cancellation.
type RefundStatus string

const (
	RefundFull    RefundStatus = "full"
	RefundNone    RefundStatus = "none"
	RefundPending RefundStatus = "pending"
)

// CancelActor identifies who initiated a cancellation. Everything other than
// the client counts as professional-side in the aggregate stats.
type CancelActor string

const (
	CancelledByClient CancelActor = "client"
	CancelledByFirm   CancelActor = "firm"
	CancelledByAgency CancelActor = "agency"
	CancelledBySvc    CancelActor = "service"
	CancelledByClinic CancelActor = "clinic"
)

// IsProfessional reports whether the actor is on the provider side.
func (a CancelActor) IsProfessional() bool {
	switch a {
	case CancelledByFirm, CancelledByAgency, CancelledBySvc, CancelledByClinic:
		return true
	case CancelledByClient:
		return false
	default:
		return false
	}
}

// Cancellation is present on an appointment iff its status is cancelled.
type Cancellation struct {
	Timestamp    time.Time
	HoursBefore  float64
	RefundStatus RefundStatus
	Reason       string
	Reviewed     bool
	CancelledBy  CancelActor
}

type Appointment struct {
	ID               string
	ClientID         string
	PersonName       string
	Service          string
	StartTime        time.Time
	DurationMins     int
	Rate             float64
	Status           AppointmentStatus
	Cancellation     *Cancellation
	Company          string
	ContactName      string
	ContactEmail     string
	ProfessionalName string
	Type             string
	Specialty        string
	Location         string
	Notes            string
	CreatedAt        time.Time
}
