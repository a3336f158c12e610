package outbox

import (
	"encoding/json"
	"time"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventCancellationReviewed = "invoicedesk.cancellation.reviewed.v1"
	EventInvoiceGenerated     = "invoicedesk.invoice.generated.v1"
)

type CancellationReviewedPayload struct {
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	Decision      string    `json:"decision"`
	RefundStatus  string    `json:"refund_status"`
	ReviewedAt    time.Time `json:"reviewed_at"`
}

type InvoiceGeneratedPayload struct {
	InvoiceNumber  string    `json:"invoice_number"`
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	Subtotal       float64   `json:"subtotal"`
	Tax            float64   `json:"tax"`
	Total          float64   `json:"total"`
	IssueDate      time.Time `json:"issue_date"`
	DueDate        time.Time `json:"due_date"`
	PaymentLinkURL string    `json:"payment_link_url,omitempty"`
}

func NewCancellationReviewed(p CancellationReviewedPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   p.AppointmentID,
		EventType:     EventCancellationReviewed,
		Payload:       payload,
	}, nil
}

func NewInvoiceGenerated(p InvoiceGeneratedPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "invoice",
		AggregateID:   p.InvoiceNumber,
		EventType:     EventInvoiceGenerated,
		Payload:       payload,
	}, nil
}
