package invoice

import (
	"fmt"
	"time"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
	"github.com/google/uuid"
)

const (
	// TaxRate is the flat tax applied to every invoice.
	TaxRate = 0.10

	// dueInDays is fixed at 30 regardless of the client's payment-terms text.
	// That matches the system this replaces; "Net 15" clients still get a
	// 30-day due date until product signs off on honoring the terms string.
	dueInDays = 30
)

type ItemType string

const (
	ServiceFee      ItemType = "Service Fee"
	CancellationFee ItemType = "Cancellation Fee"
)

type Item struct {
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Amount      float64   `json:"amount"`
	Type        ItemType  `json:"type"`
}

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Data is a derived document: regenerated on demand, never mutated in place.
type Data struct {
	ID            string    `json:"id,omitempty"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientID      string    `json:"client_id"`
	ClientName    string    `json:"client_name"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
	Items         []Item    `json:"items"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	Status        Status    `json:"status"`
	PaymentLink   string    `json:"payment_link,omitempty"`
}

// Billable reports whether an appointment contributes a line item: completed
// sessions and cancellations that were charged.
func Billable(appt model.Appointment) bool {
	if appt.Status == model.StatusCompleted {
		return true
	}
	if appt.Status != model.StatusCancelled {
		return false
	}
	return appt.Cancellation != nil && appt.Cancellation.RefundStatus == model.RefundNone
}

// Build derives an invoice for one client from their appointment set.
//
// The monetary fields are a pure function of the inputs: building twice from
// the same appointments yields identical subtotal/tax/total. The invoice
// number and issue date are generation-time metadata and differ per call.
func Build(client model.Client, appointments []model.Appointment, now time.Time) Data {
	var items []Item
	var subtotal float64
	for _, appt := range appointments {
		if !Billable(appt) {
			continue
		}
		itemType := ServiceFee
		if appt.Status == model.StatusCancelled {
			itemType = CancellationFee
		}
		items = append(items, Item{
			Description: fmt.Sprintf("%s - %s", appt.Service, appt.PersonName),
			Date:        appt.StartTime,
			Amount:      appt.Rate,
			Type:        itemType,
		})
		subtotal += appt.Rate
	}

	tax := subtotal * TaxRate
	issueDate := now.UTC().Truncate(24 * time.Hour)

	return Data{
		InvoiceNumber: newInvoiceNumber(now),
		ClientID:      client.ID,
		ClientName:    client.Name,
		IssueDate:     issueDate,
		DueDate:       issueDate.AddDate(0, 0, dueInDays),
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal + tax,
		Status:        StatusPending,
	}
}

// newInvoiceNumber is unique per call; the date prefix keeps numbers sortable
// for humans, the uuid suffix guarantees uniqueness.
func newInvoiceNumber(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("INV-%s-%s", now.UTC().Format("20060102"), suffix)
}
