package model

import "time"

// PolicyTier is a client-level setting defining the free-cancellation window.
type PolicyTier string

const (
	PolicyStrict   PolicyTier = "strict"
	PolicyModerate PolicyTier = "moderate"
	PolicyFlexible PolicyTier = "flexible"
)

type Client struct {
	ID             string
	Name           string
	Region         string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	BillingAddress string
	TaxID          string
	// PaymentTerms is display text (e.g. "Net 30"). Invoice due dates are
	// computed independently of it; see invoice.Builder.
	PaymentTerms       string
	CancellationPolicy PolicyTier
	CreatedAt          time.Time
}
