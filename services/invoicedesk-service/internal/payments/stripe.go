package payments

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentlink"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/product"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/invoice"
)

// LinkGenerator creates a hosted payment link for a generated invoice.
// Disabled (returns "", nil) when no Stripe key is configured, so invoice
// generation never depends on Stripe availability.
type LinkGenerator struct {
	key    string
	logger *slog.Logger
}

func NewLinkGenerator(key string, logger *slog.Logger) *LinkGenerator {
	return &LinkGenerator{key: strings.TrimSpace(key), logger: logger}
}

func (g *LinkGenerator) Enabled() bool {
	return g.key != ""
}

func (g *LinkGenerator) GenerateLink(inv invoice.Data) (string, error) {
	if !g.Enabled() {
		return "", nil
	}
	stripe.Key = g.key

	productParams := &stripe.ProductParams{
		Name:        stripe.String(fmt.Sprintf("Invoice %s", inv.InvoiceNumber)),
		Description: stripe.String(inv.ClientName),
	}
	prod, err := product.New(productParams)
	if err != nil {
		return "", fmt.Errorf("stripe product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		UnitAmount: stripe.Int64(int64(inv.Total * 100)),
		Product:    stripe.String(prod.ID),
	}
	pr, err := price.New(priceParams)
	if err != nil {
		return "", fmt.Errorf("stripe price: %w", err)
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{
			{
				Price:    stripe.String(pr.ID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"invoice_number": inv.InvoiceNumber,
			"client_id":      inv.ClientID,
		},
	}
	link, err := paymentlink.New(linkParams)
	if err != nil {
		return "", fmt.Errorf("stripe payment link: %w", err)
	}

	g.logger.Info("stripe payment link created", "invoice_number", inv.InvoiceNumber, "link_id", link.ID)
	return link.URL, nil
}
