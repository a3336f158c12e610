package main

import (
	"strings"
	"testing"
	"time"
)

func TestRenderInvoiceEmail(t *testing.T) {
	p := invoicePayload{
		InvoiceNumber:  "INV-20260830-abc12345",
		ClientID:       "client-1",
		ClientName:     "Acme Corp",
		ContactEmail:   "billing@acme.test",
		Subtotal:       350,
		Tax:            35,
		Total:          385,
		IssueDate:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC),
		PaymentLinkURL: "https://pay.example/link",
	}

	subject, body := renderInvoiceEmail(p)
	if !strings.Contains(subject, "INV-20260830-abc12345") {
		t.Fatalf("subject missing invoice number: %q", subject)
	}
	for _, want := range []string{"Hello Acme Corp", "$350.00", "$35.00", "$385.00", "September 29, 2026", "https://pay.example/link"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderInvoiceEmailWithoutNameOrLink(t *testing.T) {
	p := invoicePayload{
		InvoiceNumber: "INV-20260830-def67890",
		Total:         100,
		IssueDate:     time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 9, 29, 0, 0, 0, 0, time.UTC),
	}

	_, body := renderInvoiceEmail(p)
	if !strings.Contains(body, "Hello there,") {
		t.Fatalf("expected greeting fallback:\n%s", body)
	}
	if strings.Contains(body, "Pay online") {
		t.Fatalf("did not expect payment link line:\n%s", body)
	}
}
