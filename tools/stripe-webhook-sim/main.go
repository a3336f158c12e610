package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// Sends a signed checkout.session.completed event so invoice settlement can
// be exercised without a real Stripe account.
func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		number  = flag.String("invoice-number", getenv("INVOICE_NUMBER", ""), "invoice_number metadata")
		secret  = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*number) == "" {
		fatal("INVOICE_NUMBER is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())

	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     now.Unix(),
		"type":        "checkout.session.completed",
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":     "cs_test_123",
				"object": "checkout.session",
				"metadata": map[string]any{
					"invoice_number": *number,
				},
			},
		},
	})
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d\n", resp.StatusCode)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
