package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

// StripeWebhookHandler settles invoices when a payment link checkout
// completes. No JWT auth on this route; the signature check is the auth.
type StripeWebhookHandler struct {
	pool      *db.Pool
	invoices  *storage.InvoiceRepository
	secret    string
	tolerance time.Duration
	logger    *slog.Logger
}

func NewStripeWebhookHandler(pool *db.Pool, invoices *storage.InvoiceRepository, secret string, logger *slog.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		pool:      pool,
		invoices:  invoices,
		secret:    strings.TrimSpace(secret),
		tolerance: webhook.DefaultTolerance,
		logger:    logger,
	}
}

func (h *StripeWebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}
	if h.secret == "" {
		writeError(w, http.StatusServiceUnavailable, codeFailed, "stripe webhook not configured")
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "missing Stripe-Signature header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "failed to read request body")
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid signature")
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("stripe event received", "provider_event_id", evt.ID, "event_type", evtType)

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "db error")
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	if err := h.invoices.InsertProviderEvent(r.Context(), tx, "stripe", evt.ID, evtType, body); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("stripe event duplicate ignored", "provider_event_id", evt.ID)
			_ = tx.Commit(r.Context())
			writeData(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to record provider event")
		return
	}

	if evtType == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
			h.logger.Error("stripe: invalid checkout session payload", "err", err)
		} else if number := strings.TrimSpace(session.Metadata["invoice_number"]); number == "" {
			h.logger.Warn("stripe: checkout session missing invoice_number metadata", "session_id", session.ID)
		} else {
			settled, err := h.invoices.MarkPaidByNumber(r.Context(), tx, number)
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeFailed, "failed to settle invoice")
				return
			}
			if settled {
				h.logger.Info("invoice settled", "invoice_number", number, "session_id", session.ID)
			} else {
				h.logger.Warn("stripe: invoice not settled (unknown or already paid)", "invoice_number", number)
			}
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to commit")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
