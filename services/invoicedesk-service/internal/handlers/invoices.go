package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/export"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/invoice"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/outbox"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/payments"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

type InvoiceHandler struct {
	pool         *db.Pool
	clients      *storage.ClientRepository
	appointments *storage.AppointmentRepository
	invoices     *storage.InvoiceRepository
	outbox       *outbox.Repository
	links        *payments.LinkGenerator
	logger       *slog.Logger
}

func NewInvoiceHandler(
	pool *db.Pool,
	clients *storage.ClientRepository,
	appointments *storage.AppointmentRepository,
	invoices *storage.InvoiceRepository,
	outboxRepo *outbox.Repository,
	links *payments.LinkGenerator,
	logger *slog.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		pool:         pool,
		clients:      clients,
		appointments: appointments,
		invoices:     invoices,
		outbox:       outboxRepo,
		links:        links,
		logger:       logger,
	}
}

func (h *InvoiceHandler) build(r *http.Request, clientID string) (invoice.Data, error) {
	client, err := h.clients.Get(r.Context(), clientID)
	if err != nil {
		return invoice.Data{}, err
	}
	appointments, err := h.appointments.ListByClient(r.Context(), clientID, 0)
	if err != nil {
		return invoice.Data{}, err
	}
	return invoice.Build(client, appointments, time.Now()), nil
}

// Preview builds the invoice for a client without persisting anything.
func (h *InvoiceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "client_id is required")
		return
	}

	inv, err := h.build(r, clientID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to build invoice")
		return
	}
	writeData(w, http.StatusOK, inv)
}

type generateRequest struct {
	ClientID string `json:"client_id"`
}

// Generate builds the invoice, persists it with its line items, and enqueues
// the generated event in the same transaction. The Stripe payment link is
// created before the transaction so a Stripe failure aborts nothing durable.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "client_id is required")
		return
	}

	client, err := h.clients.Get(r.Context(), req.ClientID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to load client")
		return
	}
	appointments, err := h.appointments.ListByClient(r.Context(), req.ClientID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to load appointments")
		return
	}
	inv := invoice.Build(client, appointments, time.Now())

	if h.links.Enabled() && inv.Total > 0 {
		link, err := h.links.GenerateLink(inv)
		if err != nil {
			h.logger.Error("stripe payment link failed", "invoice_number", inv.InvoiceNumber, "err", err)
		} else {
			inv.PaymentLink = link
		}
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.invoices.Insert(ctx, tx, inv)
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, codeDuplicate, "invoice number already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to persist invoice")
		return
	}
	inv.ID = id

	evt, err := outbox.NewInvoiceGenerated(outbox.InvoiceGeneratedPayload{
		InvoiceNumber:  inv.InvoiceNumber,
		ClientID:       inv.ClientID,
		ClientName:     inv.ClientName,
		ContactEmail:   client.ContactEmail,
		Subtotal:       inv.Subtotal,
		Tax:            inv.Tax,
		Total:          inv.Total,
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		PaymentLinkURL: inv.PaymentLink,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to marshal invoice event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to enqueue invoice event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to commit transaction")
		return
	}

	h.logger.Info("invoice generated",
		"invoice_number", inv.InvoiceNumber,
		"client_id", inv.ClientID,
		"total", inv.Total,
		"items", len(inv.Items))
	writeData(w, http.StatusCreated, inv)
}

// PDF serves /api/v1/invoices/{number}/pdf as a download of the stored invoice.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/")
	number, ok := strings.CutSuffix(rest, "/pdf")
	if !ok || number == "" || strings.Contains(number, "/") {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invoice number is required")
		return
	}

	inv, err := h.invoices.GetByNumber(r.Context(), number)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "invoice not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to load invoice")
		return
	}
	client, err := h.clients.Get(r.Context(), inv.ClientID)
	if err != nil && !storage.IsNotFound(err) {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to load client")
		return
	}

	data, err := export.InvoicePDF(inv, client)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to render pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s.pdf", inv.InvoiceNumber)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
