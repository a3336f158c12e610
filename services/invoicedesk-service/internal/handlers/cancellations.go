package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/consuldesk/invoicedesk/libs/db"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/outbox"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/policy"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

type CancellationHandler struct {
	pool         *db.Pool
	appointments *storage.AppointmentRepository
	clients      *storage.ClientRepository
	outbox       *outbox.Repository
}

func NewCancellationHandler(
	pool *db.Pool,
	appointments *storage.AppointmentRepository,
	clients *storage.ClientRepository,
	outboxRepo *outbox.Repository,
) *CancellationHandler {
	return &CancellationHandler{
		pool:         pool,
		appointments: appointments,
		clients:      clients,
		outbox:       outboxRepo,
	}
}

type reviewRequest struct {
	AppointmentID string `json:"appointment_id"`
	Decision      string `json:"decision"`
}

type reviewResponse struct {
	AppointmentID string `json:"appointment_id"`
	Decision      string `json:"decision"`
	RefundStatus  string `json:"refund_status"`
	Reviewed      bool   `json:"reviewed"`
}

// refundForDecision maps the admin decision onto the refund outcome:
// free waives the fee (full refund), charge keeps it (no refund).
func refundForDecision(decision string) (model.RefundStatus, bool) {
	switch decision {
	case "free":
		return model.RefundFull, true
	case "charge":
		return model.RefundNone, true
	default:
		return "", false
	}
}

// Review applies an admin decision to a pending cancellation. The reviewed
// flag only ever goes false -> true; a repeat decision gets 409.
func (h *CancellationHandler) Review(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "appointment_id is required")
		return
	}
	refund, ok := refundForDecision(strings.TrimSpace(req.Decision))
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "decision must be free or charge")
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to start transaction")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.appointments.ApplyDecision(ctx, tx, req.AppointmentID, refund)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyReviewed) {
			writeError(w, http.StatusConflict, codeAlreadyReviewed, "cancellation already reviewed")
			return
		}
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "cancelled appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to apply decision")
		return
	}

	evt, err := outbox.NewCancellationReviewed(outbox.CancellationReviewedPayload{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		Decision:      req.Decision,
		RefundStatus:  string(refund),
		ReviewedAt:    time.Now().UTC(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to marshal review event")
		return
	}
	if err := h.outbox.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to enqueue review event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to commit transaction")
		return
	}

	writeData(w, http.StatusOK, reviewResponse{
		AppointmentID: appt.ID,
		Decision:      req.Decision,
		RefundStatus:  string(refund),
		Reviewed:      true,
	})
}

type pendingItem struct {
	Appointment appointmentDTO `json:"appointment"`
	Tier        string         `json:"tier"`
	Threshold   float64        `json:"threshold"`
}

// Pending lists cancelled appointments whose policy outcome is needs_review
// under the owning client's tier.
func (h *CancellationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}

	cancelled, err := h.appointments.ListCancelled(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list cancellations")
		return
	}

	clients, err := h.clients.List(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list clients")
		return
	}
	tierByClient := make(map[string]model.PolicyTier, len(clients))
	for _, c := range clients {
		tierByClient[c.ID] = c.CancellationPolicy
	}

	out := make([]pendingItem, 0)
	for _, appt := range cancelled {
		tier, ok := tierByClient[appt.ClientID]
		if !ok {
			tier = model.PolicyModerate
		}
		outcome, ok := policy.DecideAppointment(appt, tier)
		if !ok || outcome != policy.OutcomeNeedsReview {
			continue
		}
		out = append(out, pendingItem{
			Appointment: appointmentToDTO(appt),
			Tier:        string(tier),
			Threshold:   policy.Threshold(tier),
		})
	}
	writeList(w, http.StatusOK, out, len(out))
}
