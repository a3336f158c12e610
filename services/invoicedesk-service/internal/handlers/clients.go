package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/model"
	"github.com/consuldesk/invoicedesk/services/invoicedesk-service/internal/storage"
)

type ClientHandler struct {
	clients *storage.ClientRepository
}

func NewClientHandler(clients *storage.ClientRepository) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type clientDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Region             string `json:"region,omitempty"`
	ContactName        string `json:"contact_name,omitempty"`
	ContactEmail       string `json:"contact_email,omitempty"`
	ContactPhone       string `json:"contact_phone,omitempty"`
	BillingAddress     string `json:"billing_address,omitempty"`
	TaxID              string `json:"tax_id,omitempty"`
	PaymentTerms       string `json:"payment_terms,omitempty"`
	CancellationPolicy string `json:"cancellation_policy"`
}

func clientToDTO(c model.Client) clientDTO {
	return clientDTO{
		ID:                 c.ID,
		Name:               c.Name,
		Region:             c.Region,
		ContactName:        c.ContactName,
		ContactEmail:       c.ContactEmail,
		ContactPhone:       c.ContactPhone,
		BillingAddress:     c.BillingAddress,
		TaxID:              c.TaxID,
		PaymentTerms:       c.PaymentTerms,
		CancellationPolicy: string(c.CancellationPolicy),
	}
}

func clientFromDTO(dto clientDTO) model.Client {
	return model.Client{
		ID:                 dto.ID,
		Name:               strings.TrimSpace(dto.Name),
		Region:             strings.TrimSpace(dto.Region),
		ContactName:        strings.TrimSpace(dto.ContactName),
		ContactEmail:       strings.TrimSpace(dto.ContactEmail),
		ContactPhone:       strings.TrimSpace(dto.ContactPhone),
		BillingAddress:     strings.TrimSpace(dto.BillingAddress),
		TaxID:              strings.TrimSpace(dto.TaxID),
		PaymentTerms:       strings.TrimSpace(dto.PaymentTerms),
		CancellationPolicy: parsePolicyTier(dto.CancellationPolicy),
	}
}

// parsePolicyTier normalizes unknown tiers to moderate, matching the policy
// evaluator's fallback.
func parsePolicyTier(raw string) model.PolicyTier {
	switch model.PolicyTier(strings.ToLower(strings.TrimSpace(raw))) {
	case model.PolicyStrict:
		return model.PolicyStrict
	case model.PolicyFlexible:
		return model.PolicyFlexible
	case model.PolicyModerate:
		return model.PolicyModerate
	default:
		return model.PolicyModerate
	}
}

// Collection serves /api/v1/clients: GET lists, POST creates.
func (h *ClientHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
	}
}

// Item serves /api/v1/clients/{id}: PUT updates.
func (h *ClientHandler) Item(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}
	h.update(w, r)
}

func (h *ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to list clients")
		return
	}

	region := strings.TrimSpace(r.URL.Query().Get("region"))
	out := make([]clientDTO, 0, len(clients))
	for _, c := range clients {
		if region != "" && region != "all" && !strings.EqualFold(c.Region, region) {
			continue
		}
		out = append(out, clientToDTO(c))
	}
	writeList(w, http.StatusOK, out, len(out))
}

func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	var dto clientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	client := clientFromDTO(dto)
	if client.Name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name is required")
		return
	}

	id, err := h.clients.Create(r.Context(), client)
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, codeDuplicate, "client already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to create client")
		return
	}
	client.ID = id
	writeData(w, http.StatusCreated, clientToDTO(client))
}

func (h *ClientHandler) update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/clients/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "client id is required")
		return
	}

	var dto clientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid json body")
		return
	}
	client := clientFromDTO(dto)
	client.ID = id
	if client.Name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name is required")
		return
	}

	if err := h.clients.Update(r.Context(), client); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, codeFailed, "failed to update client")
		return
	}
	writeData(w, http.StatusOK, clientToDTO(client))
}
