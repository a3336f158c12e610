package handlers

import (
	"encoding/json"
	"net/http"
)

// envelope is the response contract shared with the admin frontend:
// code SUCCESS on the happy path, a short error code otherwise. total is
// populated for list responses only.
type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

const (
	codeSuccess         = "SUCCESS"
	codeFailed          = "FAILED"
	codeInvalidRequest  = "INVALID_REQUEST"
	codeNotFound        = "NOT_FOUND"
	codeUnauthorized    = "UNAUTHORIZED"
	codeAlreadyReviewed = "ALREADY_REVIEWED"
	codeDuplicate       = "DUPLICATE"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: codeSuccess, Data: data})
}

func writeList(w http.ResponseWriter, status int, data any, total int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: codeSuccess, Data: data, Total: &total})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: code, Message: message})
}
