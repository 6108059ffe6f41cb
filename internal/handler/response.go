package handler

import (
	"encoding/json"
	"net/http"

	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

type Pagination struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Message    string      `json:"message,omitempty"`
	Error      any         `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromCtx(r.Context()).Error("failed to encode JSON response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, Envelope{Success: true, Data: data})
}

func writePage(w http.ResponseWriter, r *http.Request, data any, p Pagination) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// writeError sends a failure envelope; detail goes to the error field.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string, detail any) {
	writeJSON(w, r, status, Envelope{Success: false, Message: message, Error: detail})
}
