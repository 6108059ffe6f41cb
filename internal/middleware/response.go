package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError mirrors the API envelope for failures raised before a handler runs.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"data":    nil,
		"message": message,
	})
}
