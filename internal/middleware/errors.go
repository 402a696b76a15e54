package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the API's stable error shape.
type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// writeError writes a {status, message} JSON error.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Status: status, Message: message})
}
