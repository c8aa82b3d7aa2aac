package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSONError writes {"status":"error","error":msg,"code":status}.
func WriteJSONError(w http.ResponseWriter, status int, msg string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"status": "error",
		"error":  msg,
		"code":   status,
	}
	return json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes v with status 200.
func WriteJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}
