package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// WriteError writes the structured error body every failure path returns.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteStoreError maps a failed store operation onto the error taxonomy.
// A request whose deadline elapsed gets a retry hint instead of a plain 400.
func WriteStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		w.Header().Set("Retry-After", "1")
		WriteError(w, http.StatusServiceUnavailable, "Temporarily unavailable, please retry")
		return
	}
	WriteError(w, http.StatusBadRequest, message)
}
