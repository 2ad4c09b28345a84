// Package utils holds the response helpers shared by the webhook and
// health endpoints.
package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes payload as the JSON body with the given status.
// Telegram only inspects the status code of a webhook reply, so the
// body exists for operators poking the endpoints by hand.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] failed to encode response: %v", err)
	}
}

// RespondError writes an error envelope, e.g. for a webhook payload
// that does not decode as a Telegram update.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
