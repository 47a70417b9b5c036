package httpx

import (
	"encoding/json"
	"net/http"
)

// envelope is the success payload shape shared by every mutating endpoint:
// the result plus a short human-readable confirmation.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes the payload under the standard success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, Message: sanitize(message, 256)})
}
