package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the legacy wire shape shared by every endpoint. The business
// outcome lives in Code; the HTTP status is always 200. Existing clients
// switch on code === 200 and never look at the HTTP status, so this shape
// must not change.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// Business outcome codes carried inside the envelope.
const (
	CodeOK               = 200
	CodeValidationFailed = 400
	CodeAuthRequired     = 401
	CodePermissionDenied = 403
	CodeNotFound         = 404
	CodeConflict         = 409
	CodeAuthExpired      = 440
	CodeInternal         = 500
)

// WriteOK sends a success envelope with an optional payload.
func WriteOK(w http.ResponseWriter, msg string, data any) {
	if msg == "" {
		msg = "ok"
	}
	writeEnvelope(w, Envelope{Code: CodeOK, Msg: msg, Data: data})
}

// WriteFailure sends a failure envelope. The HTTP status stays 200; only
// the embedded code signals the outcome.
func WriteFailure(w http.ResponseWriter, code int, msg string) {
	writeEnvelope(w, Envelope{Code: code, Msg: msg})
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
