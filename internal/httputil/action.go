package httputil

import (
	"encoding/json"
	"net/http"
)

// Action names an operation inside a POST {action, data} request. Each
// handler declares a closed set of Action constants and a dispatch table;
// anything outside the table is a validation failure.
type Action string

// ActionRequest is the body every action route accepts.
type ActionRequest struct {
	Action Action          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ActionFunc handles a single action. Data is the raw "data" member of the
// request body, possibly nil.
type ActionFunc func(w http.ResponseWriter, r *http.Request, data json.RawMessage)

// Dispatch decodes an action request and routes it through the table.
// Unknown or missing actions are rejected without touching any handler.
func Dispatch(w http.ResponseWriter, r *http.Request, table map[Action]ActionFunc) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteFailure(w, CodeValidationFailed, "invalid request body")
		return
	}

	fn, ok := table[req.Action]
	if !ok {
		WriteFailure(w, CodeValidationFailed, "unknown action")
		return
	}

	fn(w, r, req.Data)
}
