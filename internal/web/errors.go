package web

import (
	"encoding/json"
	"net/http"

	"github.com/northhall/museum/internal/logging"
	"github.com/northhall/museum/internal/museum"
)

// statusForKind maps the core's discriminated error kinds onto HTTP
// status codes. Anything unclassified is treated as a server fault.
func statusForKind(kind museum.Kind) int {
	switch kind {
	case museum.KindInvalid:
		return http.StatusUnprocessableEntity
	case museum.KindNotFound:
		return http.StatusNotFound
	case museum.KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case museum.KindConflict:
		return http.StatusConflict
	case museum.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError logs the technical error and writes the user-facing
// translation. The raw error never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := museum.KindOf(err)
	msg := museum.MapError(err)

	logger := logging.FromContext(r.Context())
	logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"kind", string(kind),
		"error", err,
	)

	writeJSON(w, statusForKind(kind), errorResponse{
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
