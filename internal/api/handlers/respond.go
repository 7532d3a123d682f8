package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shoptalk/shoptalk/internal/fault"
)

var validate = validator.New()

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a classified error to the uniform envelope. Boundary
// errors (4xx) carry their message; internal errors return a generic line
// and keep details in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status := fault.HTTPStatus(kind)

	if status >= 500 {
		slog.Error("request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
		writeJSON(w, status, errorEnvelope{Error: "something went wrong, please try again later"})
		return
	}

	slog.Warn("request rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	writeJSON(w, status, errorEnvelope{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: msg})
}
