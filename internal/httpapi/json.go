package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/larkspur-labs/subproxy/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeAppError maps an apperr.Kind to its corresponding HTTP status
// and writes the resulting error body.
func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(apperr.KindOf(err)), err.Error())
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotConfigured, apperr.BadInput:
		return http.StatusBadRequest
	case apperr.Empty:
		return http.StatusNotFound
	case apperr.Busy:
		return http.StatusConflict
	case apperr.UpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeSSEJSON writes one named server-sent event whose data payload
// is the JSON encoding of data.
func writeSSEJSON(w http.ResponseWriter, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: " + event + "\ndata: "))
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n\n"))
}
