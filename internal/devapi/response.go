package devapi

import (
	"encoding/json"
	"net/http"

	"github.com/me/storefront/pkg/model"
)

type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// respondOK writes a success envelope.
func respondOK(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, envelope{Code: model.CodeOK, Data: data, Message: "success"})
}

// respondFail writes a failure envelope. The HTTP status mirrors the
// envelope code when it is a valid status, so plain HTTP tooling sees it too.
func respondFail(w http.ResponseWriter, code int, message string) {
	status := code
	if status < 400 || status > 599 {
		status = http.StatusOK
	}
	writeEnvelope(w, status, envelope{Code: code, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
