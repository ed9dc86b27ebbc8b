// Package respond writes JSON and plain-text responses with an explicit
// Content-Length.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/pkg/api"
)

// JSON writes v with the given status. noStore adds Cache-Control: no-store.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any, noStore bool) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("encoding response failed")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if noStore {
		h.Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, api.ErrorResponse{Error: msg}, false)
}

// Text writes a plain-text body.
func Text(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(msg)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write([]byte(msg))
	}
}
