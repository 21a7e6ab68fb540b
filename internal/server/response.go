package server

import (
	"encoding/json"
	"net/http"

	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the ledger error taxonomy onto HTTP statuses and returns
// a structured failure body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{
		"kind":  ledgererr.KindOf(err).String(),
		"error": err.Error(),
	})
}

func statusOf(err error) int {
	switch ledgererr.KindOf(err) {
	case ledgererr.KindValidation:
		return http.StatusBadRequest
	case ledgererr.KindNotFound:
		return http.StatusNotFound
	case ledgererr.KindReferentialIntegrity:
		return http.StatusUnprocessableEntity
	case ledgererr.KindIntegrityConflict, ledgererr.KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
