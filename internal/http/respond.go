package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "transferdesk/pkg/domainerrors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps a coded domain error to its HTTP status. Uncoded errors
// surface as opaque 500s so internals never leak.
func respondError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if errors.As(err, &de) {
		respondJSON(w, dErrors.ToHTTPStatus(de.Code), map[string]string{
			"error":   string(de.Code),
			"message": de.Message,
		})
		return
	}
	respondJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   string(dErrors.CodeInternal),
		"message": "internal error",
	})
}
