package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"moviemate/services/catalog"
	"moviemate/services/tmdb"
)

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeCatalogError maps service errors onto HTTP statuses.
func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrForbidden):
		writeJSONError(w, "not allowed", http.StatusForbidden)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, tmdb.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, tmdb.ErrNotConfigured):
		writeJSONError(w, "tmdb api key not configured", http.StatusBadGateway)
	case errors.Is(err, tmdb.ErrProviderUnavailable):
		writeJSONError(w, "metadata provider unavailable", http.StatusBadGateway)
	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
