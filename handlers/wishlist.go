package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"moviemate/internal/auth"
	"moviemate/internal/database"
	"moviemate/models"
)

// WishlistHandler serves the lightweight tmdb-id bookmark list. Wishlist rows
// are independent of catalog contents: adding one never imports anything.
type WishlistHandler struct {
	repo *database.WishlistRepository
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(repo *database.WishlistRepository) *WishlistHandler {
	return &WishlistHandler{repo: repo}
}

// List returns the caller's wishlist, newest first.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type wishlistAddRequest struct {
	TMDBID     string `json:"tmdb_id"`
	MediaType  string `json:"media_type"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

// Add upserts a wishlist row. Re-adding the same tmdb_id refreshes the
// stored title and poster instead of erroring.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req wishlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.TMDBID) == "" {
		writeJSONError(w, "tmdb_id is required", http.StatusBadRequest)
		return
	}
	if req.MediaType != "movie" && req.MediaType != "tv" {
		writeJSONError(w, "media_type must be movie or tv", http.StatusBadRequest)
		return
	}

	item := &models.WishlistItem{
		OwnerID:    auth.GetAccountID(r),
		TMDBID:     strings.TrimSpace(req.TMDBID),
		MediaType:  req.MediaType,
		Title:      req.Title,
		PosterPath: req.PosterPath,
	}
	if err := h.repo.Add(r.Context(), item); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Remove deletes a wishlist row by tmdb id.
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	tmdbID := strings.TrimSpace(mux.Vars(r)["tmdbID"])
	if tmdbID == "" {
		writeJSONError(w, "tmdb_id is required", http.StatusBadRequest)
		return
	}

	removed, err := h.repo.Remove(r.Context(), auth.GetAccountID(r), tmdbID)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !removed {
		writeJSONError(w, "wishlist item not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Options handles CORS preflight
func (h *WishlistHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
