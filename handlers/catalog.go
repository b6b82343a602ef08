package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"moviemate/internal/auth"
	"moviemate/models"
	"moviemate/services/catalog"
	"moviemate/services/tmdb"
)

// CatalogHandler serves the watch-tracking endpoints.
type CatalogHandler struct {
	svc *catalog.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// List returns all of the caller's contents, newest first.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.List(r.Context(), auth.GetAccountID(r))
	if err != nil {
		log.Printf("[Catalog] List error: %v", err)
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type createContentRequest struct {
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
}

// Create registers a manual entry without touching the metadata provider.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	content, err := h.svc.Create(r.Context(), auth.GetAccountID(r), catalog.CreateParams{
		Title:    req.Title,
		Kind:     models.ContentKind(req.Kind),
		Platform: req.Platform,
		Status:   models.WatchStatus(req.Status),
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, content)
}

// Get returns one content with its full season/episode tree.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDFromPath(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.Get(r.Context(), auth.GetAccountID(r), contentID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type updateContentRequest struct {
	Status   *string `json:"status"`
	Platform *string `json:"platform"`
	Rating   *int    `json:"rating"`
	Review   *string `json:"review"`
}

// Update patches status, platform, rating or review on an owned content.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDFromPath(w, r)
	if !ok {
		return
	}

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	params := catalog.UpdateParams{
		Platform: req.Platform,
		Rating:   req.Rating,
		Review:   req.Review,
	}
	if req.Status != nil {
		status := models.WatchStatus(*req.Status)
		params.Status = &status
	}

	content, err := h.svc.Update(r.Context(), auth.GetAccountID(r), contentID, params)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// Delete removes an owned content along with its seasons and episodes.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), auth.GetAccountID(r), contentID); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleEpisodeRequest struct {
	SeasonNumber  *int   `json:"season_number"`
	EpisodeNumber *int   `json:"episode_number"`
	Title         string `json:"title"`
}

// ToggleEpisode flips one episode's watched flag and returns the new state.
func (h *CatalogHandler) ToggleEpisode(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDFromPath(w, r)
	if !ok {
		return
	}

	var req toggleEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.SeasonNumber == nil || req.EpisodeNumber == nil {
		writeJSONError(w, "season_number and episode_number are required", http.StatusBadRequest)
		return
	}

	episode, watched, err := h.svc.ToggleEpisode(r.Context(), auth.GetAccountID(r), contentID, *req.SeasonNumber, *req.EpisodeNumber, req.Title)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"episode": episode,
		"watched": watched,
	})
}

type markSeasonRequest struct {
	SeasonNumber *int `json:"season_number"`
}

// MarkSeasonWatched marks a whole season watched.
func (h *CatalogHandler) MarkSeasonWatched(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDFromPath(w, r)
	if !ok {
		return
	}

	var req markSeasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.SeasonNumber == nil {
		writeJSONError(w, "season_number is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkSeasonWatched(r.Context(), auth.GetAccountID(r), contentID, *req.SeasonNumber); err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "season marked as watched"})
}

// providerID carries a TMDB id that clients send either as a JSON string
// or as a bare number.
type providerID string

func (p *providerID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = providerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = providerID(n.String())
	return nil
}

type importRequest struct {
	TMDBID providerID `json:"tmdb_id"`
	Query  string     `json:"query"`
}

// ImportTMDB resolves a TMDB id or query into a content entry. Responds 201
// when a row was created, 200 when the entry already existed.
func (h *CatalogHandler) ImportTMDB(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	content, created, err := h.svc.ImportTMDB(r.Context(), auth.GetAccountID(r), string(req.TMDBID), req.Query)
	if err != nil {
		log.Printf("[Catalog] Import error for tmdb_id=%q query=%q: %v", req.TMDBID, req.Query, err)
		// A provider miss on an explicit import request is the caller's
		// input being wrong, not a missing resource.
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, tmdb.ErrNotFound) {
			writeJSONError(w, "no matching title on the metadata provider", http.StatusBadRequest)
			return
		}
		writeCatalogError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, content)
}

// Search proxies a cached multi search against the metadata provider.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSONError(w, "q parameter required", http.StatusBadRequest)
		return
	}

	results, err := h.svc.SearchTMDB(r.Context(), query)
	if err != nil {
		log.Printf("[Catalog] Search error for %q: %v", query, err)
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Options handles CORS preflight
func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func contentIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["contentID"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid content id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
