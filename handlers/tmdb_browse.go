package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"

	"moviemate/services/tmdb"
)

// TMDBBrowseHandler serves public pass-through browse endpoints against the
// metadata provider. Responses are the provider's payloads verbatim.
type TMDBBrowseHandler struct {
	client *tmdb.Client
}

// NewTMDBBrowseHandler creates a new browse handler.
func NewTMDBBrowseHandler(client *tmdb.Client) *TMDBBrowseHandler {
	return &TMDBBrowseHandler{client: client}
}

// mediaTypeFromPath maps the URL segment (movies/tv) onto the provider's
// media type (movie/tv).
func mediaTypeFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	switch mux.Vars(r)["mediaType"] {
	case "movies":
		return "movie", true
	case "tv":
		return "tv", true
	default:
		writeJSONError(w, "media type must be movies or tv", http.StatusBadRequest)
		return "", false
	}
}

func (h *TMDBBrowseHandler) writeRaw(w http.ResponseWriter, raw json.RawMessage, err error) {
	if err != nil {
		if errors.Is(err, tmdb.ErrNotFound) {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		log.Printf("[Browse] Provider error: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "metadata provider unavailable",
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// Trending serves the provider's weekly trending list.
func (h *TMDBBrowseHandler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromPath(w, r)
	if !ok {
		return
	}
	raw, err := h.client.Trending(r.Context(), mediaType)
	h.writeRaw(w, raw, err)
}

// Popular serves the provider's popular list.
func (h *TMDBBrowseHandler) Popular(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromPath(w, r)
	if !ok {
		return
	}
	raw, err := h.client.Popular(r.Context(), mediaType)
	h.writeRaw(w, raw, err)
}

// TopRated serves the provider's top rated list.
func (h *TMDBBrowseHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromPath(w, r)
	if !ok {
		return
	}
	raw, err := h.client.TopRated(r.Context(), mediaType)
	h.writeRaw(w, raw, err)
}

// NowPlaying serves movies currently in theaters.
func (h *TMDBBrowseHandler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.NowPlaying(r.Context())
	h.writeRaw(w, raw, err)
}

// Genres serves the provider's genre list for a media type.
func (h *TMDBBrowseHandler) Genres(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromPath(w, r)
	if !ok {
		return
	}
	raw, err := h.client.Genres(r.Context(), mediaType)
	h.writeRaw(w, raw, err)
}

// Details serves the provider's full details payload for one title.
func (h *TMDBBrowseHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeFromPath(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid id", http.StatusBadRequest)
		return
	}
	raw, err := h.client.Details(r.Context(), mediaType, id)
	h.writeRaw(w, raw, err)
}

// Home bundles the landing-page sections in one response, fetching each
// section concurrently. A failed section is omitted rather than failing the
// whole bundle.
func (h *TMDBBrowseHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var mu sync.Mutex
	sections := make(map[string]json.RawMessage)
	fetch := func(name string, fn func() (json.RawMessage, error)) func() {
		return func() {
			raw, err := fn()
			if err != nil {
				log.Printf("[Browse] Home section %s failed: %v", name, err)
				return
			}
			mu.Lock()
			sections[name] = raw
			mu.Unlock()
		}
	}

	p := pool.New().WithMaxGoroutines(4)
	p.Go(fetch("trending_movies", func() (json.RawMessage, error) { return h.client.Trending(ctx, "movie") }))
	p.Go(fetch("trending_tv", func() (json.RawMessage, error) { return h.client.Trending(ctx, "tv") }))
	p.Go(fetch("popular_movies", func() (json.RawMessage, error) { return h.client.Popular(ctx, "movie") }))
	p.Go(fetch("popular_tv", func() (json.RawMessage, error) { return h.client.Popular(ctx, "tv") }))
	p.Wait()

	if len(sections) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "metadata provider unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

// Options handles CORS preflight
func (h *TMDBBrowseHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
