package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"moviemate/handlers"
	"moviemate/internal/auth"
	"moviemate/internal/database"
	"moviemate/models"
	"moviemate/services/catalog"
	"moviemate/services/tmdb"
)

// scriptedClient returns canned provider records.
type scriptedClient struct {
	movies map[int64]*tmdb.MovieRecord
	tvs    map[int64]*tmdb.TVRecord
}

func (c *scriptedClient) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return nil, tmdb.ErrNotFound
}

func (c *scriptedClient) MovieDetails(ctx context.Context, tmdbID int64) (*tmdb.MovieRecord, error) {
	if rec, ok := c.movies[tmdbID]; ok {
		return rec, nil
	}
	return nil, tmdb.ErrNotFound
}

func (c *scriptedClient) TVDetails(ctx context.Context, tmdbID int64) (*tmdb.TVRecord, error) {
	if rec, ok := c.tvs[tmdbID]; ok {
		return rec, nil
	}
	return nil, tmdb.ErrNotFound
}

func setupCatalogHandler(t *testing.T, client catalog.Client) *handlers.CatalogHandler {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := catalog.NewService(db.Catalog, client)
	return handlers.NewCatalogHandler(svc)
}

// authedRequest builds a request carrying the given account in its context.
func authedRequest(method, target, accountID string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := context.WithValue(req.Context(), auth.ContextKeyAccountID, accountID)
	return req.WithContext(ctx)
}

func breakingBad() *tmdb.TVRecord {
	rec := &tmdb.TVRecord{ID: 1396, Name: "Breaking Bad", PosterPath: "/poster.jpg"}
	for _, s := range [][2]int{{0, 8}, {1, 2}, {2, 3}} {
		rec.Seasons = append(rec.Seasons, struct {
			SeasonNumber int `json:"season_number"`
			EpisodeCount int `json:"episode_count"`
		}{SeasonNumber: s[0], EpisodeCount: s[1]})
	}
	return rec
}

func TestImportThenToggleEpisode(t *testing.T) {
	client := &scriptedClient{tvs: map[int64]*tmdb.TVRecord{1396: breakingBad()}}
	h := setupCatalogHandler(t, client)

	// Import by id.
	req := authedRequest(http.MethodPost, "/api/catalog/contents/import_tmdb", "alice", map[string]string{"tmdb_id": "1396"})
	rec := httptest.NewRecorder()
	h.ImportTMDB(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}
	var content models.Content
	if err := json.Unmarshal(rec.Body.Bytes(), &content); err != nil {
		t.Fatalf("decode import response: %v", err)
	}
	if content.Kind != models.KindTV || content.Status != models.StatusWishlist {
		t.Fatalf("imported content = %+v", content)
	}

	// Re-import: 200, same row.
	rec = httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/api/catalog/contents/import_tmdb", "alice", map[string]string{"tmdb_id": "1396"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("re-import status = %d", rec.Code)
	}

	// Toggle S1E1.
	contentID := vars(content.ID)
	req = authedRequest(http.MethodPost, "/api/catalog/contents/1/toggle_episode", "alice", map[string]any{"season_number": 1, "episode_number": 1, "title": "Pilot"})
	req = mux.SetURLVars(req, contentID)
	rec = httptest.NewRecorder()
	h.ToggleEpisode(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d body=%s", rec.Code, rec.Body.String())
	}
	var toggle struct {
		Watched bool            `json:"watched"`
		Episode *models.Episode `json:"episode"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &toggle); err != nil {
		t.Fatalf("decode toggle response: %v", err)
	}
	if !toggle.Watched || toggle.Episode == nil || toggle.Episode.EpisodeNumber != 1 {
		t.Fatalf("toggle response = %+v", toggle)
	}

	// Detail shows watching with progress 20 (1 of 5 known episodes).
	req = mux.SetURLVars(authedRequest(http.MethodGet, "/api/catalog/contents/1", "alice", nil), contentID)
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var detail models.ContentDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Status != models.StatusWatching {
		t.Errorf("status = %q, want watching", detail.Status)
	}
	if detail.ProgressPercent == nil || *detail.ProgressPercent != 20 {
		t.Errorf("progress = %v, want 20", detail.ProgressPercent)
	}
	if len(detail.Seasons) != 2 {
		t.Errorf("seasons = %d, want 2 (specials skipped)", len(detail.Seasons))
	}
}

func TestToggleEpisodeErrorMapping(t *testing.T) {
	client := &scriptedClient{tvs: map[int64]*tmdb.TVRecord{1396: breakingBad()}}
	h := setupCatalogHandler(t, client)

	rec := httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/api/catalog/contents/import_tmdb", "alice", map[string]string{"tmdb_id": "1396"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d", rec.Code)
	}
	var content models.Content
	json.Unmarshal(rec.Body.Bytes(), &content)
	contentID := vars(content.ID)

	// Missing fields -> 400.
	req := mux.SetURLVars(authedRequest(http.MethodPost, "/x", "alice", map[string]any{"season_number": 1}), contentID)
	rec = httptest.NewRecorder()
	h.ToggleEpisode(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing episode_number: status = %d, want 400", rec.Code)
	}

	// Non-owner -> 403.
	req = mux.SetURLVars(authedRequest(http.MethodPost, "/x", "mallory", map[string]any{"season_number": 1, "episode_number": 1}), contentID)
	rec = httptest.NewRecorder()
	h.ToggleEpisode(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner: status = %d, want 403", rec.Code)
	}

	// Unknown content -> 404.
	req = mux.SetURLVars(authedRequest(http.MethodPost, "/x", "alice", map[string]any{"season_number": 1, "episode_number": 1}), map[string]string{"contentID": "9999"})
	rec = httptest.NewRecorder()
	h.ToggleEpisode(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown content: status = %d, want 404", rec.Code)
	}
}

func TestMarkSeasonWatchedFlow(t *testing.T) {
	client := &scriptedClient{tvs: map[int64]*tmdb.TVRecord{1396: breakingBad()}}
	h := setupCatalogHandler(t, client)

	rec := httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{"tmdb_id": "1396"}))
	var content models.Content
	json.Unmarshal(rec.Body.Bytes(), &content)
	contentID := vars(content.ID)

	for _, seasonNumber := range []int{1, 2} {
		req := mux.SetURLVars(authedRequest(http.MethodPost, "/x", "alice", map[string]any{"season_number": seasonNumber}), contentID)
		rec = httptest.NewRecorder()
		h.MarkSeasonWatched(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("mark season %d: status = %d body=%s", seasonNumber, rec.Code, rec.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode mark response: %v", err)
		}
		if resp["detail"] == "" {
			t.Errorf("mark season %d: missing detail message", seasonNumber)
		}
	}

	req := mux.SetURLVars(authedRequest(http.MethodGet, "/x", "alice", nil), contentID)
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	var detail models.ContentDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed after all seasons", detail.Status)
	}
	if detail.ProgressPercent == nil || *detail.ProgressPercent != 100 {
		t.Errorf("progress = %v, want 100", detail.ProgressPercent)
	}
}

func TestImportAcceptsNumericID(t *testing.T) {
	client := &scriptedClient{movies: map[int64]*tmdb.MovieRecord{
		603: {ID: 603, Title: "The Matrix", PosterPath: "/matrix.jpg"},
	}}
	h := setupCatalogHandler(t, client)

	// Clients send tmdb_id as a bare number as often as a string.
	rec := httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/api/catalog/contents/import_tmdb", "alice", map[string]any{"tmdb_id": 603}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("numeric id import status = %d body=%s", rec.Code, rec.Body.String())
	}
	var content models.Content
	if err := json.Unmarshal(rec.Body.Bytes(), &content); err != nil {
		t.Fatalf("decode import response: %v", err)
	}
	if content.TMDBID != "603" || content.Kind != models.KindMovie {
		t.Fatalf("imported content = %+v", content)
	}

	// The string form resolves to the same row.
	rec = httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/api/catalog/contents/import_tmdb", "alice", map[string]any{"tmdb_id": "603"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("string id re-import status = %d", rec.Code)
	}
}

func TestImportValidation(t *testing.T) {
	h := setupCatalogHandler(t, &scriptedClient{})

	// Neither tmdb_id nor query -> 400.
	rec := httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty import: status = %d, want 400", rec.Code)
	}

	// An id the provider does not know is bad input.
	rec = httptest.NewRecorder()
	h.ImportTMDB(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{"tmdb_id": "424242"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown id: status = %d, want 400", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := setupCatalogHandler(t, &scriptedClient{})

	rec := httptest.NewRecorder()
	h.Search(rec, authedRequest(http.MethodGet, "/api/catalog/contents/tmdb_search", "alice", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", rec.Code)
	}
}

func TestManualCreateAndUpdate(t *testing.T) {
	h := setupCatalogHandler(t, &scriptedClient{})

	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{"title": "Home Movies", "kind": "movie", "platform": "DVD"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	var content models.Content
	json.Unmarshal(rec.Body.Bytes(), &content)

	req := mux.SetURLVars(authedRequest(http.MethodPatch, "/x", "alice", map[string]any{"rating": 8, "status": "completed"}), vars(content.ID))
	rec = httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body.String())
	}

	// Rating out of range -> 400.
	req = mux.SetURLVars(authedRequest(http.MethodPatch, "/x", "alice", map[string]any{"rating": 11}), vars(content.ID))
	rec = httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("rating 11: status = %d, want 400", rec.Code)
	}

	// Delete, then 404 on second delete.
	req = mux.SetURLVars(authedRequest(http.MethodDelete, "/x", "alice", nil), vars(content.ID))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	req = mux.SetURLVars(authedRequest(http.MethodDelete, "/x", "alice", nil), vars(content.ID))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func vars(contentID int64) map[string]string {
	return map[string]string{"contentID": strconv.FormatInt(contentID, 10)}
}
