package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"moviemate/handlers"
	"moviemate/internal/database"
	"moviemate/models"
)

func setupWishlistHandler(t *testing.T) *handlers.WishlistHandler {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return handlers.NewWishlistHandler(db.Wishlist)
}

func TestWishlistAddListRemoveFlow(t *testing.T) {
	h := setupWishlistHandler(t)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(http.MethodPost, "/api/catalog/wishlist/add", "alice", map[string]string{
		"tmdb_id": "603", "media_type": "movie", "title": "The Matrix", "poster_path": "/m.jpg",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body.String())
	}

	// Other accounts never see it.
	rec = httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/catalog/wishlist", "mallory", nil))
	var items []models.WishlistItem
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 0 {
		t.Errorf("mallory sees %d items, want 0", len(items))
	}

	rec = httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/catalog/wishlist", "alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &items)
	if len(items) != 1 || items[0].Title != "The Matrix" {
		t.Fatalf("items = %+v", items)
	}

	req := mux.SetURLVars(authedRequest(http.MethodDelete, "/x", "alice", nil), map[string]string{"tmdbID": "603"})
	rec = httptest.NewRecorder()
	h.Remove(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", rec.Code)
	}

	req = mux.SetURLVars(authedRequest(http.MethodDelete, "/x", "alice", nil), map[string]string{"tmdbID": "603"})
	rec = httptest.NewRecorder()
	h.Remove(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}

func TestWishlistAddValidation(t *testing.T) {
	h := setupWishlistHandler(t)

	rec := httptest.NewRecorder()
	h.Add(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{"media_type": "movie"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing tmdb_id: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Add(rec, authedRequest(http.MethodPost, "/x", "alice", map[string]string{"tmdb_id": "603", "media_type": "book"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad media_type: status = %d, want 400", rec.Code)
	}
}
