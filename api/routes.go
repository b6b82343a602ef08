package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"moviemate/handlers"
	"moviemate/services/accounts"
	"moviemate/services/sessions"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	catalogHandler *handlers.CatalogHandler,
	wishlistHandler *handlers.WishlistHandler,
	browseHandler *handlers.TMDBBrowseHandler,
	imageHandler *handlers.ImageHandler,
	accountsSvc *accounts.Service,
	sessionsSvc *sessions.Service,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Auth routes (no authentication required)
	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc)
	api.HandleFunc("/accounts/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/register", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Options).Methods(http.MethodOptions)

	// Public browse endpoints: no auth so landing pages work logged out
	api.HandleFunc("/catalog/tmdb/trending/{mediaType}", browseHandler.Trending).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/trending/{mediaType}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/tmdb/popular/{mediaType}", browseHandler.Popular).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/popular/{mediaType}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/tmdb/top-rated/{mediaType}", browseHandler.TopRated).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/top-rated/{mediaType}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/tmdb/now-playing", browseHandler.NowPlaying).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/now-playing", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/tmdb/genres/{mediaType}", browseHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/genres/{mediaType}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/tmdb/{mediaType}/{id:[0-9]+}", browseHandler.Details).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tmdb/{mediaType}/{id:[0-9]+}", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/home", browseHandler.Home).Methods(http.MethodGet)
	api.HandleFunc("/catalog/home", handleOptions).Methods(http.MethodOptions)

	// Image proxy endpoint (public - no auth required for image loading)
	api.HandleFunc("/image", imageHandler.Proxy).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/image", imageHandler.Options).Methods(http.MethodOptions)

	// Protected routes - require authentication
	protected := api.PathPrefix("").Subrouter()
	protected.Use(AccountAuthMiddleware(sessionsSvc))

	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/password", authHandler.ChangePassword).Methods(http.MethodPut)

	// Account administration - master account only
	admin := protected.PathPrefix("/accounts").Subrouter()
	admin.Use(MasterOnlyMiddleware())
	admin.HandleFunc("", authHandler.ListAccounts).Methods(http.MethodGet)
	admin.HandleFunc("", authHandler.Options).Methods(http.MethodOptions)
	admin.HandleFunc("/{accountID}", authHandler.DeleteAccount).Methods(http.MethodDelete)
	admin.HandleFunc("/{accountID}", authHandler.Options).Methods(http.MethodOptions)

	// Catalog: import endpoints registered before {contentID} so mux never
	// treats them as ids
	protected.HandleFunc("/catalog/contents/import_tmdb", catalogHandler.ImportTMDB).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/contents/import_tmdb", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/contents/tmdb_search", catalogHandler.Search).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/contents/tmdb_search", catalogHandler.Options).Methods(http.MethodOptions)

	protected.HandleFunc("/catalog/contents", catalogHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/contents", catalogHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/contents", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}", catalogHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}", catalogHandler.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}", catalogHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}/toggle_episode", catalogHandler.ToggleEpisode).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}/toggle_episode", catalogHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}/mark_season_watched", catalogHandler.MarkSeasonWatched).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/contents/{contentID:[0-9]+}/mark_season_watched", catalogHandler.Options).Methods(http.MethodOptions)

	protected.HandleFunc("/catalog/wishlist", wishlistHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/catalog/wishlist", wishlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/wishlist/add", wishlistHandler.Add).Methods(http.MethodPost)
	protected.HandleFunc("/catalog/wishlist/add", wishlistHandler.Options).Methods(http.MethodOptions)
	protected.HandleFunc("/catalog/wishlist/remove/{tmdbID}", wishlistHandler.Remove).Methods(http.MethodDelete)
	protected.HandleFunc("/catalog/wishlist/remove/{tmdbID}", wishlistHandler.Options).Methods(http.MethodOptions)
}
