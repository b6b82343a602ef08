// Package catalog implements the watch-state consistency engine: importing
// canonical metadata from TMDB and keeping the Content -> Season -> Episode
// hierarchy coherent as episodes are toggled and seasons bulk-marked.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"moviemate/models"
	"moviemate/services/tmdb"
)

var (
	// ErrValidation covers malformed or missing caller input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound means the content (or provider record) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller does not own the content.
	ErrForbidden = errors.New("not owner")
)

// Store is the persistence boundary for the catalog service. Get-or-create
// methods must resolve creation races on the unique keys to a single row.
type Store interface {
	// WithTx runs fn atomically. The transaction is the mutual-exclusion
	// scope for concurrent mutations of the same content: resolve/create,
	// mutate and status recomputation all happen inside one call.
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateContent(ctx context.Context, c *models.Content) error
	GetContent(ctx context.Context, id int64) (*models.Content, error)
	FindContentByOwnerTMDB(ctx context.Context, ownerID, tmdbID string) (*models.Content, error)
	ListContents(ctx context.Context, ownerID string) ([]models.Content, error)
	UpdateContent(ctx context.Context, c *models.Content) error
	UpdateContentStatus(ctx context.Context, contentID int64, status models.WatchStatus) error
	DeleteContent(ctx context.Context, id int64) error

	GetOrCreateSeason(ctx context.Context, contentID int64, seasonNumber int, episodesCount *int) (*models.Season, error)
	ListSeasons(ctx context.Context, contentID int64) ([]models.Season, error)

	GetOrCreateEpisode(ctx context.Context, seasonID int64, episodeNumber int, title string) (*models.Episode, bool, error)
	ListEpisodes(ctx context.Context, seasonID int64) ([]models.Episode, error)
	SetEpisodeWatched(ctx context.Context, episodeID int64, watched bool) error
	MarkSeasonEpisodesWatched(ctx context.Context, seasonID int64) error
	CountSeasonEpisodes(ctx context.Context, seasonID int64) (int, error)
	CountWatchedEpisodes(ctx context.Context, contentID int64) (int, error)
}

// Client is the external catalog boundary the importer consults.
type Client interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	MovieDetails(ctx context.Context, tmdbID int64) (*tmdb.MovieRecord, error)
	TVDetails(ctx context.Context, tmdbID int64) (*tmdb.TVRecord, error)
}

// Service applies import and watch-state operations against the store.
// It is stateless: all state lives in the store and the provider.
type Service struct {
	store  Store
	client Client
	// probeOrder is the sequence of TMDB detail endpoints tried during kind
	// detection. The order is not load-bearing; movie-first is the default.
	probeOrder []models.ContentKind
}

// Option customizes service construction.
type Option func(*Service)

// WithProbeFirst makes kind detection try the given endpoint first.
func WithProbeFirst(kind models.ContentKind) Option {
	return func(s *Service) {
		if kind == models.KindTV {
			s.probeOrder = []models.ContentKind{models.KindTV, models.KindMovie}
		} else {
			s.probeOrder = []models.ContentKind{models.KindMovie, models.KindTV}
		}
	}
}

// NewService constructs a catalog service over the given store and client.
func NewService(store Store, client Client, opts ...Option) *Service {
	s := &Service{
		store:      store,
		client:     client,
		probeOrder: []models.ContentKind{models.KindMovie, models.KindTV},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchTMDB runs a multi search against the metadata provider.
func (s *Service) SearchTMDB(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	return s.client.Search(ctx, query)
}

// ImportTMDB resolves a provider id or free-text query to exactly one content
// row for the owner. Import is idempotent: an existing (owner, tmdb_id) pair
// is returned unchanged, without any provider call. The second return value
// reports whether a new row was created.
func (s *Service) ImportTMDB(ctx context.Context, ownerID, tmdbID, query string) (*models.Content, bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	tmdbID = strings.TrimSpace(tmdbID)
	query = strings.TrimSpace(query)
	if ownerID == "" {
		return nil, false, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if tmdbID == "" && query == "" {
		return nil, false, fmt.Errorf("%w: tmdb_id or query required", ErrValidation)
	}

	if tmdbID == "" {
		results, err := s.client.Search(ctx, query)
		if err != nil {
			return nil, false, err
		}
		if len(results) == 0 {
			return nil, false, fmt.Errorf("%w: no results for query", ErrNotFound)
		}
		tmdbID = strconv.FormatInt(results[0].ID, 10)
	}

	// Duplicate check before any detail fetch: re-importing must never hit
	// the provider or create a second row.
	if existing, err := s.store.FindContentByOwnerTMDB(ctx, ownerID, tmdbID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	numericID, err := strconv.ParseInt(tmdbID, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%w: tmdb_id must be numeric", ErrValidation)
	}

	content, seasons, err := s.resolveProviderRecord(ctx, ownerID, tmdbID, numericID)
	if err != nil {
		return nil, false, err
	}

	created := false
	err = s.store.WithTx(ctx, func(tx Store) error {
		// Re-check inside the transaction so a concurrent import of the
		// same id resolves to a single row.
		if existing, err := tx.FindContentByOwnerTMDB(ctx, ownerID, tmdbID); err != nil {
			return err
		} else if existing != nil {
			content = existing
			return nil
		}
		if err := tx.CreateContent(ctx, content); err != nil {
			return err
		}
		for _, season := range seasons {
			if _, err := tx.GetOrCreateSeason(ctx, content.ID, season.SeasonNumber, season.EpisodesCount); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return content, created, nil
}

// resolveProviderRecord detects the record kind by probing detail endpoints
// in order, falling back only on a definitive not-found. A transient provider
// failure propagates immediately so it is never masked as not-found.
func (s *Service) resolveProviderRecord(ctx context.Context, ownerID, tmdbID string, numericID int64) (*models.Content, []models.Season, error) {
	for _, kind := range s.probeOrder {
		switch kind {
		case models.KindMovie:
			rec, err := s.client.MovieDetails(ctx, numericID)
			if errors.Is(err, tmdb.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			return &models.Content{
				OwnerID:    ownerID,
				TMDBID:     tmdbID,
				Title:      rec.BestTitle(),
				Kind:       models.KindMovie,
				PosterPath: tmdb.PosterURL(rec.PosterPath),
				Overview:   rec.Overview,
				Status:     models.StatusWishlist,
			}, nil, nil

		case models.KindTV:
			rec, err := s.client.TVDetails(ctx, numericID)
			if errors.Is(err, tmdb.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			content := &models.Content{
				OwnerID:    ownerID,
				TMDBID:     tmdbID,
				Title:      rec.BestName(),
				Kind:       models.KindTV,
				PosterPath: tmdb.PosterURL(rec.PosterPath),
				Overview:   rec.Overview,
				Status:     models.StatusWishlist,
			}
			seasons := make([]models.Season, 0, len(rec.Seasons))
			for _, entry := range rec.Seasons {
				// Season 0 holds specials; always skipped.
				if entry.SeasonNumber < 1 {
					continue
				}
				season := models.Season{SeasonNumber: entry.SeasonNumber}
				if entry.EpisodeCount > 0 {
					count := entry.EpisodeCount
					season.EpisodesCount = &count
				}
				seasons = append(seasons, season)
			}
			return content, seasons, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: no tmdb record for id %s", ErrNotFound, tmdbID)
}

// ToggleEpisode flips the watched flag of one episode, lazily creating its
// season and episode rows, and recomputes the content status. The whole
// operation is atomic: a failure leaves no partially created rows behind.
func (s *Service) ToggleEpisode(ctx context.Context, ownerID string, contentID int64, seasonNumber, episodeNumber int, title string) (*models.Episode, bool, error) {
	if seasonNumber < 1 || episodeNumber < 1 {
		return nil, false, fmt.Errorf("%w: season_number and episode_number must be positive integers", ErrValidation)
	}

	var episode *models.Episode
	var watched bool
	err := s.store.WithTx(ctx, func(tx Store) error {
		content, err := s.ownedContent(ctx, tx, ownerID, contentID)
		if err != nil {
			return err
		}
		// Only tv content has a season hierarchy.
		if content.Kind != models.KindTV {
			return fmt.Errorf("%w: episodes only apply to tv content", ErrValidation)
		}
		season, err := tx.GetOrCreateSeason(ctx, content.ID, seasonNumber, nil)
		if err != nil {
			return err
		}
		ep, _, err := tx.GetOrCreateEpisode(ctx, season.ID, episodeNumber, title)
		if err != nil {
			return err
		}
		watched = !ep.Watched
		if err := tx.SetEpisodeWatched(ctx, ep.ID, watched); err != nil {
			return err
		}
		ep.Watched = watched
		episode = ep
		return s.recomputeStatus(ctx, tx, content)
	})
	if err != nil {
		return nil, false, err
	}
	return episode, watched, nil
}

// MarkSeasonWatched marks every episode of a season watched. When the
// provider reported an episode count, missing episode rows are created first
// so the season ends up fully materialized.
func (s *Service) MarkSeasonWatched(ctx context.Context, ownerID string, contentID int64, seasonNumber int) error {
	if seasonNumber < 1 {
		return fmt.Errorf("%w: season_number must be a positive integer", ErrValidation)
	}

	return s.store.WithTx(ctx, func(tx Store) error {
		content, err := s.ownedContent(ctx, tx, ownerID, contentID)
		if err != nil {
			return err
		}
		if content.Kind != models.KindTV {
			return fmt.Errorf("%w: episodes only apply to tv content", ErrValidation)
		}
		season, err := tx.GetOrCreateSeason(ctx, content.ID, seasonNumber, nil)
		if err != nil {
			return err
		}
		if season.EpisodesCount != nil {
			existing, err := tx.CountSeasonEpisodes(ctx, season.ID)
			if err != nil {
				return err
			}
			for i := existing + 1; i <= *season.EpisodesCount; i++ {
				if _, _, err := tx.GetOrCreateEpisode(ctx, season.ID, i, ""); err != nil {
					return err
				}
			}
		}
		if err := tx.MarkSeasonEpisodesWatched(ctx, season.ID); err != nil {
			return err
		}
		return s.recomputeStatus(ctx, tx, content)
	})
}

// recomputeStatus applies the status derivation rule to tv content:
//
//	total unknown: wishlist -> watching once anything is watched
//	total known:   completed when watched >= total, watching on first watch
//
// Status never regresses automatically; completed stays completed.
func (s *Service) recomputeStatus(ctx context.Context, st Store, content *models.Content) error {
	if content.Kind != models.KindTV {
		return nil
	}

	total, err := s.totalEpisodes(ctx, st, content.ID)
	if err != nil {
		return err
	}
	watched, err := st.CountWatchedEpisodes(ctx, content.ID)
	if err != nil {
		return err
	}

	var next models.WatchStatus
	switch {
	case total == nil:
		if watched > 0 && content.Status == models.StatusWishlist {
			next = models.StatusWatching
		}
	case watched >= *total && *total > 0:
		if content.Status != models.StatusCompleted {
			next = models.StatusCompleted
		}
	case watched > 0 && content.Status == models.StatusWishlist:
		next = models.StatusWatching
	}

	if next == "" {
		return nil
	}
	if err := st.UpdateContentStatus(ctx, content.ID, next); err != nil {
		return err
	}
	content.Status = next
	return nil
}

// totalEpisodes sums episodes_count across all seasons. The total is unknown
// (nil) when the content has no seasons or when any single season's count is
// missing: one unknown season makes the whole total unknown.
func (s *Service) totalEpisodes(ctx context.Context, st Store, contentID int64) (*int, error) {
	seasons, err := st.ListSeasons(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		return nil, nil
	}
	total := 0
	for _, season := range seasons {
		if season.EpisodesCount == nil {
			return nil, nil
		}
		total += *season.EpisodesCount
	}
	return &total, nil
}

// ProgressPercent returns the watched fraction of a tv content as an integer
// percentage, or nil when the content is a movie or the total is unknown or
// zero.
func (s *Service) ProgressPercent(ctx context.Context, content *models.Content) (*int, error) {
	if content.Kind != models.KindTV {
		return nil, nil
	}
	total, err := s.totalEpisodes(ctx, s.store, content.ID)
	if err != nil {
		return nil, err
	}
	if total == nil || *total == 0 {
		return nil, nil
	}
	watched, err := s.store.CountWatchedEpisodes(ctx, content.ID)
	if err != nil {
		return nil, err
	}
	percent := watched * 100 / *total
	if percent > 100 {
		percent = 100
	}
	return &percent, nil
}

func (s *Service) ownedContent(ctx context.Context, st Store, ownerID string, contentID int64) (*models.Content, error) {
	content, err := st.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%w: content %d", ErrNotFound, contentID)
	}
	if content.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return content, nil
}

