package models

import "time"

// ContentKind distinguishes movies from TV shows.
type ContentKind string

const (
	KindMovie ContentKind = "movie"
	KindTV    ContentKind = "tv"
)

// Valid reports whether the kind is one of the supported values.
func (k ContentKind) Valid() bool {
	return k == KindMovie || k == KindTV
}

// WatchStatus is the derived consumption state of a Content.
type WatchStatus string

const (
	StatusWishlist  WatchStatus = "wishlist"
	StatusWatching  WatchStatus = "watching"
	StatusCompleted WatchStatus = "completed"
)

// Valid reports whether the status is one of the supported values.
func (s WatchStatus) Valid() bool {
	return s == StatusWishlist || s == StatusWatching || s == StatusCompleted
}

// Content is a user-owned entry representing either a movie or a TV show.
// TMDBID stores the provider identifier and may be empty for manual entries;
// (owner, tmdb_id, title) is unique so title still guards against duplicates.
type Content struct {
	ID         int64       `json:"id"`
	OwnerID    string      `json:"owner_id"`
	TMDBID     string      `json:"tmdb_id,omitempty"`
	Title      string      `json:"title"`
	Kind       ContentKind `json:"type"`
	PosterPath string      `json:"poster_path,omitempty"`
	Overview   string      `json:"overview,omitempty"`
	Platform   string      `json:"platform,omitempty"`
	Status     WatchStatus `json:"status"`
	Rating     *int        `json:"rating,omitempty"` // 1-10 when set
	Review     string      `json:"review,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Season is a subdivision of a tv-kind Content. EpisodesCount is nil when the
// provider did not report it; the distinction drives status derivation.
type Season struct {
	ID            int64 `json:"id"`
	ContentID     int64 `json:"-"`
	SeasonNumber  int   `json:"season_number"`
	EpisodesCount *int  `json:"episodes_count,omitempty"`
}

// Episode is the atomic watchable unit.
type Episode struct {
	ID            int64  `json:"id"`
	SeasonID      int64  `json:"-"`
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title,omitempty"`
	Watched       bool   `json:"watched"`
}

// ContentDetail is the API representation of a Content with its season tree
// and computed progress.
type ContentDetail struct {
	Content
	Seasons         []SeasonDetail `json:"seasons"`
	ProgressPercent *int           `json:"progress_percent"`
}

// SeasonDetail is a Season with its episodes, ordered by episode number.
type SeasonDetail struct {
	Season
	Episodes []Episode `json:"episodes"`
}

// WishlistItem is a lightweight provider-id bookmark, separate from the
// owned Content hierarchy.
type WishlistItem struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"-"`
	TMDBID     string    `json:"tmdb_id"`
	MediaType  string    `json:"media_type"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchResult is a normalized TMDB multi-search hit.
type SearchResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	MediaType   string `json:"media_type"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}
