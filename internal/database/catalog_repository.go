package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moviemate/models"
	"moviemate/services/catalog"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the repository can run
// standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CatalogRepository persists the Content -> Season -> Episode hierarchy.
// All lazy creation goes through the get-or-create methods, which resolve
// races on the unique keys to a single row.
type CatalogRepository struct {
	db *sql.DB
	q  querier
}

// NewCatalogRepository creates a catalog repository over the given connection.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db, q: db}
}

var _ catalog.Store = (*CatalogRepository)(nil)

// WithTx runs fn against a transaction-bound view of the repository.
// SQLite serializes writers, so the transaction is also the mutual-exclusion
// scope for concurrent mutations of the same content.
func (r *CatalogRepository) WithTx(ctx context.Context, fn func(catalog.Store) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		// Already inside a transaction; nested scopes join it.
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&CatalogRepository{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const contentColumns = `id, owner_id, tmdb_id, title, kind, poster_path, overview, platform, status, rating, review, created_at, updated_at`

func scanContent(row interface{ Scan(...any) error }) (*models.Content, error) {
	var c models.Content
	var rating sql.NullInt64
	err := row.Scan(&c.ID, &c.OwnerID, &c.TMDBID, &c.Title, &c.Kind, &c.PosterPath,
		&c.Overview, &c.Platform, &c.Status, &rating, &c.Review, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		c.Rating = &v
	}
	return &c, nil
}

// CreateContent inserts a content row and backfills its id and timestamps.
func (r *CatalogRepository) CreateContent(ctx context.Context, c *models.Content) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	var rating sql.NullInt64
	if c.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*c.Rating), Valid: true}
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO contents (owner_id, tmdb_id, title, kind, poster_path, overview, platform, status, rating, review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OwnerID, c.TMDBID, c.Title, c.Kind, c.PosterPath, c.Overview, c.Platform,
		c.Status, rating, c.Review, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetContent returns the content with the given id, or nil when absent.
func (r *CatalogRepository) GetContent(ctx context.Context, id int64) (*models.Content, error) {
	c, err := scanContent(r.q.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

// FindContentByOwnerTMDB returns the owner's content with the given provider
// id, or nil when absent. Used for idempotent import dedup.
func (r *CatalogRepository) FindContentByOwnerTMDB(ctx context.Context, ownerID, tmdbID string) (*models.Content, error) {
	c, err := scanContent(r.q.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE owner_id = ? AND tmdb_id = ? AND tmdb_id != '' LIMIT 1`,
		ownerID, tmdbID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content by tmdb id: %w", err)
	}
	return c, nil
}

// ListContents returns the owner's contents, newest first.
func (r *CatalogRepository) ListContents(ctx context.Context, ownerID string) ([]models.Content, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	contents := make([]models.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *c)
	}
	return contents, rows.Err()
}

// UpdateContent persists the mutable fields of a content row.
func (r *CatalogRepository) UpdateContent(ctx context.Context, c *models.Content) error {
	c.UpdatedAt = time.Now().UTC()
	var rating sql.NullInt64
	if c.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*c.Rating), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		UPDATE contents
		SET title = ?, poster_path = ?, overview = ?, platform = ?, status = ?, rating = ?, review = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.PosterPath, c.Overview, c.Platform, c.Status, rating, c.Review, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	return nil
}

// UpdateContentStatus sets only the derived status field.
func (r *CatalogRepository) UpdateContentStatus(ctx context.Context, contentID int64, status models.WatchStatus) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE contents SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), contentID)
	if err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	return nil
}

// DeleteContent removes a content row; seasons and episodes cascade.
func (r *CatalogRepository) DeleteContent(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM contents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// GetOrCreateSeason returns the season for (content, seasonNumber), creating
// it if missing. episodesCount is only applied on creation; an existing row
// keeps whatever count it already has.
func (r *CatalogRepository) GetOrCreateSeason(ctx context.Context, contentID int64, seasonNumber int, episodesCount *int) (*models.Season, error) {
	var count sql.NullInt64
	if episodesCount != nil {
		count = sql.NullInt64{Int64: int64(*episodesCount), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO seasons (content_id, season_number, episodes_count)
		VALUES (?, ?, ?)
		ON CONFLICT (content_id, season_number) DO NOTHING`,
		contentID, seasonNumber, count)
	if err != nil {
		return nil, fmt.Errorf("upsert season: %w", err)
	}
	return r.getSeason(ctx, contentID, seasonNumber)
}

func (r *CatalogRepository) getSeason(ctx context.Context, contentID int64, seasonNumber int) (*models.Season, error) {
	var s models.Season
	var count sql.NullInt64
	err := r.q.QueryRowContext(ctx,
		`SELECT id, content_id, season_number, episodes_count FROM seasons WHERE content_id = ? AND season_number = ?`,
		contentID, seasonNumber).Scan(&s.ID, &s.ContentID, &s.SeasonNumber, &count)
	if err != nil {
		return nil, fmt.Errorf("get season: %w", err)
	}
	if count.Valid {
		v := int(count.Int64)
		s.EpisodesCount = &v
	}
	return &s, nil
}

// ListSeasons returns all seasons of a content ordered by season number.
func (r *CatalogRepository) ListSeasons(ctx context.Context, contentID int64) ([]models.Season, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, content_id, season_number, episodes_count FROM seasons WHERE content_id = ? ORDER BY season_number ASC`,
		contentID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	seasons := make([]models.Season, 0)
	for rows.Next() {
		var s models.Season
		var count sql.NullInt64
		if err := rows.Scan(&s.ID, &s.ContentID, &s.SeasonNumber, &count); err != nil {
			return nil, err
		}
		if count.Valid {
			v := int(count.Int64)
			s.EpisodesCount = &v
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

// GetOrCreateEpisode returns the episode for (season, episodeNumber),
// creating an unwatched row if missing. The second return reports whether a
// row was created. title is only applied on creation.
func (r *CatalogRepository) GetOrCreateEpisode(ctx context.Context, seasonID int64, episodeNumber int, title string) (*models.Episode, bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO episodes (season_id, episode_number, title, watched)
		VALUES (?, ?, ?, 0)
		ON CONFLICT (season_id, episode_number) DO NOTHING`,
		seasonID, episodeNumber, title)
	if err != nil {
		return nil, false, fmt.Errorf("upsert episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	var e models.Episode
	err = r.q.QueryRowContext(ctx,
		`SELECT id, season_id, episode_number, title, watched FROM episodes WHERE season_id = ? AND episode_number = ?`,
		seasonID, episodeNumber).Scan(&e.ID, &e.SeasonID, &e.EpisodeNumber, &e.Title, &e.Watched)
	if err != nil {
		return nil, false, fmt.Errorf("get episode: %w", err)
	}
	return &e, affected > 0, nil
}

// ListEpisodes returns all episodes of a season ordered by episode number.
func (r *CatalogRepository) ListEpisodes(ctx context.Context, seasonID int64) ([]models.Episode, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, season_id, episode_number, title, watched FROM episodes WHERE season_id = ? ORDER BY episode_number ASC`,
		seasonID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]models.Episode, 0)
	for rows.Next() {
		var e models.Episode
		if err := rows.Scan(&e.ID, &e.SeasonID, &e.EpisodeNumber, &e.Title, &e.Watched); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

// SetEpisodeWatched flips a single episode's watched flag.
func (r *CatalogRepository) SetEpisodeWatched(ctx context.Context, episodeID int64, watched bool) error {
	_, err := r.q.ExecContext(ctx, `UPDATE episodes SET watched = ? WHERE id = ?`, watched, episodeID)
	if err != nil {
		return fmt.Errorf("set episode watched: %w", err)
	}
	return nil
}

// MarkSeasonEpisodesWatched sets watched=true on every episode row of a season.
func (r *CatalogRepository) MarkSeasonEpisodesWatched(ctx context.Context, seasonID int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE episodes SET watched = 1 WHERE season_id = ?`, seasonID)
	if err != nil {
		return fmt.Errorf("mark season watched: %w", err)
	}
	return nil
}

// CountSeasonEpisodes returns the number of episode rows in a season.
func (r *CatalogRepository) CountSeasonEpisodes(ctx context.Context, seasonID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes WHERE season_id = ?`, seasonID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count season episodes: %w", err)
	}
	return n, nil
}

// CountWatchedEpisodes returns the number of watched episodes across all
// seasons of a content.
func (r *CatalogRepository) CountWatchedEpisodes(ctx context.Context, contentID int64) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM episodes e
		JOIN seasons s ON s.id = e.season_id
		WHERE s.content_id = ? AND e.watched = 1`, contentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count watched episodes: %w", err)
	}
	return n, nil
}
