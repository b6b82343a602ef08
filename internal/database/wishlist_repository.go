package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"moviemate/models"
)

// WishlistRepository persists per-owner provider-id bookmarks. Adds are
// idempotent on (owner, tmdb_id): re-adding refreshes title and poster.
type WishlistRepository struct {
	q querier
}

// NewWishlistRepository creates a wishlist repository over the given connection.
func NewWishlistRepository(db *sql.DB) *WishlistRepository {
	return &WishlistRepository{q: db}
}

// List returns the owner's wishlist, newest first.
func (r *WishlistRepository) List(ctx context.Context, ownerID string) ([]models.WishlistItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, owner_id, tmdb_id, media_type, title, poster_path, created_at
		FROM wishlist WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items := make([]models.WishlistItem, 0)
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.TMDBID, &item.MediaType,
			&item.Title, &item.PosterPath, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Add upserts a wishlist entry and returns the stored row.
func (r *WishlistRepository) Add(ctx context.Context, item *models.WishlistItem) error {
	item.CreatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO wishlist (owner_id, tmdb_id, media_type, title, poster_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, tmdb_id) DO UPDATE SET
			media_type = excluded.media_type,
			title = excluded.title,
			poster_path = excluded.poster_path`,
		item.OwnerID, item.TMDBID, item.MediaType, item.Title, item.PosterPath, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return r.q.QueryRowContext(ctx,
		`SELECT id, created_at FROM wishlist WHERE owner_id = ? AND tmdb_id = ?`,
		item.OwnerID, item.TMDBID).Scan(&item.ID, &item.CreatedAt)
}

// Remove deletes the owner's entry for a provider id. Returns whether a row
// was removed.
func (r *WishlistRepository) Remove(ctx context.Context, ownerID, tmdbID string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM wishlist WHERE owner_id = ? AND tmdb_id = ?`, ownerID, tmdbID)
	if err != nil {
		return false, fmt.Errorf("remove wishlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
