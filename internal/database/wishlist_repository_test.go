package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"moviemate/models"
)

func TestWishlistAddListRemove(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := &models.WishlistItem{
		OwnerID:    "alice",
		TMDBID:     "603",
		MediaType:  "movie",
		Title:      "The Matrix",
		PosterPath: "https://image.tmdb.org/t/p/w500/poster.jpg",
	}
	require.NoError(t, db.Wishlist.Add(ctx, item))
	require.NotZero(t, item.ID)
	require.False(t, item.CreatedAt.IsZero())

	items, err := db.Wishlist.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "The Matrix", items[0].Title)

	// Other owners never see it.
	items, err = db.Wishlist.List(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, items)

	removed, err := db.Wishlist.Remove(ctx, "alice", "603")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = db.Wishlist.Remove(ctx, "alice", "603")
	require.NoError(t, err)
	require.False(t, removed, "second remove reports not found")
}

func TestWishlistAddUpserts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.WishlistItem{OwnerID: "alice", TMDBID: "603", MediaType: "movie", Title: "Old Title"}
	require.NoError(t, db.Wishlist.Add(ctx, first))

	// Re-adding the same tmdb id refreshes the metadata in place.
	second := &models.WishlistItem{OwnerID: "alice", TMDBID: "603", MediaType: "movie", Title: "New Title"}
	require.NoError(t, db.Wishlist.Add(ctx, second))
	require.Equal(t, first.ID, second.ID)

	items, err := db.Wishlist.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "New Title", items[0].Title)
}
