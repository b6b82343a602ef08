package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"moviemate/models"
	"moviemate/services/catalog"
)

// setupTestDB creates a migrated on-disk database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestContent(owner, tmdbID string, kind models.ContentKind) *models.Content {
	return &models.Content{
		OwnerID: owner,
		TMDBID:  tmdbID,
		Title:   "Test Title",
		Kind:    kind,
		Status:  models.StatusWishlist,
	}
}

func TestContentCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	content := newTestContent("alice", "603", models.KindMovie)
	require.NoError(t, db.Catalog.CreateContent(ctx, content))
	require.NotZero(t, content.ID)
	require.False(t, content.CreatedAt.IsZero())

	got, err := db.Catalog.GetContent(ctx, content.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "603", got.TMDBID)
	require.Equal(t, models.StatusWishlist, got.Status)
	require.Nil(t, got.Rating)

	missing, err := db.Catalog.GetContent(ctx, 9999)
	require.NoError(t, err)
	require.Nil(t, missing)

	rating := 9
	got.Rating = &rating
	got.Review = "great"
	got.Platform = "Netflix"
	require.NoError(t, db.Catalog.UpdateContent(ctx, got))

	got, err = db.Catalog.GetContent(ctx, content.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	require.Equal(t, 9, *got.Rating)
	require.Equal(t, "great", got.Review)
	require.Equal(t, "Netflix", got.Platform)

	require.NoError(t, db.Catalog.UpdateContentStatus(ctx, content.ID, models.StatusCompleted))
	got, err = db.Catalog.GetContent(ctx, content.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, db.Catalog.DeleteContent(ctx, content.ID))
	got, err = db.Catalog.GetContent(ctx, content.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindContentByOwnerTMDB(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Catalog.CreateContent(ctx, newTestContent("alice", "603", models.KindMovie)))

	// Manual entries have no tmdb id and must never collide on lookup.
	manual := newTestContent("alice", "", models.KindMovie)
	manual.Title = "Manual Entry"
	require.NoError(t, db.Catalog.CreateContent(ctx, manual))

	found, err := db.Catalog.FindContentByOwnerTMDB(ctx, "alice", "603")
	require.NoError(t, err)
	require.NotNil(t, found)

	// Same tmdb id, different owner: independent rows.
	notFound, err := db.Catalog.FindContentByOwnerTMDB(ctx, "bob", "603")
	require.NoError(t, err)
	require.Nil(t, notFound)

	blank, err := db.Catalog.FindContentByOwnerTMDB(ctx, "alice", "")
	require.NoError(t, err)
	require.Nil(t, blank, "empty tmdb id must never match")
}

func TestListContentsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := newTestContent("alice", "1", models.KindMovie)
	second := newTestContent("alice", "2", models.KindMovie)
	other := newTestContent("bob", "3", models.KindMovie)
	require.NoError(t, db.Catalog.CreateContent(ctx, first))
	require.NoError(t, db.Catalog.CreateContent(ctx, second))
	require.NoError(t, db.Catalog.CreateContent(ctx, other))

	contents, err := db.Catalog.ListContents(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contents, 2)
	require.Equal(t, second.ID, contents[0].ID, "newest first")
	require.Equal(t, first.ID, contents[1].ID)
}

func TestGetOrCreateSeason(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	content := newTestContent("alice", "1396", models.KindTV)
	require.NoError(t, db.Catalog.CreateContent(ctx, content))

	count := 7
	season, err := db.Catalog.GetOrCreateSeason(ctx, content.ID, 1, &count)
	require.NoError(t, err)
	require.Equal(t, 1, season.SeasonNumber)
	require.NotNil(t, season.EpisodesCount)
	require.Equal(t, 7, *season.EpisodesCount)

	// Second call returns the existing row and keeps its count.
	again, err := db.Catalog.GetOrCreateSeason(ctx, content.ID, 1, nil)
	require.NoError(t, err)
	require.Equal(t, season.ID, again.ID)
	require.NotNil(t, again.EpisodesCount)

	unknown, err := db.Catalog.GetOrCreateSeason(ctx, content.ID, 2, nil)
	require.NoError(t, err)
	require.Nil(t, unknown.EpisodesCount)

	seasons, err := db.Catalog.ListSeasons(ctx, content.ID)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
}

func TestEpisodeLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	content := newTestContent("alice", "1396", models.KindTV)
	require.NoError(t, db.Catalog.CreateContent(ctx, content))
	season, err := db.Catalog.GetOrCreateSeason(ctx, content.ID, 1, nil)
	require.NoError(t, err)

	episode, created, err := db.Catalog.GetOrCreateEpisode(ctx, season.ID, 1, "Pilot")
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, episode.Watched)

	same, created, err := db.Catalog.GetOrCreateEpisode(ctx, season.ID, 1, "ignored")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, episode.ID, same.ID)
	require.Equal(t, "Pilot", same.Title, "existing title untouched")

	require.NoError(t, db.Catalog.SetEpisodeWatched(ctx, episode.ID, true))
	watched, err := db.Catalog.CountWatchedEpisodes(ctx, content.ID)
	require.NoError(t, err)
	require.Equal(t, 1, watched)

	_, _, err = db.Catalog.GetOrCreateEpisode(ctx, season.ID, 2, "")
	require.NoError(t, err)
	total, err := db.Catalog.CountSeasonEpisodes(ctx, season.ID)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	require.NoError(t, db.Catalog.MarkSeasonEpisodesWatched(ctx, season.ID))
	watched, err = db.Catalog.CountWatchedEpisodes(ctx, content.ID)
	require.NoError(t, err)
	require.Equal(t, 2, watched)
}

func TestDeleteContentCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	content := newTestContent("alice", "1396", models.KindTV)
	require.NoError(t, db.Catalog.CreateContent(ctx, content))
	season, err := db.Catalog.GetOrCreateSeason(ctx, content.ID, 1, nil)
	require.NoError(t, err)
	_, _, err = db.Catalog.GetOrCreateEpisode(ctx, season.ID, 1, "")
	require.NoError(t, err)

	require.NoError(t, db.Catalog.DeleteContent(ctx, content.ID))

	seasons, err := db.Catalog.ListSeasons(ctx, content.ID)
	require.NoError(t, err)
	require.Empty(t, seasons)
	episodes, err := db.Catalog.ListEpisodes(ctx, season.ID)
	require.NoError(t, err)
	require.Empty(t, episodes)
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Catalog.WithTx(ctx, func(tx catalog.Store) error {
		if err := tx.CreateContent(ctx, newTestContent("alice", "603", models.KindMovie)); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	contents, err := db.Catalog.ListContents(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, contents, "rolled-back insert must not persist")
}

func TestWithTxCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Catalog.WithTx(ctx, func(tx catalog.Store) error {
		return tx.CreateContent(ctx, newTestContent("alice", "603", models.KindMovie))
	})
	require.NoError(t, err)

	contents, err := db.Catalog.ListContents(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contents, 1)
}
