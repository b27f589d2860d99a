package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailylance/crowdscrape/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedUser(t *testing.T, s *SQLiteStore) *model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "dev@example.com", "Dev")
	require.NoError(t, err)
	return u
}

func seedSearch(t *testing.T, s *SQLiteStore, userID string) *model.Search {
	t.Helper()
	search, err := s.CreateSearch(context.Background(), model.Search{
		UserID:    userID,
		Platform:  "kickstarter",
		Keyword:   "smart speaker",
		Language:  "en",
		EnableOCR: true,
	})
	require.NoError(t, err)
	return search
}

func TestSQLiteUserRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)
	assert.NotEmpty(t, u.ID)

	found, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, found.Email)
	assert.Equal(t, u.Name, found.Name)

	_, err = s.FindUserByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteSearchLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)
	search := seedSearch(t, s, u.ID)
	assert.Equal(t, model.SearchStatusRunning, search.Status)

	require.NoError(t, s.CompleteSearch(ctx, search.ID, 17))

	got, err := s.GetSearch(ctx, search.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SearchStatusCompleted, got.Status)
	assert.Equal(t, 17, got.ResultCount)
	assert.Equal(t, "smart speaker", got.Keyword)
	assert.True(t, got.EnableOCR)

	err = s.CompleteSearch(ctx, "missing", 0)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteListSearchesFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)
	seedSearch(t, s, u.ID)
	_, err := s.CreateSearch(ctx, model.Search{UserID: u.ID, Platform: "makuake", Keyword: "speaker"})
	require.NoError(t, err)

	all, err := s.ListSearches(ctx, SearchFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	makuake, err := s.ListSearches(ctx, SearchFilter{UserID: u.ID, Platform: "makuake"})
	require.NoError(t, err)
	require.Len(t, makuake, 1)
	assert.Equal(t, "makuake", makuake[0].Platform)

	limited, err := s.ListSearches(ctx, SearchFilter{UserID: u.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteScrapedItemsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)
	search := seedSearch(t, s, u.ID)

	rec := model.EnhancedRecord{
		Record: model.CampaignRecord{
			URL:        "https://www.kickstarter.com/projects/maker/speaker",
			Title:      "Smart Speaker",
			Platform:   "kickstarter",
			Supporters: 523,
			Raised:     model.ParseMoney("$12,345", "$"),
		},
		OCREnhanced: true,
	}
	items := []model.ScrapedItem{
		model.NewScrapedItem(u.ID, search.ID, "", "smart speaker", rec),
	}

	stored, err := s.StoreScrapedItems(ctx, items)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID)

	listed, err := s.ListScrapedItems(ctx, search.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Smart Speaker", listed[0].Title)
	assert.Equal(t, "$12,345", listed[0].Raised)
	assert.Equal(t, "523", listed[0].Backers)
	assert.True(t, listed[0].OCREnhanced)

	var original map[string]any
	require.NoError(t, json.Unmarshal(listed[0].OriginalData, &original))
	assert.Equal(t, "Smart Speaker", original["title"])
}

func TestSQLiteSaveItemIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)
	search := seedSearch(t, s, u.ID)
	stored, err := s.StoreScrapedItems(ctx, []model.ScrapedItem{
		model.NewScrapedItem(u.ID, search.ID, "", "speaker", model.EnhancedRecord{
			Record: model.CampaignRecord{URL: "https://x.test/1", Title: "X", Platform: "kickstarter"},
		}),
	})
	require.NoError(t, err)

	first, err := s.SaveItem(ctx, u.ID, stored[0].ID)
	require.NoError(t, err)

	second, err := s.SaveItem(ctx, u.ID, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	saved, err := s.ListSavedItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}
