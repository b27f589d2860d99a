// Package store persists users, searches and scraped campaign items.
// Two implementations exist: SQLite for single-machine deployments and
// Postgres for shared ones. Persistence is best-effort from the search
// service's point of view; callers decide how to degrade when it fails.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/model"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = eris.New("store: not found")

// SearchFilter specifies criteria for listing searches.
type SearchFilter struct {
	UserID   string `json:"user_id,omitempty"`
	Platform string `json:"platform,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for search history and results.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, name string) (*model.User, error)
	FindUserByID(ctx context.Context, userID string) (*model.User, error)

	// Searches
	CreateSearch(ctx context.Context, search model.Search) (*model.Search, error)
	CompleteSearch(ctx context.Context, searchID string, resultCount int) error
	GetSearch(ctx context.Context, searchID string) (*model.Search, error)
	ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error)

	// Scraped items
	StoreScrapedItems(ctx context.Context, items []model.ScrapedItem) ([]model.ScrapedItem, error)
	ListScrapedItems(ctx context.Context, searchID string) ([]model.ScrapedItem, error)

	// Saved items
	SaveItem(ctx context.Context, userID, scrapedItemID string) (*model.SavedItem, error)
	ListSavedItems(ctx context.Context, userID string) ([]model.SavedItem, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
