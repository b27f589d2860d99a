package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dailylance/crowdscrape/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	platform     TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	keyword      TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT 'en',
	enable_ocr   INTEGER NOT NULL DEFAULT 0,
	result_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'running',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scraped_items (
	id               TEXT PRIMARY KEY,
	search_id        TEXT NOT NULL REFERENCES searches(id),
	user_id          TEXT NOT NULL REFERENCES users(id),
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	platform         TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	keyword          TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL,
	image_url        TEXT NOT NULL DEFAULT '',
	raised           TEXT NOT NULL DEFAULT '',
	goal             TEXT NOT NULL DEFAULT '',
	backers          TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT '',
	owner_name       TEXT NOT NULL DEFAULT '',
	owner_country    TEXT NOT NULL DEFAULT '',
	start_date       TEXT NOT NULL DEFAULT '',
	end_date         TEXT NOT NULL DEFAULT '',
	achievement_rate TEXT NOT NULL DEFAULT '',
	is_relevant      INTEGER NOT NULL DEFAULT 1,
	ocr_enhanced     INTEGER NOT NULL DEFAULT 0,
	ocr_error        TEXT NOT NULL DEFAULT '',
	original_data    TEXT NOT NULL DEFAULT '{}',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS saved_items (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL REFERENCES users(id),
	scraped_item_id TEXT NOT NULL REFERENCES scraped_items(id),
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(user_id, scraped_item_id)
);

CREATE INDEX IF NOT EXISTS idx_searches_user_id ON searches(user_id);
CREATE INDEX IF NOT EXISTS idx_searches_platform ON searches(platform);
CREATE INDEX IF NOT EXISTS idx_scraped_items_search_id ON scraped_items(search_id);
CREATE INDEX IF NOT EXISTS idx_scraped_items_user_id ON scraped_items(user_id);
CREATE INDEX IF NOT EXISTS idx_saved_items_user_id ON saved_items(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, email, name string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		id, email, name, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert user")
	}
	return &model.User{ID: id, Email: email, Name: name, CreatedAt: now}, nil
}

func (s *SQLiteStore) FindUserByID(ctx context.Context, userID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`,
		userID,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: user %s", userID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find user")
	}
	return &u, nil
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, search model.Search) (*model.Search, error) {
	search.ID = uuid.New().String()
	search.Status = model.SearchStatusRunning
	now := time.Now().UTC()
	search.CreatedAt = now
	search.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		search.ID, search.UserID, search.Platform, search.Category, search.Keyword,
		search.Language, search.EnableOCR, 0, string(search.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}
	return &search, nil
}

func (s *SQLiteStore) CompleteSearch(ctx context.Context, searchID string, resultCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE searches SET status = ?, result_count = ?, updated_at = ? WHERE id = ?`,
		string(model.SearchStatusCompleted), resultCount, time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete search %s", searchID)
	}
	return checkRowsAffected(res, "search", searchID)
}

func (s *SQLiteStore) GetSearch(ctx context.Context, searchID string) (*model.Search, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at
		 FROM searches WHERE id = ?`,
		searchID,
	)
	search, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: search %s", searchID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get search")
	}
	return search, nil
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := `SELECT id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at
	 FROM searches WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Platform != "" {
		query += ` AND platform = ?`
		args = append(args, filter.Platform)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		searches = append(searches, *search)
	}
	return searches, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

func (s *SQLiteStore) StoreScrapedItems(ctx context.Context, items []model.ScrapedItem) ([]model.ScrapedItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stored := make([]model.ScrapedItem, 0, len(items))
	for _, item := range items {
		item.ID = uuid.New().String()
		item.CreatedAt = now

		_, err := tx.ExecContext(ctx,
			`INSERT INTO scraped_items (id, search_id, user_id, title, description, platform, category, keyword, url, image_url,
			 raised, goal, backers, status, owner_name, owner_country, start_date, end_date, achievement_rate,
			 is_relevant, ocr_enhanced, ocr_error, original_data, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.SearchID, item.UserID, item.Title, item.Description, item.Platform, item.Category,
			item.Keyword, item.URL, item.ImageURL, item.Raised, item.Goal, item.Backers, item.Status,
			item.OwnerName, item.OwnerCountry, item.StartDate, item.EndDate, item.AchievementRate,
			item.IsRelevant, item.OCREnhanced, item.OCRError, string(item.OriginalData), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert scraped item %s", item.URL)
		}
		stored = append(stored, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit scraped items")
	}
	return stored, nil
}

func (s *SQLiteStore) ListScrapedItems(ctx context.Context, searchID string) ([]model.ScrapedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_id, user_id, title, description, platform, category, keyword, url, image_url,
		 raised, goal, backers, status, owner_name, owner_country, start_date, end_date, achievement_rate,
		 is_relevant, ocr_enhanced, ocr_error, original_data, created_at
		 FROM scraped_items WHERE search_id = ? ORDER BY created_at ASC, id ASC`,
		searchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scraped items")
	}
	defer rows.Close()

	var items []model.ScrapedItem
	for rows.Next() {
		item, err := scanScrapedItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scraped item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list scraped items iterate")
}

func (s *SQLiteStore) SaveItem(ctx context.Context, userID, scrapedItemID string) (*model.SavedItem, error) {
	// The unique index makes a second save of the same item a no-op; return
	// the existing bookmark in that case.
	existing, err := s.findSavedItem(ctx, userID, scrapedItemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_items (id, user_id, scraped_item_id, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, scrapedItemID, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert saved item")
	}
	return &model.SavedItem{ID: id, UserID: userID, ScrapedItemID: scrapedItemID, CreatedAt: now}, nil
}

func (s *SQLiteStore) findSavedItem(ctx context.Context, userID, scrapedItemID string) (*model.SavedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, scraped_item_id, created_at FROM saved_items WHERE user_id = ? AND scraped_item_id = ?`,
		userID, scrapedItemID,
	)

	var si model.SavedItem
	err := row.Scan(&si.ID, &si.UserID, &si.ScrapedItemID, &si.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find saved item")
	}
	return &si, nil
}

func (s *SQLiteStore) ListSavedItems(ctx context.Context, userID string) ([]model.SavedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, scraped_item_id, created_at FROM saved_items WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list saved items")
	}
	defer rows.Close()

	var saved []model.SavedItem
	for rows.Next() {
		var si model.SavedItem
		if err := rows.Scan(&si.ID, &si.UserID, &si.ScrapedItemID, &si.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan saved item")
		}
		saved = append(saved, si)
	}
	return saved, eris.Wrap(rows.Err(), "sqlite: list saved items iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSearch(row scannable) (*model.Search, error) {
	var search model.Search
	var status string
	err := row.Scan(
		&search.ID, &search.UserID, &search.Platform, &search.Category, &search.Keyword,
		&search.Language, &search.EnableOCR, &search.ResultCount, &status,
		&search.CreatedAt, &search.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	search.Status = model.SearchStatus(status)
	return &search, nil
}

func scanScrapedItem(row scannable) (*model.ScrapedItem, error) {
	var item model.ScrapedItem
	var original string
	err := row.Scan(
		&item.ID, &item.SearchID, &item.UserID, &item.Title, &item.Description, &item.Platform,
		&item.Category, &item.Keyword, &item.URL, &item.ImageURL, &item.Raised, &item.Goal,
		&item.Backers, &item.Status, &item.OwnerName, &item.OwnerCountry, &item.StartDate,
		&item.EndDate, &item.AchievementRate, &item.IsRelevant, &item.OCREnhanced, &item.OCRError,
		&original, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.OriginalData = []byte(original)
	return &item, nil
}
