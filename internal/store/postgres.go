package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_search":   `INSERT INTO searches (id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"complete_search": `UPDATE searches SET status = $1, result_count = $2, updated_at = $3 WHERE id = $4`,
	"get_search":      `SELECT id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at FROM searches WHERE id = $1`,
	"find_user":       `SELECT id, email, name, created_at FROM users WHERE id = $1`,
	"list_saved":      `SELECT id, user_id, scraped_item_id, created_at FROM saved_items WHERE user_id = $1 ORDER BY created_at DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL REFERENCES users(id),
	platform     TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT '',
	keyword      TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT 'en',
	enable_ocr   BOOLEAN NOT NULL DEFAULT false,
	result_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'running',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scraped_items (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	is_relevant      BOOLEAN NOT NULL DEFAULT true,
	ocr_enhanced     BOOLEAN NOT NULL DEFAULT false,
	ocr_error        TEXT NOT NULL DEFAULT '',
	original_data    JSONB NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS saved_items (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id         TEXT NOT NULL REFERENCES users(id),
	scraped_item_id TEXT NOT NULL REFERENCES scraped_items(id),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(user_id, scraped_item_id)
);

CREATE INDEX IF NOT EXISTS idx_searches_user_id ON searches(user_id);
CREATE INDEX IF NOT EXISTS idx_searches_platform ON searches(platform);
CREATE INDEX IF NOT EXISTS idx_scraped_items_search_id ON scraped_items(search_id);
CREATE INDEX IF NOT EXISTS idx_scraped_items_user_id ON scraped_items(user_id);
CREATE INDEX IF NOT EXISTS idx_saved_items_user_id ON saved_items(user_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, name string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)`,
		id, email, name, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert user")
	}
	return &model.User{ID: id, Email: email, Name: name, CreatedAt: now}, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: user %s", userID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find user")
	}
	return &u, nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, search model.Search) (*model.Search, error) {
	search.ID = uuid.New().String()
	search.Status = model.SearchStatusRunning
	now := time.Now().UTC()
	search.CreatedAt = now
	search.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		search.ID, search.UserID, search.Platform, search.Category, search.Keyword,
		search.Language, search.EnableOCR, 0, string(search.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}
	return &search, nil
}

func (s *PostgresStore) CompleteSearch(ctx context.Context, searchID string, resultCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE searches SET status = $1, result_count = $2, updated_at = $3 WHERE id = $4`,
		string(model.SearchStatusCompleted), resultCount, time.Now().UTC(), searchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete search %s", searchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "search %s", searchID)
	}
	return nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, searchID string) (*model.Search, error) {
	var search model.Search
	var status string
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at
		 FROM searches WHERE id = $1`,
		searchID,
	).Scan(
		&search.ID, &search.UserID, &search.Platform, &search.Category, &search.Keyword,
		&search.Language, &search.EnableOCR, &search.ResultCount, &status,
		&search.CreatedAt, &search.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: search %s", searchID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get search")
	}
	search.Status = model.SearchStatus(status)
	return &search, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.Search, error) {
	query := `SELECT id, user_id, platform, category, keyword, language, enable_ocr, result_count, status, created_at, updated_at
	 FROM searches WHERE true`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Platform != "" {
		query += fmt.Sprintf(` AND platform = $%d`, argIdx)
		args = append(args, filter.Platform)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		var search model.Search
		var status string
		if err := rows.Scan(
			&search.ID, &search.UserID, &search.Platform, &search.Category, &search.Keyword,
			&search.Language, &search.EnableOCR, &search.ResultCount, &status,
			&search.CreatedAt, &search.UpdatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		search.Status = model.SearchStatus(status)
		searches = append(searches, search)
	}
	return searches, eris.Wrap(rows.Err(), "postgres: list searches iterate")
}

func (s *PostgresStore) StoreScrapedItems(ctx context.Context, items []model.ScrapedItem) ([]model.ScrapedItem, error) {
	now := time.Now().UTC()
	stored := make([]model.ScrapedItem, 0, len(items))
	for _, item := range items {
		item.ID = uuid.New().String()
		item.CreatedAt = now

		_, err := s.pool.Exec(ctx,
			`INSERT INTO scraped_items (id, search_id, user_id, title, description, platform, category, keyword, url, image_url,
			 raised, goal, backers, status, owner_name, owner_country, start_date, end_date, achievement_rate,
			 is_relevant, ocr_enhanced, ocr_error, original_data, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
			item.ID, item.SearchID, item.UserID, item.Title, item.Description, item.Platform, item.Category,
			item.Keyword, item.URL, item.ImageURL, item.Raised, item.Goal, item.Backers, item.Status,
			item.OwnerName, item.OwnerCountry, item.StartDate, item.EndDate, item.AchievementRate,
			item.IsRelevant, item.OCREnhanced, item.OCRError, []byte(item.OriginalData), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert scraped item %s", item.URL)
		}
		stored = append(stored, item)
	}
	return stored, nil
}

func (s *PostgresStore) ListScrapedItems(ctx context.Context, searchID string) ([]model.ScrapedItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, search_id, user_id, title, description, platform, category, keyword, url, image_url,
		 raised, goal, backers, status, owner_name, owner_country, start_date, end_date, achievement_rate,
		 is_relevant, ocr_enhanced, ocr_error, original_data, created_at
		 FROM scraped_items WHERE search_id = $1 ORDER BY created_at ASC, id ASC`,
		searchID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scraped items")
	}
	defer rows.Close()

	var items []model.ScrapedItem
	for rows.Next() {
		var item model.ScrapedItem
		var original []byte
		if err := rows.Scan(
			&item.ID, &item.SearchID, &item.UserID, &item.Title, &item.Description, &item.Platform,
			&item.Category, &item.Keyword, &item.URL, &item.ImageURL, &item.Raised, &item.Goal,
			&item.Backers, &item.Status, &item.OwnerName, &item.OwnerCountry, &item.StartDate,
			&item.EndDate, &item.AchievementRate, &item.IsRelevant, &item.OCREnhanced, &item.OCRError,
			&original, &item.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scraped item")
		}
		item.OriginalData = original
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list scraped items iterate")
}

func (s *PostgresStore) SaveItem(ctx context.Context, userID, scrapedItemID string) (*model.SavedItem, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	// ON CONFLICT keeps a repeated save idempotent and returns the original
	// bookmark row.
	var si model.SavedItem
	err := s.pool.QueryRow(ctx,
		`INSERT INTO saved_items (id, user_id, scraped_item_id, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, scraped_item_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, user_id, scraped_item_id, created_at`,
		id, userID, scrapedItemID, now,
	).Scan(&si.ID, &si.UserID, &si.ScrapedItemID, &si.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save item")
	}
	return &si, nil
}

func (s *PostgresStore) ListSavedItems(ctx context.Context, userID string) ([]model.SavedItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, scraped_item_id, created_at FROM saved_items WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list saved items")
	}
	defer rows.Close()

	var saved []model.SavedItem
	for rows.Next() {
		var si model.SavedItem
		if err := rows.Scan(&si.ID, &si.UserID, &si.ScrapedItemID, &si.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan saved item")
		}
		saved = append(saved, si)
	}
	return saved, eris.Wrap(rows.Err(), "postgres: list saved items iterate")
}
