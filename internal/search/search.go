// Package search orchestrates a full query: adapter scrape, optional OCR
// enhancement, bilingual materialization and best-effort persistence.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/materialize"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/platform"
	"github.com/dailylance/crowdscrape/internal/store"
)

// ErrInvalidRequest marks validation failures the caller can fix. The HTTP
// layer maps these to 400 responses.
var ErrInvalidRequest = eris.New("search: invalid request")

// IsClientError reports whether the error is the caller's fault.
func IsClientError(err error) bool {
	return eris.Is(err, ErrInvalidRequest) || eris.Is(err, platform.ErrUnsupportedPlatform)
}

// Request is one search query.
type Request struct {
	Platform   string `json:"platform"`
	Category   string `json:"category"`
	Keyword    string `json:"keyword"`
	Language   string `json:"language"`
	EnableOCR  bool   `json:"enableOCR"`
	UserID     string `json:"userId"`
	MaxResults int    `json:"maxResults"`
}

// Response is the search result envelope.
type Response struct {
	Success     bool                `json:"success"`
	Platform    string              `json:"platform"`
	Category    string              `json:"category,omitempty"`
	Keyword     string              `json:"keyword,omitempty"`
	Count       int                 `json:"count"`
	Results     *materialize.Output `json:"results,omitempty"`
	SearchID    string              `json:"searchId,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	Message     string              `json:"message,omitempty"`
}

// Registry resolves platform adapters.
type Registry interface {
	Get(id string) (platform.Adapter, error)
}

// Enhancer runs OCR enhancement over scraped records.
type Enhancer interface {
	ProcessBatch(ctx context.Context, recs []model.CampaignRecord) []model.EnhancedRecord
}

// Service wires the scrape, enhancement, materialization and persistence
// stages together.
type Service struct {
	registry     Registry
	enhancer     Enhancer
	materializer *materialize.Materializer
	writer       *materialize.Writer
	store        store.Store
}

// New creates a Service. The writer and store are optional: nil disables
// file output and persistence respectively.
func New(registry Registry, enhancer Enhancer, m *materialize.Materializer, w *materialize.Writer, st store.Store) *Service {
	return &Service{
		registry:     registry,
		enhancer:     enhancer,
		materializer: m,
		writer:       w,
		store:        st,
	}
}

// Run executes a search end to end. Scrape failures are fatal; file output
// and persistence failures degrade the response instead of failing it.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if err := s.validate(ctx, &req); err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(req.Platform)
	if err != nil {
		return nil, eris.Wrapf(err, "search: platform %s", req.Platform)
	}

	log := zap.L().With(
		zap.String("platform", req.Platform),
		zap.String("category", req.Category),
		zap.String("keyword", req.Keyword),
	)
	log.Info("search started", zap.Bool("ocr", req.EnableOCR))

	records, err := adapter.Scrape(ctx, req.Category, req.Keyword, platform.Options{
		Language:   req.Language,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: scrape")
	}

	enhanced := s.enhanceRecords(ctx, req, records)
	out := s.materializer.Materialize(enhanced, req.Platform, req.Category, req.Keyword)

	if s.writer != nil && len(enhanced) > 0 {
		if _, _, err := s.writer.Write(out); err != nil {
			log.Warn("result files not written", zap.Error(err))
		}
	}

	searchID := s.persist(ctx, req, enhanced, log)

	resp := &Response{
		Success:     true,
		Platform:    req.Platform,
		Category:    req.Category,
		Keyword:     req.Keyword,
		Count:       out.Stats.Total,
		Results:     out,
		SearchID:    searchID,
		GeneratedAt: out.GeneratedAt,
	}
	if out.Stats.Total == 0 {
		resp.Message = "no campaigns found"
	}
	log.Info("search finished",
		zap.Int("count", out.Stats.Total),
		zap.Int("enhanced", out.Stats.EnhancedCount),
		zap.String("search_id", searchID),
	)
	return resp, nil
}

func (s *Service) validate(ctx context.Context, req *Request) error {
	req.Platform = strings.TrimSpace(strings.ToLower(req.Platform))
	req.Category = strings.TrimSpace(req.Category)
	req.Keyword = strings.TrimSpace(req.Keyword)

	if req.Platform == "" {
		return eris.Wrap(ErrInvalidRequest, "platform is required")
	}
	if req.Category == "" && req.Keyword == "" {
		return eris.Wrap(ErrInvalidRequest, "category or keyword is required")
	}
	if req.UserID != "" && s.store != nil {
		if _, err := s.store.FindUserByID(ctx, req.UserID); err != nil {
			if eris.Is(err, store.ErrNotFound) {
				return eris.Wrapf(ErrInvalidRequest, "unknown user %s", req.UserID)
			}
			// Persistence being down must not block the search; the later
			// persist step degrades to a temp id anyway.
			zap.L().Warn("user lookup failed", zap.Error(err))
		}
	}
	return nil
}

// enhanceRecords runs the OCR pipeline when requested, otherwise wraps every
// record untouched so downstream stages see one shape.
func (s *Service) enhanceRecords(ctx context.Context, req Request, records []model.CampaignRecord) []model.EnhancedRecord {
	if req.EnableOCR && s.enhancer != nil {
		return s.enhancer.ProcessBatch(ctx, records)
	}
	enhanced := make([]model.EnhancedRecord, len(records))
	for i, rec := range records {
		enhanced[i] = model.EnhancedRecord{Record: rec}
	}
	return enhanced
}

// persist records the search and its items. Every failure downgrades to a
// temp search id; results are never lost to a database outage.
func (s *Service) persist(ctx context.Context, req Request, enhanced []model.EnhancedRecord, log *zap.Logger) string {
	tempID := "temp-search-" + uuid.New().String()
	if s.store == nil || req.UserID == "" {
		return tempID
	}

	search, err := s.store.CreateSearch(ctx, model.Search{
		UserID:    req.UserID,
		Platform:  req.Platform,
		Category:  req.Category,
		Keyword:   req.Keyword,
		Language:  req.Language,
		EnableOCR: req.EnableOCR,
	})
	if err != nil {
		log.Warn("search not persisted", zap.Error(err))
		return tempID
	}

	items := make([]model.ScrapedItem, 0, len(enhanced))
	for _, rec := range enhanced {
		items = append(items, model.NewScrapedItem(req.UserID, search.ID, req.Category, req.Keyword, rec))
	}
	if _, err := s.store.StoreScrapedItems(ctx, items); err != nil {
		log.Warn("scraped items not persisted", zap.Error(err), zap.String("search_id", search.ID))
		return tempID
	}
	if err := s.store.CompleteSearch(ctx, search.ID, len(items)); err != nil {
		log.Warn("search not completed", zap.Error(err), zap.String("search_id", search.ID))
	}
	return search.ID
}
