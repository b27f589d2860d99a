package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/enhance"
	"github.com/dailylance/crowdscrape/internal/materialize"
	"github.com/dailylance/crowdscrape/internal/platform"
	"github.com/dailylance/crowdscrape/internal/relevance"
	"github.com/dailylance/crowdscrape/internal/render"
	"github.com/dailylance/crowdscrape/internal/search"
	"github.com/dailylance/crowdscrape/internal/store"
	"github.com/dailylance/crowdscrape/internal/taxonomy"
	"github.com/dailylance/crowdscrape/pkg/ocrsvc"
)

// appEnv bundles the wired subsystems shared by the commands.
type appEnv struct {
	store        store.Store
	registry     *platform.Registry
	pipeline     *enhance.Pipeline
	service      *search.Service
	materializer *materialize.Materializer
	writer       *materialize.Writer
}

func (e *appEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

// initStore opens the configured database backend and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// initApp wires the renderer, filter, adapters, OCR pipeline, materializer
// and store into a search service. withStore controls whether persistence is
// attempted at all.
func initApp(ctx context.Context, withStore bool) (*appEnv, error) {
	tables, err := taxonomy.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load taxonomy")
	}
	filter := relevance.New(tables)

	renderer := render.NewStatic(render.StaticConfig{
		RequestsPerSecond: cfg.Render.RequestsPerSecond,
		Timeout:           time.Duration(cfg.Render.TimeoutSecs) * time.Second,
	})

	registry := platform.NewRegistry(renderer, filter, platform.Config{
		BatchSize:   cfg.Scrape.BatchSize,
		BatchDelay:  time.Duration(cfg.Scrape.BatchDelaySecs) * time.Second,
		MaxDetails:  cfg.Scrape.MaxDetails,
		FallbackCap: cfg.Scrape.FallbackCap,
	})

	ocrClient := ocrsvc.NewClient(cfg.OCR.BaseURL)
	pipeline := enhance.New(ocrClient, renderer, enhance.Config{
		Force:          cfg.OCR.Force,
		MaxImages:      cfg.OCR.MaxImages,
		PacingInterval: time.Duration(cfg.OCR.PacingIntervalSecs) * time.Second,
	})

	env := &appEnv{
		registry:     registry,
		pipeline:     pipeline,
		materializer: materialize.New(tables),
		writer:       materialize.NewWriter(cfg.Results.Dir),
	}

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			// Persistence is best-effort; the search service falls back to
			// temp search ids when no store is available.
			zap.L().Warn("store unavailable, continuing without persistence", zap.Error(err))
		} else {
			env.store = st
		}
	}

	env.service = search.New(registry, pipeline, env.materializer, env.writer, env.store)
	return env, nil
}
