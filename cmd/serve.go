package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/search"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})

	r.Get("/platforms", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"platforms": env.registry.Platforms(),
		})
	})

	r.Get("/platforms/{platform}/categories", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "platform")
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"platform":   id,
			"categories": env.registry.Categories(id),
		})
	})

	r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
		var sr search.Request
		if err := json.NewDecoder(req.Body).Decode(&sr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := env.service.Run(req.Context(), sr)
		if err != nil {
			status := http.StatusInternalServerError
			if search.IsClientError(err) {
				status = http.StatusBadRequest
			}
			zap.L().Error("search failed", zap.Error(err))
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/enhance-existing", func(w http.ResponseWriter, req *http.Request) {
		handleEnhanceExisting(env, w, req)
	})

	r.Get("/ocr-status", func(w http.ResponseWriter, req *http.Request) {
		available := env.pipeline.Healthy(req.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"available": available,
			"breaker":   env.pipeline.BreakerState().String(),
		})
	})

	return r
}

// enhanceExistingRequest re-runs OCR enhancement over previously produced
// results: either inline display documents or a results file on disk.
type enhanceExistingRequest struct {
	Platform string           `json:"platform"`
	Category string           `json:"category"`
	Keyword  string           `json:"keyword"`
	File     string           `json:"file"`
	Results  []map[string]any `json:"results"`
}

func handleEnhanceExisting(env *appEnv, w http.ResponseWriter, req *http.Request) {
	var er enhanceExistingRequest
	if err := json.NewDecoder(req.Body).Decode(&er); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docs := er.Results
	if len(docs) == 0 && er.File != "" {
		loaded, err := loadResultsFile(er.File)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		docs = loaded
	}
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "results or file is required")
		return
	}

	records := make([]model.CampaignRecord, 0, len(docs))
	for _, doc := range docs {
		rec := model.RecordFromDisplay(doc)
		if rec.Platform == "" {
			rec.Platform = er.Platform
		}
		records = append(records, rec)
	}

	start := time.Now()
	enhanced := env.pipeline.ProcessBatch(req.Context(), records)

	out := env.materializer.Materialize(enhanced, er.Platform, er.Category, er.Keyword)
	zap.L().Info("re-enhancement finished",
		zap.Int("count", len(enhanced)),
		zap.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   out.Stats.Total,
		"results": out,
	})
}

// loadResultsFile reads the results array from a previously written result
// document. The path is confined to the configured results directory.
func loadResultsFile(name string) ([]map[string]any, error) {
	path := filepath.Join(cfg.Results.Dir, filepath.Clean("/"+name))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read results file %s", name)
	}
	var doc struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "parse results file %s", name)
	}
	return doc.Results, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
