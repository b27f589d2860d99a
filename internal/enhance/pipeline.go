// Package enhance runs campaign records through the OCR enhancement
// pipeline: decide whether a record is missing data, gather candidate
// imagery from its page, and ask the OCR service to recover the gaps.
// Enhancement is strictly best-effort — a record is annotated, never
// dropped, whatever fails along the way.
package enhance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
	"github.com/dailylance/crowdscrape/internal/resilience"
	"github.com/dailylance/crowdscrape/pkg/ocrsvc"
)

// defaultRequiredFields are the display fields that must carry data for a
// record to skip enhancement.
var defaultRequiredFields = []string{
	"project_owner",
	"owner_website",
	"owner_sns",
	"contact_info",
	"achievement_rate",
	"supporters",
	"amount",
	"support_amount",
	"crowdfund_start_date",
	"crowdfund_end_date",
	"title",
}

// uiImageMarkers identify chrome imagery (avatars, spinners) that carries no
// campaign text worth OCRing.
var uiImageMarkers = []string{"avatar", "icon", "logo", "placeholder", "spinner", "loading"}

// Config tunes the pipeline.
type Config struct {
	// Force enhances every record regardless of completeness.
	Force bool
	// RequiredFields overrides the default completeness field list.
	RequiredFields []string
	// PacingInterval spaces consecutive OCR calls. Default: 1s.
	PacingInterval time.Duration
	// MaxImages caps how many images are sent per record. Default: 8.
	MaxImages int
	// NavigateTimeout bounds the image-gathering page load. Default: 15s.
	NavigateTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.RequiredFields) == 0 {
		c.RequiredFields = defaultRequiredFields
	}
	if c.PacingInterval <= 0 {
		c.PacingInterval = time.Second
	}
	if c.MaxImages <= 0 {
		c.MaxImages = 8
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 15 * time.Second
	}
	return c
}

// Pipeline coordinates OCR enhancement for scraped records.
type Pipeline struct {
	client   ocrsvc.Client
	renderer render.Renderer
	breaker  *resilience.Breaker
	limiter  *rate.Limiter
	cfg      Config
}

// New creates a Pipeline.
func New(client ocrsvc.Client, renderer render.Renderer, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		client:   client,
		renderer: renderer,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     time.Minute,
			OnStateChange: func(from, to resilience.BreakerState) {
				zap.L().Warn("ocr breaker state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
		limiter: rate.NewLimiter(rate.Every(cfg.PacingInterval), 1),
		cfg:     cfg,
	}
}

// BreakerState exposes the circuit state for status endpoints.
func (p *Pipeline) BreakerState() resilience.BreakerState {
	return p.breaker.State()
}

// Healthy reports whether the OCR service is reachable right now.
func (p *Pipeline) Healthy(ctx context.Context) bool {
	return p.client.Health(ctx) == nil
}

// MissingFields lists required display fields that are empty or hold a
// placeholder value.
func (p *Pipeline) MissingFields(rec *model.CampaignRecord) []string {
	display := rec.Display()
	var missing []string
	for _, field := range p.cfg.RequiredFields {
		v, _ := display[field].(string)
		v = strings.TrimSpace(v)
		if v == "" || v == "Unknown" || v == "-" || v == "N/A" {
			missing = append(missing, field)
		}
	}
	return missing
}

// NeedsEnhancement reports whether the record is worth sending to OCR.
func (p *Pipeline) NeedsEnhancement(rec *model.CampaignRecord) bool {
	if p.cfg.Force {
		return true
	}
	return len(p.MissingFields(rec)) > 0
}

// GatherImages opens a short-lived session on the record's page and collects
// candidate images: the record's primary image first, then content images
// from the page, skipping UI chrome and thumbnails. The session is closed on
// every path.
func (p *Pipeline) GatherImages(ctx context.Context, rec *model.CampaignRecord) ([]ocrsvc.Image, error) {
	sess, err := p.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enhance: open session")
	}
	defer sess.Close()

	seen := make(map[string]bool)
	var images []ocrsvc.Image
	add := func(url, source string, width, height int) {
		if url == "" || seen[url] || len(images) >= p.cfg.MaxImages {
			return
		}
		seen[url] = true
		images = append(images, ocrsvc.Image{URL: url, Source: source, Width: width, Height: height})
	}

	add(rec.ImageURL, "project_data", 0, 0)

	doc, err := sess.Navigate(ctx, rec.URL, render.NavigateOptions{
		Wait:         []render.WaitStrategy{render.WaitDOMContentLoaded},
		Timeout:      p.cfg.NavigateTimeout,
		ScrollPasses: 3,
	})
	if err != nil {
		// The primary image alone may still be enough for OCR.
		zap.L().Warn("image gathering page load failed",
			zap.String("url", rec.URL),
			zap.Error(err),
		)
		return images, nil
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			src, _ = sel.Attr("data-src")
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") || !usableImageURL(src) {
			return
		}
		width := intAttr(sel, "width")
		height := intAttr(sel, "height")
		// Dimensions are only advisory; unknown sizes pass through.
		if (width > 0 && width <= 50) || (height > 0 && height <= 50) {
			return
		}
		add(absoluteURL(rec.URL, src), "page_content", width, height)
	})

	return images, nil
}

func usableImageURL(src string) bool {
	lower := strings.ToLower(src)
	for _, marker := range uiImageMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

func intAttr(sel *goquery.Selection, name string) int {
	v, ok := sel.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func absoluteURL(pageURL, src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "/") {
		if i := strings.Index(pageURL, "/"); i >= 0 {
			if j := strings.Index(pageURL[i+2:], "/"); j >= 0 {
				return pageURL[:i+2+j] + src
			}
		}
		return pageURL + src
	}
	return src
}

// enhance calls the OCR service through the circuit breaker. It never
// returns an error: failures come back as an unsuccessful envelope so the
// caller's record survives.
func (p *Pipeline) enhance(ctx context.Context, rec *model.CampaignRecord, images []ocrsvc.Image) *ocrsvc.EnhanceResponse {
	resp, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*ocrsvc.EnhanceResponse, error) {
		return p.client.Enhance(ctx, ocrsvc.EnhanceRequest{
			ProjectData:   rec.Display(),
			Images:        images,
			MissingFields: p.MissingFields(rec),
		})
	})
	if err != nil {
		msg := "Enhancement failed: " + err.Error()
		if eris.Is(err, resilience.ErrBreakerOpen) {
			msg = "Service unavailable"
		}
		return &ocrsvc.EnhanceResponse{Success: false, Error: msg}
	}
	return resp
}

// ProcessProject runs one record through the pipeline. The outcome is
// exactly one of: skipped (already complete), failed with an error note, or
// enhanced with payloads and provenance.
func (p *Pipeline) ProcessProject(ctx context.Context, rec model.CampaignRecord) model.EnhancedRecord {
	out := model.EnhancedRecord{Record: rec}

	if !p.NeedsEnhancement(&rec) {
		zap.L().Debug("skipping enhancement, record complete",
			zap.String("url", rec.URL))
		return out
	}

	images, err := p.GatherImages(ctx, &rec)
	if err != nil {
		out.OCRError = "Image gathering failed: " + err.Error()
		return out
	}
	if len(images) == 0 {
		out.OCRError = "No images found"
		return out
	}

	resp := p.enhance(ctx, &rec, images)
	if !resp.Success {
		out.OCRError = resp.Error
		if out.OCRError == "" {
			out.OCRError = "Enhancement failed"
		}
		return out
	}

	out.OCREnhanced = true
	out.ConfidenceScores = resp.ConfidenceScores
	out.ImagesProcessed = resp.ImagesProcessed
	if out.ImagesProcessed == 0 {
		out.ImagesProcessed = len(images)
	}
	out.EnhancedAt = time.Now()
	out.EnglishPayload = resp.EnhancedDataEnglish
	if out.EnglishPayload == nil {
		out.EnglishPayload = resp.EnhancedData
	}
	out.OriginalPayload = resp.EnhancedDataOriginal
	return out
}

// ProcessBatch enhances records sequentially with pacing between OCR calls.
// When the service is unreachable up front, every record that needed
// enhancement is tagged unavailable without individual attempts.
func (p *Pipeline) ProcessBatch(ctx context.Context, recs []model.CampaignRecord) []model.EnhancedRecord {
	out := make([]model.EnhancedRecord, 0, len(recs))

	if !p.Healthy(ctx) {
		zap.L().Warn("ocr service unavailable, tagging batch")
		for _, rec := range recs {
			er := model.EnhancedRecord{Record: rec}
			if p.NeedsEnhancement(&rec) {
				er.OCRError = "Service unavailable"
			}
			out = append(out, er)
		}
		return out
	}

	// A passing health check outranks the open-circuit cooldown: the service
	// answered just now, so a breaker left open by an earlier batch closes.
	if p.breaker.State() != resilience.StateClosed {
		zap.L().Info("ocr service reachable again, closing breaker")
		p.breaker.Reset()
	}

	for _, rec := range recs {
		if p.NeedsEnhancement(&rec) {
			if err := p.limiter.Wait(ctx); err != nil {
				er := model.EnhancedRecord{Record: rec, OCRError: "Enhancement cancelled"}
				out = append(out, er)
				continue
			}
		}
		out = append(out, p.ProcessProject(ctx, rec))
	}
	return out
}
