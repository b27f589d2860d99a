package enhance

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
	"github.com/dailylance/crowdscrape/internal/resilience"
	"github.com/dailylance/crowdscrape/pkg/ocrsvc"
)

// mockOCR implements ocrsvc.Client with canned behavior.
type mockOCR struct {
	enhanceFn func(ctx context.Context, req ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error)
	healthErr error

	mu       sync.Mutex
	enhanced int
}

func (m *mockOCR) Enhance(ctx context.Context, req ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
	m.mu.Lock()
	m.enhanced++
	m.mu.Unlock()
	return m.enhanceFn(ctx, req)
}

func (m *mockOCR) Health(context.Context) error { return m.healthErr }

// mockRenderer serves canned pages and counts session lifecycle.
type mockRenderer struct {
	pages map[string]string

	mu     sync.Mutex
	opened int
	closed int
}

func (m *mockRenderer) NewSession(context.Context) (render.Session, error) {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &mockSession{parent: m}, nil
}

type mockSession struct {
	parent *mockRenderer
}

func (s *mockSession) Navigate(_ context.Context, url string, _ render.NavigateOptions) (*render.Document, error) {
	body, ok := s.parent.pages[url]
	if !ok {
		return nil, eris.Errorf("no page for %s", url)
	}
	return render.NewDocument(url, []byte(body), 200, http.Header{})
}

func (s *mockSession) Close() error {
	s.parent.mu.Lock()
	s.parent.closed++
	s.parent.mu.Unlock()
	return nil
}

func completeRecord() model.CampaignRecord {
	return model.CampaignRecord{
		URL:             "https://x.test/p/1",
		Title:           "Smart Speaker",
		ProjectOwner:    "Maker Inc",
		OwnerWebsite:    "https://maker.test",
		OwnerSNS:        "@maker",
		ContactInfo:     "hello@maker.test",
		AchievementRate: 120,
		Supporters:      500,
		Raised:          model.ParseMoney("$12,000", "$"),
		Goal:            model.ParseMoney("$10,000", "$"),
		StartDate:       "2024-01-01",
		EndDate:         "2024-02-01",
	}
}

func incompleteRecord() model.CampaignRecord {
	return model.CampaignRecord{
		URL:      "https://x.test/p/2",
		Title:    "Mystery Gadget",
		ImageURL: "https://cdn.test/main.jpg",
	}
}

func fastConfig() Config {
	return Config{PacingInterval: time.Millisecond}
}

func TestNeedsEnhancement(t *testing.T) {
	p := New(&mockOCR{}, &mockRenderer{}, fastConfig())

	complete := completeRecord()
	assert.False(t, p.NeedsEnhancement(&complete))

	incomplete := incompleteRecord()
	assert.True(t, p.NeedsEnhancement(&incomplete))

	placeholder := completeRecord()
	placeholder.ProjectOwner = "Unknown"
	assert.True(t, p.NeedsEnhancement(&placeholder))
}

func TestForceEnhancesCompleteRecords(t *testing.T) {
	cfg := fastConfig()
	cfg.Force = true
	p := New(&mockOCR{}, &mockRenderer{}, cfg)

	complete := completeRecord()
	assert.True(t, p.NeedsEnhancement(&complete))
}

func TestMissingFields(t *testing.T) {
	p := New(&mockOCR{}, &mockRenderer{}, fastConfig())
	rec := incompleteRecord()
	missing := p.MissingFields(&rec)
	assert.Contains(t, missing, "project_owner")
	assert.Contains(t, missing, "supporters")
	assert.NotContains(t, missing, "title")
}

func TestGatherImagesFiltersChromeAndDedups(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://x.test/p/2": `<html><body>
			<img src="https://cdn.test/main.jpg">
			<img src="https://cdn.test/detail.png" width="800" height="600">
			<img src="https://cdn.test/user-avatar.png">
			<img src="https://cdn.test/site-logo.svg">
			<img src="https://cdn.test/thumb.png" width="40" height="40">
			<img src="data:image/gif;base64,R0lGOD">
			<img data-src="/upload/lazy.jpg">
		</body></html>`,
	}}
	p := New(&mockOCR{}, renderer, fastConfig())

	rec := incompleteRecord()
	images, err := p.GatherImages(context.Background(), &rec)
	require.NoError(t, err)

	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}
	assert.Equal(t, []string{
		"https://cdn.test/main.jpg",
		"https://cdn.test/detail.png",
		"https://x.test/upload/lazy.jpg",
	}, urls)
	assert.Equal(t, "project_data", images[0].Source)

	// Session released.
	assert.Equal(t, 1, renderer.opened)
	assert.Equal(t, 1, renderer.closed)
}

func TestGatherImagesPageFailureKeepsPrimary(t *testing.T) {
	renderer := &mockRenderer{}
	p := New(&mockOCR{}, renderer, fastConfig())

	rec := incompleteRecord()
	images, err := p.GatherImages(context.Background(), &rec)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, rec.ImageURL, images[0].URL)
	assert.Equal(t, renderer.opened, renderer.closed)
}

func TestProcessProjectSkipsCompleteRecord(t *testing.T) {
	ocr := &mockOCR{}
	p := New(ocr, &mockRenderer{}, fastConfig())

	out := p.ProcessProject(context.Background(), completeRecord())
	assert.True(t, out.Skipped())
	assert.Equal(t, 0, ocr.enhanced)
}

func TestProcessProjectNoImages(t *testing.T) {
	renderer := &mockRenderer{}
	p := New(&mockOCR{}, renderer, fastConfig())

	rec := incompleteRecord()
	rec.ImageURL = ""
	out := p.ProcessProject(context.Background(), rec)
	assert.False(t, out.OCREnhanced)
	assert.Equal(t, "No images found", out.OCRError)
}

func TestProcessProjectEnhanced(t *testing.T) {
	ocr := &mockOCR{enhanceFn: func(_ context.Context, req ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
		assert.NotEmpty(t, req.MissingFields)
		return &ocrsvc.EnhanceResponse{
			Success:              true,
			EnhancedDataEnglish:  map[string]string{"project_owner": "Maker Inc"},
			EnhancedDataOriginal: map[string]string{"project_owner": "メーカー株式会社"},
			ConfidenceScores:     map[string]float64{"project_owner": 0.93},
			ImagesProcessed:      1,
		}, nil
	}}
	p := New(ocr, &mockRenderer{}, fastConfig())

	out := p.ProcessProject(context.Background(), incompleteRecord())
	assert.True(t, out.OCREnhanced)
	assert.Empty(t, out.OCRError)
	assert.Equal(t, "Maker Inc", out.EnglishPayload["project_owner"])
	assert.Equal(t, "メーカー株式会社", out.OriginalPayload["project_owner"])
	assert.Equal(t, 1, out.ImagesProcessed)
	assert.False(t, out.EnhancedAt.IsZero())
}

func TestProcessProjectFailureEnvelopeNeverDropsRecord(t *testing.T) {
	ocr := &mockOCR{enhanceFn: func(context.Context, ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
		return nil, eris.New("connection refused")
	}}
	p := New(ocr, &mockRenderer{}, fastConfig())

	rec := incompleteRecord()
	out := p.ProcessProject(context.Background(), rec)
	assert.False(t, out.OCREnhanced)
	assert.Contains(t, out.OCRError, "Enhancement failed")
	assert.Equal(t, rec.Title, out.Record.Title)
}

func TestProcessBatchHealthGate(t *testing.T) {
	ocr := &mockOCR{healthErr: eris.New("dial tcp: connection refused")}
	p := New(ocr, &mockRenderer{}, fastConfig())

	recs := []model.CampaignRecord{completeRecord(), incompleteRecord()}
	out := p.ProcessBatch(context.Background(), recs)
	require.Len(t, out, 2)

	assert.True(t, out[0].Skipped())
	assert.Equal(t, "Service unavailable", out[1].OCRError)
	assert.Equal(t, 0, ocr.enhanced)
}

func TestProcessBatchPreservesEveryRecord(t *testing.T) {
	ocr := &mockOCR{enhanceFn: func(context.Context, ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
		return &ocrsvc.EnhanceResponse{Success: false, Error: "unreadable"}, nil
	}}
	p := New(ocr, &mockRenderer{}, fastConfig())

	recs := []model.CampaignRecord{completeRecord(), incompleteRecord(), incompleteRecord()}
	out := p.ProcessBatch(context.Background(), recs)
	require.Len(t, out, len(recs))
	for i, er := range out {
		assert.Equal(t, recs[i].URL, er.Record.URL)
	}
}

func TestBreakerOpensAndTagsServiceUnavailable(t *testing.T) {
	ocr := &mockOCR{enhanceFn: func(context.Context, ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
		return nil, eris.New("boom")
	}}
	p := New(ocr, &mockRenderer{}, fastConfig())

	rec := incompleteRecord()
	// Threshold is 3 consecutive failures.
	for i := 0; i < 3; i++ {
		out := p.ProcessProject(context.Background(), rec)
		assert.Contains(t, out.OCRError, "Enhancement failed")
	}

	out := p.ProcessProject(context.Background(), rec)
	assert.Equal(t, "Service unavailable", out.OCRError)
	assert.Equal(t, 3, ocr.enhanced)
}

func TestProcessBatchClosesBreakerAfterRecovery(t *testing.T) {
	healthy := false
	ocr := &mockOCR{enhanceFn: func(context.Context, ocrsvc.EnhanceRequest) (*ocrsvc.EnhanceResponse, error) {
		if !healthy {
			return nil, eris.New("connection refused")
		}
		return &ocrsvc.EnhanceResponse{Success: true, ImagesProcessed: 1}, nil
	}}
	p := New(ocr, &mockRenderer{}, fastConfig())

	// Drive the breaker open while the service is down.
	rec := incompleteRecord()
	for i := 0; i < 4; i++ {
		p.ProcessProject(context.Background(), rec)
	}
	require.Equal(t, resilience.StateOpen, p.BreakerState())

	// The service comes back: the batch health check closes the circuit and
	// records are enhanced without waiting out the cooldown.
	healthy = true
	out := p.ProcessBatch(context.Background(), []model.CampaignRecord{rec})
	require.Len(t, out, 1)
	assert.Equal(t, resilience.StateClosed, p.BreakerState())
	assert.True(t, out[0].OCREnhanced)
}
