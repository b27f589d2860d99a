package render

import (
	"context"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StaticConfig configures the HTTP-based renderer.
type StaticConfig struct {
	// UserAgent overrides the generated browser user-agent.
	UserAgent string
	// Timeout is the default navigation timeout. Default: 30s.
	Timeout time.Duration
	// RequestsPerSecond caps the request rate across all sessions. Default: 2.
	RequestsPerSecond float64
}

// StaticRenderer fetches pages over plain HTTP with a browser-like client:
// realistic user-agent, cookie jar per session, Cloudflare bypass transport
// and a shared rate limiter. It cannot execute page scripts; adapters lean
// on the embedded-state and regex extraction strategies for script-rendered
// fields.
type StaticRenderer struct {
	cfg     StaticConfig
	limiter *rate.Limiter
}

// NewStatic creates a StaticRenderer.
func NewStatic(cfg StaticConfig) *StaticRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = browser.Chrome()
	}
	return &StaticRenderer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
	}
}

// NewSession opens an isolated session with its own cookie jar.
func (r *StaticRenderer) NewSession(_ context.Context) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "render: cookie jar")
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(r.cfg.Timeout)
	client.SetHeader("User-Agent", r.cfg.UserAgent)
	client.SetHeader("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	limiter := r.limiter
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &staticSession{client: client, timeout: r.cfg.Timeout}, nil
}

type staticSession struct {
	client  *resty.Client
	timeout time.Duration
}

// Navigate fetches the URL, walking the wait-strategy ladder: each strategy
// gets a shrinking share of the timeout, and a failure on one strategy falls
// through to the next.
func (s *staticSession) Navigate(ctx context.Context, url string, opts NavigateOptions) (*Document, error) {
	strategies := opts.Wait
	if len(strategies) == 0 {
		strategies = []WaitStrategy{WaitDOMContentLoaded}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	var lastErr error
	for i, strategy := range strategies {
		// Ladder: 1/1, 2/3, 1/3 of the timeout.
		share := timeout * time.Duration(len(strategies)-i) / time.Duration(len(strategies))
		attemptCtx, cancel := context.WithTimeout(ctx, share)
		doc, err := s.fetch(attemptCtx, url)
		cancel()
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		zap.L().Debug("render: navigation strategy failed, trying next",
			zap.String("url", url),
			zap.String("strategy", string(strategy)),
			zap.Error(err),
		)
	}
	return nil, eris.Wrapf(lastErr, "render: navigate %s", url)
}

func (s *staticSession) fetch(ctx context.Context, url string) (*Document, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, eris.Wrap(err, "render: fetch")
	}
	return NewDocument(url, resp.Body(), resp.StatusCode(), resp.Header())
}

func (s *staticSession) Close() error {
	// Nothing to tear down for a plain HTTP session; the method exists so
	// callers release browser-backed sessions on every path.
	return nil
}
