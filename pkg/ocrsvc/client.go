// Package ocrsvc provides a client for the OCR enhancement service, which
// reads campaign imagery to fill fields the page markup did not yield.
package ocrsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the OCR service operations.
type Client interface {
	// Enhance submits project data and page images for OCR-based field
	// recovery.
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
	// Health checks service availability.
	Health(ctx context.Context) error
}

// Image is one candidate image for OCR.
type Image struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// EnhanceRequest is the enhancement payload.
type EnhanceRequest struct {
	ProjectData   map[string]any `json:"project_data"`
	Images        []Image        `json:"images"`
	MissingFields []string       `json:"missing_fields"`
}

// EnhanceResponse is the service's enhancement result.
type EnhanceResponse struct {
	Success              bool               `json:"success"`
	EnhancedData         map[string]string  `json:"enhanced_data"`
	EnhancedDataEnglish  map[string]string  `json:"enhanced_data_english"`
	EnhancedDataOriginal map[string]string  `json:"enhanced_data_original"`
	ConfidenceScores     map[string]float64 `json:"confidence_scores"`
	FieldsEnhanced       []string           `json:"fields_enhanced"`
	ImagesProcessed      int                `json:"images_processed"`
	OverallConfidence    float64            `json:"overall_confidence"`
	Error                string             `json:"error,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an OCR service client. Enhancement runs OCR over
// multiple images, so the default timeout is long.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 3 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures (429, 500, 502, 503).
func (c *httpClient) retryDo(ctx context.Context, req *http.Request, body []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		if body != nil {
			retryReq.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "ocrsvc: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("ocrsvc: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Enhance(ctx context.Context, enhReq EnhanceRequest) (*EnhanceResponse, error) {
	payload, err := json.Marshal(enhReq)
	if err != nil {
		return nil, eris.Wrap(err, "ocrsvc: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/enhance-crowdfunding", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "ocrsvc: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, statusCode, err := c.retryDo(ctx, req, payload)
	if err != nil {
		return nil, eris.Wrap(err, "ocrsvc: request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("ocrsvc: unexpected status %d: %s", statusCode, string(body))
	}

	var result EnhanceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ocrsvc: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return eris.Wrap(err, "ocrsvc: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "ocrsvc: health check failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("ocrsvc: unhealthy status %d", resp.StatusCode)
	}
	return nil
}
