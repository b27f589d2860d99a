// Package render abstracts the page-rendering capability platform adapters
// and the OCR pipeline consume: open a browsing session, navigate with a
// wait-strategy ladder and timeout, query the resulting document, close the
// session.
package render

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// WaitStrategy names how long a navigation waits for the page to settle.
// The static renderer maps each strategy to a shrinking timeout; a browser
// implementation would map them to real lifecycle events.
type WaitStrategy string

const (
	WaitDOMContentLoaded WaitStrategy = "domcontentloaded"
	WaitNetworkIdle      WaitStrategy = "networkidle"
	WaitLoad             WaitStrategy = "load"
)

// NavigateOptions controls one navigation.
type NavigateOptions struct {
	// Wait is the fallback ladder: strategies are tried in order until one
	// succeeds. Empty means DOMContentLoaded only.
	Wait []WaitStrategy
	// Timeout bounds the first strategy; later strategies get progressively
	// less. Zero means the session default.
	Timeout time.Duration
	// ScrollPasses simulates incremental scrolling to trigger lazy-loaded
	// content. Implementations without a live DOM may ignore it.
	ScrollPasses int
}

// Renderer opens browsing sessions.
type Renderer interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one isolated browsing context. Navigate may be called
// concurrently from a bounded batch. Close must be called on every path.
type Session interface {
	Navigate(ctx context.Context, url string, opts NavigateOptions) (*Document, error)
	Close() error
}

// Document is a rendered page.
type Document struct {
	URL        string
	StatusCode int
	Header     http.Header

	body []byte
	doc  *goquery.Document
}

// NewDocument parses a fetched page body.
func NewDocument(url string, body []byte, statusCode int, header http.Header) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrapf(err, "render: parse document %s", url)
	}
	return &Document{URL: url, StatusCode: statusCode, Header: header, body: body, doc: doc}, nil
}

// Find runs a CSS selector query against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the full visible text of the page.
func (d *Document) Text() string {
	return d.doc.Text()
}

// Body returns the raw page bytes.
func (d *Document) Body() []byte {
	return d.body
}

// Meta returns the content attribute of a <meta> tag by property or name.
func (d *Document) Meta(key string) string {
	if v, ok := d.doc.Find(`meta[property="` + key + `"]`).Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := d.doc.Find(`meta[name="` + key + `"]`).Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
