// Package platform implements the per-site crowdfunding adapters and the
// registry that creates them. Every adapter follows the same shape: build a
// listing URL from the category/keyword, collect project links, scrape
// details in bounded batches, filter for relevance. The differences between
// sites live in their category taxonomies, URL schemes and field cascades.
package platform

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/model"
)

// ErrUnsupportedPlatform is returned by the registry for unknown platform ids.
var ErrUnsupportedPlatform = eris.New("platform: unsupported platform")

// Options controls one scrape call.
type Options struct {
	// Language selects the result language where the site supports it
	// ("en" or "ja"). Adapters that only publish one language ignore it.
	Language string
	// MaxResults caps how many project pages are visited. Zero means the
	// adapter default (50).
	MaxResults int
}

// Config tunes the shared scraping behavior. The zero value gets defaults.
type Config struct {
	// BatchSize is how many detail pages are fetched concurrently. Default: 3.
	BatchSize int
	// BatchDelay is the pause between detail batches. Default: 1s.
	BatchDelay time.Duration
	// FallbackCap bounds the unfiltered fallback returned when no record
	// passes the relevance filter. Default: 10.
	FallbackCap int
	// ListingAttempts is how many times a listing load is tried. Default: 2.
	ListingAttempts int
	// NavigateTimeout bounds a single page navigation. Default: 40s.
	NavigateTimeout time.Duration
	// MaxDetails caps detail-page visits regardless of Options.MaxResults.
	// Default: 50.
	MaxDetails int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 3
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = time.Second
	}
	if c.FallbackCap <= 0 {
		c.FallbackCap = 10
	}
	if c.ListingAttempts <= 0 {
		c.ListingAttempts = 2
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 40 * time.Second
	}
	if c.MaxDetails <= 0 {
		c.MaxDetails = 50
	}
	return c
}

// Adapter scrapes one crowdfunding site.
type Adapter interface {
	// Name is the platform id ("kickstarter", "makuake", ...).
	Name() string
	// Categories returns the site taxonomy grouped by section: group name →
	// category slug → display label.
	Categories() map[string]map[string]string
	// Scrape searches the site and returns campaign records. Either category
	// or keyword may be empty, not both. Individual page failures are logged
	// and skipped; the call fails only when the listing itself cannot load.
	Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error)
}
