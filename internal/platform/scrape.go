package platform

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/relevance"
	"github.com/dailylance/crowdscrape/internal/render"
	"github.com/dailylance/crowdscrape/internal/resilience"
)

// site carries the collaborators shared by every adapter.
type site struct {
	renderer render.Renderer
	filter   *relevance.Filter
	cfg      Config
}

// loadListing navigates to a listing URL, retrying transient failures and
// blocked responses.
func (s *site) loadListing(ctx context.Context, sess render.Session, url string) (*render.Document, error) {
	cfg := resilience.RetryConfig{
		MaxAttempts:    s.cfg.ListingAttempts,
		InitialBackoff: 2 * time.Second,
		OnRetry:        resilience.RetryLogger("scraper", "load listing"),
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*render.Document, error) {
		doc, err := sess.Navigate(ctx, url, render.NavigateOptions{
			Wait:         []render.WaitStrategy{render.WaitNetworkIdle, render.WaitDOMContentLoaded},
			Timeout:      s.cfg.NavigateTimeout,
			ScrollPasses: 3,
		})
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		if blocked, kind := doc.Blocked(); blocked {
			return nil, resilience.NewTransientError(
				eris.Errorf("listing blocked (%s): %s", kind, url), doc.StatusCode)
		}
		return doc, nil
	})
}

// collectLinks gathers unique project URLs from a listing document in
// document order. normalize maps a raw href to an absolute project URL, or
// returns "" to drop it.
func collectLinks(doc *render.Document, selector string, limit int, normalize func(href string) string) []string {
	seen := make(map[string]bool)
	var links []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if len(links) >= limit {
			return
		}
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		url := normalize(strings.TrimSpace(href))
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		links = append(links, url)
	})
	return links
}

var dateSepRe = regexp.MustCompile(`[/.\-]`)

// campaignPeriod derives start/end dates from free page text. An explicit
// period line wins; otherwise a remaining-days phrase anchors the end date
// to now. Either result may be empty.
func campaignPeriod(text string, now time.Time) (start, end string) {
	if m := extract.DateRangePattern.FindStringSubmatch(text); m != nil {
		return normalizeDate(m[1]), normalizeDate(m[2])
	}
	if m := extract.DeadlinePattern.FindStringSubmatch(text); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if days, err := strconv.Atoi(digits); err == nil {
			return "", now.AddDate(0, 0, days).Format("2006-01-02")
		}
	}
	return "", ""
}

// normalizeDate folds "2024/1/5" style dates into ISO form.
func normalizeDate(s string) string {
	parts := dateSepRe.Split(s, -1)
	if len(parts) != 3 {
		return s
	}
	month, day := parts[1], parts[2]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return parts[0] + "-" + month + "-" + day
}

// detailFunc scrapes one project page into a record.
type detailFunc func(ctx context.Context, sess render.Session, url string) (*model.CampaignRecord, error)

// harvest visits project pages in bounded batches, skips individual
// failures, filters for relevance and applies the unfiltered fallback when
// nothing survives the filter. Result order follows link order.
func (s *site) harvest(ctx context.Context, sess render.Session, platform string, links []string, fetch detailFunc, category, keyword string, opts Options) []model.CampaignRecord {
	limit := s.cfg.MaxDetails
	if opts.MaxResults > 0 && opts.MaxResults < limit {
		limit = opts.MaxResults
	}
	if len(links) > limit {
		links = links[:limit]
	}

	all := make([]*model.CampaignRecord, len(links))
	for start := 0; start < len(links); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(links))

		g, gctx := errgroup.Group{}, ctx
		g.SetLimit(s.cfg.BatchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				rec, err := fetch(gctx, sess, links[i])
				if err != nil {
					zap.L().Warn("skipping project page",
						zap.String("platform", platform),
						zap.String("url", links[i]),
						zap.Error(err),
					)
					return nil
				}
				all[i] = rec
				return nil
			})
		}
		_ = g.Wait()

		if end < len(links) {
			select {
			case <-ctx.Done():
				return s.finish(all, platform, category, keyword)
			case <-time.After(s.cfg.BatchDelay):
			}
		}
	}
	return s.finish(all, platform, category, keyword)
}

// finish compacts the indexed results, applies the relevance filter, and
// falls back to the top unfiltered records when everything was filtered out.
func (s *site) finish(all []*model.CampaignRecord, platform, category, keyword string) []model.CampaignRecord {
	var scraped []model.CampaignRecord
	for _, rec := range all {
		if rec == nil || rec.Title == "" {
			continue
		}
		rec.Platform = platform
		if rec.Category == "" {
			rec.Category = category
		}
		rec.Completion = rec.DeriveCompletion(time.Now())
		scraped = append(scraped, *rec)
	}

	var relevant []model.CampaignRecord
	for _, rec := range scraped {
		if s.filter.IsRelevant(&rec, keyword, category) {
			relevant = append(relevant, rec)
		}
	}
	if len(relevant) > 0 {
		return relevant
	}
	if len(scraped) == 0 {
		return nil
	}

	// Nothing matched the keyword: return the top unfiltered records rather
	// than an empty set, so the caller always gets something from a live page.
	zap.L().Info("no relevant results, returning unfiltered fallback",
		zap.String("platform", platform),
		zap.String("keyword", keyword),
		zap.Int("scraped", len(scraped)),
	)
	if len(scraped) > s.cfg.FallbackCap {
		scraped = scraped[:s.cfg.FallbackCap]
	}
	return scraped
}
