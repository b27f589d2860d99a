package platform

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
)

var (
	wadizWonRe       = regexp.MustCompile(`([0-9,]+)\s*원`)
	wadizSupporterRe = regexp.MustCompile(`([0-9,]+)\s*명`)
)

type wadiz struct {
	site
}

func newWadiz(base site) *wadiz {
	return &wadiz{site: base}
}

func (w *wadiz) Name() string { return "wadiz" }

func (w *wadiz) Categories() map[string]map[string]string {
	return map[string]map[string]string{
		"Wadiz": {
			"tech":    "테크·가전",
			"design":  "디자인",
			"life":    "라이프스타일",
			"fashion": "패션·잡화",
			"game":    "게임",
			"food":    "푸드",
			"sports":  "스포츠",
			"book":    "출판",
		},
	}
}

// listingURLs tries keyword search first and category browse pages second;
// Wadiz has rotated its search URL scheme, so both known forms are kept.
func (w *wadiz) listingURLs(category, keyword string) []string {
	var urls []string
	if keyword != "" {
		encoded := url.QueryEscape(keyword)
		urls = append(urls,
			"https://www.wadiz.kr/web/campaign/search?keyword="+encoded,
			"https://www.wadiz.kr/web/search?keyword="+encoded,
		)
	}
	if category != "" && category != "all" {
		urls = append(urls, "https://www.wadiz.kr/web/campaign/category/"+category)
	}
	urls = append(urls, "https://www.wadiz.kr/web/campaign")
	return urls
}

func (w *wadiz) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := w.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "wadiz: open session")
	}
	defer sess.Close()

	var links []string
	var lastErr error
	for _, listing := range w.listingURLs(category, keyword) {
		doc, err := w.loadListing(ctx, sess, listing)
		if err != nil {
			lastErr = err
			continue
		}
		links = collectLinks(doc, `a[href*="/funding/"]`, w.cfg.MaxDetails, func(href string) string {
			if strings.HasPrefix(href, "/") {
				href = "https://www.wadiz.kr" + href
			}
			if !strings.Contains(href, "wadiz.kr/web/funding/") &&
				!strings.Contains(href, "wadiz.kr/funding/") {
				return ""
			}
			if i := strings.Index(href, "?"); i >= 0 {
				href = href[:i]
			}
			return href
		})
		if len(links) > 0 {
			break
		}
	}
	if len(links) == 0 {
		if lastErr != nil {
			return nil, eris.Wrap(lastErr, "wadiz: load listing")
		}
		return nil, nil
	}

	return w.harvest(ctx, sess, w.Name(), links, w.fetchProject, category, keyword, opts), nil
}

func (w *wadiz) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded, render.WaitLoad},
		Timeout: w.cfg.NavigateTimeout,
	})
	if err != nil {
		return nil, err
	}

	title := extract.FirstOf(doc,
		extract.Selector(".campaign-title"),
		extract.Selector("h1"),
		extract.Meta("og:title"),
	)

	rec := &model.CampaignRecord{
		URL:           projectURL,
		Title:         title,
		OriginalTitle: title,
		OwnerCountry:  "South Korea",
		ProjectOwner: extract.FirstOf(doc,
			extract.Selector(".maker-name"),
			extract.Selector(`[class*="MakerInfo"] strong`),
		),
		Description: extract.FirstOf(doc,
			extract.Meta("og:description"),
			extract.Selector(".campaign-summary"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.SelectorAttr(".campaign-thumbnail img", "src"),
		),
	}

	text := doc.Text()
	if match := wadizWonRe.FindStringSubmatch(text); match != nil {
		rec.Raised = model.ParseMoney(match[1], "₩")
	}
	if match := wadizSupporterRe.FindStringSubmatch(text); match != nil {
		rec.Supporters = model.ParseCount(match[1])
	}
	rec.AchievementRate = model.ParsePercent(extract.PercentPattern.FindString(text))

	if strings.Contains(text, "펀딩 종료") || strings.Contains(text, "종료된") {
		rec.Status = "ended"
	} else {
		rec.Status = "live"
	}
	return rec, nil
}
