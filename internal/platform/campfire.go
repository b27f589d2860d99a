package platform

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
)

// campfireCategories maps English and Japanese category terms to CAMPFIRE
// category ids.
var campfireCategories = map[string]string{
	"food": "food", "グルメ": "food", "料理": "food", "レストラン": "food",
	"technology": "tech", "tech": "tech", "テクノロジー": "tech",
	"game": "game", "games": "game", "ゲーム": "game",
	"art": "art", "アート": "art",
	"music": "music", "音楽": "music",
	"movie": "movie", "film": "movie", "映画": "movie",
	"fashion": "fashion", "ファッション": "fashion",
	"product": "product", "プロダクト": "product",
	"social": "social", "ソーシャル": "social",
	"business": "business", "ビジネス": "business",
}

var (
	campfireRaisedRe    = regexp.MustCompile(`現在\s*([0-9,]+)\s*円`)
	campfireGoalRe      = regexp.MustCompile(`目標金額\s*(?:は)?\s*([0-9,]+)\s*円`)
	campfireSupporterRe = regexp.MustCompile(`支援者\s*([0-9,]+)\s*人`)
)

type campfire struct {
	site
}

func newCampfire(base site) *campfire {
	return &campfire{site: base}
}

func (c *campfire) Name() string { return "campfire" }

func (c *campfire) Categories() map[string]map[string]string {
	return map[string]map[string]string{
		"CAMPFIRE": {
			"food":     "グルメ・フード",
			"tech":     "テクノロジー・ガジェット",
			"game":     "ゲーム",
			"art":      "アート",
			"music":    "音楽",
			"movie":    "映像・映画",
			"fashion":  "ファッション",
			"product":  "プロダクト",
			"social":   "ソーシャルグッド",
			"business": "ビジネス",
		},
	}
}

// listingURL combines keyword and mapped category query parameters; CAMPFIRE
// supports both at once.
func (c *campfire) listingURL(category, keyword string) string {
	params := url.Values{}
	if keyword != "" {
		params.Set("keyword", keyword)
	}
	slug := campfireCategories[strings.ToLower(category)]
	if slug == "" {
		slug = campfireCategories[strings.ToLower(keyword)]
	}
	if slug != "" {
		params.Set("category", slug)
	}
	u := "https://camp-fire.jp/projects"
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (c *campfire) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := c.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "campfire: open session")
	}
	defer sess.Close()

	doc, err := c.loadListing(ctx, sess, c.listingURL(category, keyword))
	if err != nil {
		return nil, eris.Wrap(err, "campfire: load listing")
	}

	links := collectLinks(doc, `a[href*="/projects/view/"]`, c.cfg.MaxDetails, func(href string) string {
		if strings.HasPrefix(href, "/") {
			href = "https://camp-fire.jp" + href
		}
		if !strings.Contains(href, "camp-fire.jp/projects/view/") {
			return ""
		}
		if i := strings.Index(href, "?"); i >= 0 {
			href = href[:i]
		}
		return href
	})

	return c.harvest(ctx, sess, c.Name(), links, c.fetchProject, category, keyword, opts), nil
}

func (c *campfire) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded},
		Timeout: c.cfg.NavigateTimeout,
	})
	if err != nil {
		return nil, err
	}

	title := extract.FirstOf(doc,
		extract.Selector("h1.project-title"),
		extract.Selector("h1"),
		extract.Meta("og:title"),
	)

	rec := &model.CampaignRecord{
		URL:           projectURL,
		Title:         title,
		OriginalTitle: title,
		OwnerCountry:  "Japan",
		ProjectOwner: extract.FirstOf(doc,
			extract.Selector(".owner-name"),
			extract.SelectorAttr(`a[href*="/profile/"] img`, "alt"),
		),
		OwnerWebsite: extract.SelectorAttr(`a[href*="/profile/"]`, "href")(doc),
		Description: extract.FirstOf(doc,
			extract.Meta("og:description"),
			extract.Selector(".project-summary"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.SelectorAttr(".project-main-image img", "src"),
		),
	}

	text := doc.Text()
	rec.Raised = parseJPAmount(campfireRaisedRe, text)
	if match := campfireGoalRe.FindStringSubmatch(text); match != nil {
		rec.Goal = model.ParseMoney(match[1], "¥")
	}
	if match := campfireSupporterRe.FindStringSubmatch(text); match != nil {
		rec.Supporters = model.ParseCount(match[1])
	}
	rec.AchievementRate = model.ParsePercent(extract.PercentPattern.FindString(text))
	rec.StartDate, rec.EndDate = campaignPeriod(text, time.Now())

	if strings.Contains(text, "このプロジェクトは終了しました") ||
		strings.Contains(text, "募集終了") {
		rec.Status = "ended"
	} else {
		rec.Status = "live"
	}
	return rec, nil
}
