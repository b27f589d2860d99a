package platform

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
)

// makuakeCategories maps normalized category names to discover slugs.
var makuakeCategories = map[string]string{
	"product":                  "product",
	"fashion":                  "fashion",
	"food":                     "food",
	"restaurants and bars":     "restaurant-bar",
	"technology":               "technology",
	"cosmetics and beauty":     "beauty",
	"art and photography":      "art-photo",
	"movies and videos":        "movie-video",
	"anime and manga":          "anime-manga",
	"music":                    "music",
	"game":                     "game",
	"theatre and performance":  "theatre-performance",
	"comedy/entertainment":     "entertainment",
	"publishing and journalism": "publishing-journalism",
	"education":                "education",
	"sports":                   "sports",
	"startups":                 "startup",
	"regional revitalization":  "regional",
	"contribution to society":  "contribution",
	"around the world":         "world",
}

var (
	makuakeFundingRe   = regexp.MustCompile(`応援購入総額\s*([0-9,]+)\s*円`)
	makuakeGoalRe      = regexp.MustCompile(`目標金額\s*([0-9,]+)\s*円`)
	makuakeSupporterRe = regexp.MustCompile(`サポーター\s*([0-9,]+)\s*人`)
)

type makuake struct {
	site
}

func newMakuake(base site) *makuake {
	return &makuake{site: base}
}

func (m *makuake) Name() string { return "makuake" }

func (m *makuake) Categories() map[string]map[string]string {
	out := make(map[string]string, len(makuakeCategories))
	for name, slug := range makuakeCategories {
		out[slug] = name
	}
	return map[string]map[string]string{"Makuake": out}
}

// listingURL picks a discover category page. Makuake keyword search works
// poorly, so keywords steer category selection instead.
func (m *makuake) listingURL(category, keyword string) string {
	slug := makuakeCategories[strings.ToLower(category)]
	if slug == "" {
		kw := strings.ToLower(keyword)
		switch {
		case strings.Contains(kw, "food") || strings.Contains(kw, "料理"):
			slug = "food"
		case strings.Contains(kw, "fashion") || strings.Contains(kw, "ファッション"):
			slug = "fashion"
		case strings.Contains(kw, "tech"):
			slug = "technology"
		case keyword != "":
			slug = "food"
		default:
			slug = "fashion"
		}
	}
	return "https://www.makuake.com/discover/categories/" + slug + "?sort=popular"
}

func (m *makuake) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := m.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "makuake: open session")
	}
	defer sess.Close()

	doc, err := m.loadListing(ctx, sess, m.listingURL(category, keyword))
	if err != nil {
		return nil, eris.Wrap(err, "makuake: load listing")
	}

	links := collectLinks(doc, `a[href*="/project/"]`, m.cfg.MaxDetails, func(href string) string {
		if strings.HasPrefix(href, "/") {
			href = "https://www.makuake.com" + href
		}
		if !strings.Contains(href, "makuake.com/project/") {
			return ""
		}
		return href
	})

	return m.harvest(ctx, sess, m.Name(), links, m.fetchProject, category, keyword, opts), nil
}

func (m *makuake) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded},
		Timeout: m.cfg.NavigateTimeout,
	})
	if err != nil {
		return nil, err
	}

	title := extract.FirstOf(doc,
		extract.Selector("h1"),
		extract.Selector(".project-title"),
		extract.Meta("og:title"),
	)

	rec := &model.CampaignRecord{
		URL:           projectURL,
		Title:         title,
		OriginalTitle: title,
		OwnerCountry:  "Japan",
		ProjectOwner: extract.FirstOf(doc,
			extract.SelectorAttr(`a[href*="/member/index/"] img`, "alt"),
			extract.Selector(".executor-name"),
		),
		OwnerWebsite: extract.SelectorAttr(`a[href*="/member/index/"]`, "href")(doc),
		Description: extract.FirstOf(doc,
			extract.Meta("description"),
			extract.Meta("og:description"),
			extract.Selector(".project-description p"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.SelectorAttr(`img[src*="/upload/project/"]`, "src"),
		),
		Category: extract.Selector(`a[href*="/discover/categories/"]`)(doc),
	}

	text := doc.Text()
	rec.Raised = parseJPAmount(makuakeFundingRe, text)
	rec.Goal = parseJPAmount(makuakeGoalRe, text)
	if match := makuakeSupporterRe.FindStringSubmatch(text); match != nil {
		rec.Supporters = model.ParseCount(match[1])
	}
	rec.AchievementRate = model.ParsePercent(extract.PercentPattern.FindString(text))
	rec.StartDate, rec.EndDate = campaignPeriod(text, time.Now())

	switch {
	case strings.Contains(text, "このプロジェクトは終了しました") ||
		strings.Contains(text, "Makuake STORE"):
		rec.Status = "ended"
	case strings.Contains(text, "達成"):
		rec.Status = "successful"
	default:
		rec.Status = "live"
	}
	return rec, nil
}

func parseJPAmount(re *regexp.Regexp, text string) model.Money {
	if m := re.FindStringSubmatch(text); m != nil {
		return model.ParseMoney(m[1], "¥")
	}
	return model.ParseMoney(extract.YenAmountPattern.FindString(text), "¥")
}
