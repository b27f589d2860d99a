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

// greenfundingCategoryIDs maps English and Japanese category terms to the
// numeric portal category ids.
var greenfundingCategoryIDs = map[string]string{
	"gadgets": "27", "ガジェット": "27",
	"technology": "38", "テクノロジー": "38", "iot": "38",
	"miscellaneous": "41", "雑貨": "41",
	"audio": "45", "オーディオ": "45",
	"outdoor": "49", "アウトドア": "49",
	"car": "44", "motorcycle": "44", "車": "44", "バイク": "44",
	"fashion": "16", "ファッション": "16",
	"sports": "30", "スポーツ": "30",
	"social": "6", "社会貢献": "6", "contribution": "6",
	"art": "23", "アート": "23",
	"publication": "25", "出版": "25", "publishing": "25",
	"regional": "39", "地域活性化": "39",
	"entertainment": "40", "エンタメ": "40",
	"music": "26",
}

var greenfundingSupporterRe = regexp.MustCompile(`([0-9,]+)\s*人がサポート`)

type greenfunding struct {
	site
}

func newGreenFunding(base site) *greenfunding {
	return &greenfunding{site: base}
}

func (gf *greenfunding) Name() string { return "greenfunding" }

func (gf *greenfunding) Categories() map[string]map[string]string {
	return map[string]map[string]string{
		"GREEN FUNDING": {
			"gadgets":       "ガジェット",
			"technology":    "テクノロジー",
			"audio":         "オーディオ",
			"outdoor":       "アウトドア",
			"car":           "車・バイク",
			"fashion":       "ファッション",
			"sports":        "スポーツ",
			"social":        "社会貢献",
			"art":           "アート",
			"publication":   "出版",
			"regional":      "地域活性化",
			"entertainment": "エンタメ",
			"music":         "音楽",
			"miscellaneous": "雑貨",
		},
	}
}

// listingURL prefers the numeric category filter; unknown categories fall
// back to the free-text search.
func (gf *greenfunding) listingURL(category, keyword string) string {
	if id := greenfundingCategoryIDs[strings.ToLower(category)]; id != "" {
		u := "https://greenfunding.jp/portals/search?category_id=" + id
		if keyword != "" {
			u += "&q=" + url.QueryEscape(keyword)
		}
		return u
	}
	term := keyword
	if term == "" {
		term = category
	}
	return "https://greenfunding.jp/portals/search?q=" + url.QueryEscape(term)
}

func (gf *greenfunding) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := gf.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "greenfunding: open session")
	}
	defer sess.Close()

	doc, err := gf.loadListing(ctx, sess, gf.listingURL(category, keyword))
	if err != nil {
		return nil, eris.Wrap(err, "greenfunding: load listing")
	}

	links := collectLinks(doc, `a[href*="/projects/"]`, gf.cfg.MaxDetails, func(href string) string {
		if strings.HasPrefix(href, "/") {
			href = "https://greenfunding.jp" + href
		}
		if !strings.Contains(href, "greenfunding.jp") || !strings.Contains(href, "/projects/") {
			return ""
		}
		if i := strings.Index(href, "?"); i >= 0 {
			href = href[:i]
		}
		return href
	})

	return gf.harvest(ctx, sess, gf.Name(), links, gf.fetchProject, category, keyword, opts), nil
}

func (gf *greenfunding) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded},
		Timeout: gf.cfg.NavigateTimeout,
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
			extract.Selector(".client-name"),
			extract.Selector(".owner-name"),
		),
		Description: extract.FirstOf(doc,
			extract.Meta("og:description"),
			extract.Selector(".project-summary"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.SelectorAttr(".project-thumbnail img", "src"),
		),
	}

	text := doc.Text()
	rec.Raised = parseJPAmount(makuakeFundingRe, text)
	if rec.Raised.Amount == 0 {
		rec.Raised = model.ParseMoney(extract.YenAmountPattern.FindString(text), "¥")
	}
	rec.Goal = parseJPAmount(makuakeGoalRe, text)
	if match := greenfundingSupporterRe.FindStringSubmatch(text); match != nil {
		rec.Supporters = model.ParseCount(match[1])
	} else if match := extract.BackersPattern.FindStringSubmatch(text); match != nil {
		rec.Supporters = model.ParseCount(match[1])
	}
	rec.AchievementRate = model.ParsePercent(extract.PercentPattern.FindString(text))

	if strings.Contains(text, "このプロジェクトは終了しました") ||
		strings.Contains(text, "終了しました") {
		rec.Status = "ended"
	} else {
		rec.Status = "live"
	}
	return rec, nil
}
