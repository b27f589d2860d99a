package platform

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
)

// kickstarterKeywordCategories infers a discovery category from common
// search keywords when the caller does not name one.
var kickstarterKeywordCategories = map[string]string{
	"game": "games", "games": "games", "gaming": "games",
	"board game": "games", "card game": "games", "video game": "games",
	"tabletop": "games", "dice": "games", "rpg": "games",

	"technology": "technology", "tech": "technology", "gadget": "technology",
	"device": "technology", "innovation": "technology", "smart": "technology",
	"app": "technology", "software": "technology", "hardware": "technology",

	"art": "art", "artist": "art", "painting": "art", "sculpture": "art",
	"artwork": "art",
	"crafts": "crafts", "craft": "crafts", "handmade": "crafts",
	"design": "design", "designer": "design", "product": "design",

	"film": "film", "movie": "film", "cinema": "film",
	"documentary": "film", "video": "film", "filmmaker": "film",

	"music": "music", "musician": "music", "song": "music",
	"album": "music", "band": "music", "instrument": "music",

	"book": "publishing", "novel": "publishing", "author": "publishing",
	"writing": "publishing",

	"fashion": "fashion", "clothing": "fashion", "style": "fashion",

	"photo": "photography", "photography": "photography", "camera": "photography",
}

type kickstarter struct {
	site
}

func newKickstarter(base site) *kickstarter {
	return &kickstarter{site: base}
}

func (k *kickstarter) Name() string { return "kickstarter" }

func (k *kickstarter) Categories() map[string]map[string]string {
	return map[string]map[string]string{
		"Categories": {
			"art":         "Art",
			"comics":      "Comics",
			"crafts":      "Crafts",
			"dance":       "Dance",
			"design":      "Design",
			"fashion":     "Fashion",
			"film":        "Film & Video",
			"food":        "Food",
			"games":       "Games",
			"journalism":  "Journalism",
			"music":       "Music",
			"photography": "Photography",
			"publishing":  "Publishing",
			"technology":  "Technology",
			"theater":     "Theater",
		},
	}
}

// listingURLs builds the strategy ladder: keyword search first, then the
// category discover page, then the popular page as a last resort.
func (k *kickstarter) listingURLs(category, keyword string) []string {
	var urls []string
	if keyword != "" {
		urls = append(urls,
			"https://www.kickstarter.com/discover/advanced?term="+url.QueryEscape(keyword)+"&sort=magic")
	}
	slug := category
	if slug == "" || slug == "all" {
		slug = kickstarterKeywordCategories[strings.ToLower(keyword)]
	}
	if slug != "" && slug != "all" {
		urls = append(urls, "https://www.kickstarter.com/discover/categories/"+slug+"?sort=popularity")
	}
	urls = append(urls, "https://www.kickstarter.com/discover/popular")
	return urls
}

func (k *kickstarter) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := k.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "kickstarter: open session")
	}
	defer sess.Close()

	var links []string
	var lastErr error
	for _, listing := range k.listingURLs(category, keyword) {
		doc, err := k.loadListing(ctx, sess, listing)
		if err != nil {
			lastErr = err
			continue
		}
		links = collectLinks(doc, `a[href*="/projects/"]`, k.cfg.MaxDetails, normalizeKickstarterLink)
		if len(links) > 0 {
			break
		}
	}
	if len(links) == 0 {
		if lastErr != nil {
			return nil, eris.Wrap(lastErr, "kickstarter: load listing")
		}
		return nil, nil
	}

	return k.harvest(ctx, sess, k.Name(), links, k.fetchProject, category, keyword, opts), nil
}

func normalizeKickstarterLink(href string) string {
	if strings.Contains(href, "creator-handbook") ||
		strings.Contains(href, "/help") ||
		strings.Contains(href, "/rules") {
		return ""
	}
	if strings.HasPrefix(href, "/") {
		href = "https://www.kickstarter.com" + href
	}
	if !strings.Contains(href, "kickstarter.com/projects/") {
		return ""
	}
	// Project URLs are /projects/<creator>/<slug>; anything deeper is a
	// sub-page of the campaign.
	if i := strings.Index(href, "?"); i >= 0 {
		href = href[:i]
	}
	parts := strings.Split(strings.TrimPrefix(href, "https://www.kickstarter.com/projects/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return href
}

func (k *kickstarter) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded, render.WaitLoad},
		Timeout: k.cfg.NavigateTimeout,
	})
	if err != nil {
		return nil, err
	}

	title := extract.FirstOf(doc,
		extract.Selector(`[data-testid="project-name"]`),
		extract.Selector(".project-name"),
		extract.Meta("og:title"),
		extract.Selector("h2"),
		extract.Literal(titleFromSlug(projectURL)),
	)

	rec := &model.CampaignRecord{
		URL:           projectURL,
		Title:         title,
		OriginalTitle: title,
		ProjectOwner: extract.FirstOf(doc,
			extract.Selector(`[data-testid="project-author"]`),
			extract.Selector(".project-author"),
			extract.SelectorAttr(`a[href*="/profile/"]`, "title"),
		),
		OwnerCountry: extract.FirstOf(doc,
			extract.Selector(`[data-testid="location"]`),
			extract.Selector(".project-location"),
		),
		Description: extract.FirstOf(doc,
			extract.Selector(`[data-testid="project-description"]`),
			extract.Meta("og:description"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.SelectorAttr(".project-image img", "src"),
		),
	}

	rawAmount := extract.FirstOf(doc,
		extract.Selector(`[data-testid="pledged"]`),
		extract.Selector(".money.pledged"),
		extract.Regex(extract.AmountPattern, 0),
	)
	rec.Raised = model.ParseMoney(rawAmount, "$")
	rec.Goal = model.ParseMoney(extract.FirstOf(doc,
		extract.Selector(`[data-testid="goal"]`),
		extract.Regex(extract.GoalPattern, 1),
	), "$")
	rec.Supporters = model.ParseCount(extract.FirstOf(doc,
		extract.Selector(`[data-testid="backers-count"]`),
		extract.Selector(".backers-count"),
		extract.Regex(extract.BackersPattern, 1),
	))
	rec.AchievementRate = model.ParsePercent(extract.FirstOf(doc,
		extract.Selector(`[data-testid="percent-raised"]`),
		extract.Regex(extract.PercentPattern, 0),
	))
	if rec.AchievementRate == 0 && rec.Goal.Amount > 0 {
		rec.AchievementRate = model.Percent(float64(rec.Raised.Amount) / float64(rec.Goal.Amount) * 100)
	}
	rec.StartDate, rec.EndDate = campaignPeriod(doc.Text(), time.Now())
	return rec, nil
}

// titleFromSlug recovers a readable title from the project URL slug.
func titleFromSlug(projectURL string) string {
	slug := projectURL[strings.LastIndex(projectURL, "/")+1:]
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
