package platform

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dailylance/crowdscrape/internal/extract"
	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/render"
)

// indiegogoKeywordSlugs maps search keywords to explore slugs.
var indiegogoKeywordSlugs = map[string]string{
	"audio": "audio", "sound": "audio", "speaker": "audio",
	"headphone": "audio", "headphones": "audio",
	"earphone": "audio", "earphones": "audio", "microphone": "audio",
	"audio device": "audio", "audio equipment": "audio",

	"camera": "camera-gear", "photography": "camera-gear", "photo": "camera-gear",
	"lens": "camera-gear", "camera gear": "camera-gear", "video": "camera-gear",

	"education": "education", "learning": "education", "teach": "education",
	"teaching": "education", "school": "education", "course": "education",

	"energy": "energy-green-tech", "solar": "energy-green-tech",
	"battery": "energy-green-tech", "green": "energy-green-tech",
	"green tech": "energy-green-tech", "renewable energy": "energy-green-tech",
	"clean energy": "energy-green-tech", "power": "energy-green-tech",
	"power station": "energy-green-tech",

	"fashion": "fashion-wearables", "clothing": "fashion-wearables",
	"wearable": "fashion-wearables", "wearables": "fashion-wearables",
	"watch": "fashion-wearables", "smartwatch": "fashion-wearables",
	"apparel": "fashion-wearables",

	"food": "food-beverages", "drink": "food-beverages",
	"beverage": "food-beverages", "beverages": "food-beverages",
	"cooking": "food-beverages", "kitchen": "food-beverages",

	"health": "health-fitness", "fitness": "health-fitness",
	"home": "home", "phone": "phones-accessories",
	"transport": "transportation", "transportation": "transportation",
	"ebike": "transportation", "bike": "transportation",
	"travel": "travel-outdoors", "outdoor": "travel-outdoors",

	"art": "art", "comic": "comics", "comics": "comics",
	"film": "film", "movie": "film", "music": "music",
	"tabletop": "tabletop-games", "game": "video-games", "games": "video-games",
	"book": "writing-publishing", "writing": "writing-publishing",
}

type indiegogo struct {
	site
}

func newIndiegogo(base site) *indiegogo {
	return &indiegogo{site: base}
}

func (g *indiegogo) Name() string { return "indiegogo" }

func (g *indiegogo) Categories() map[string]map[string]string {
	return map[string]map[string]string{
		"Tech & Innovation": {
			"audio":              "Audio",
			"camera-gear":        "Camera & Photography",
			"education":          "Education",
			"energy-green-tech":  "Energy & Green Tech",
			"fashion-wearables":  "Fashion & Wearables",
			"food-beverages":     "Food & Beverages",
			"health-fitness":     "Health & Fitness",
			"home":               "Home",
			"phones-accessories": "Phones & Accessories",
			"productivity":       "Productivity",
			"transportation":     "Transportation",
			"travel-outdoors":    "Travel & Outdoors",
		},
		"Creative Works": {
			"art":                  "Art",
			"comics":               "Comics",
			"dance-theater":        "Dance & Theater",
			"film":                 "Film",
			"music":                "Music",
			"photography":          "Photography",
			"podcasts-blogs-vlogs": "Podcasts, Blogs & Vlogs",
			"tabletop-games":       "Tabletop Games",
			"video-games":          "Video Games",
			"web-series-tv-shows":  "Web Series & TV Shows",
			"writing-publishing":   "Writing & Publishing",
		},
		"Community Projects": {
			"culture":          "Culture",
			"environment":      "Environment",
			"human-rights":     "Human Rights",
			"local-businesses": "Local Businesses",
			"wellness":         "Wellness",
		},
	}
}

// exploreSlug resolves the explore page for a scrape: explicit category
// first, keyword inference second, the all-projects page last.
func (g *indiegogo) exploreSlug(category, keyword string) string {
	if category != "" && category != "all" {
		return category
	}
	if slug, ok := indiegogoKeywordSlugs[strings.ToLower(keyword)]; ok {
		return slug
	}
	for kw, slug := range indiegogoKeywordSlugs {
		if strings.Contains(strings.ToLower(keyword), kw) {
			return slug
		}
	}
	return "all"
}

func (g *indiegogo) Scrape(ctx context.Context, category, keyword string, opts Options) ([]model.CampaignRecord, error) {
	sess, err := g.renderer.NewSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "indiegogo: open session")
	}
	defer sess.Close()

	listing := "https://www.indiegogo.com/explore/" + g.exploreSlug(category, keyword)
	doc, err := g.loadListing(ctx, sess, listing)
	if err != nil {
		return nil, eris.Wrap(err, "indiegogo: load listing")
	}

	links := collectLinks(doc, `a[href*="/projects/"]`, g.cfg.MaxDetails, func(href string) string {
		if strings.HasPrefix(href, "/") {
			href = "https://www.indiegogo.com" + href
		}
		if !strings.Contains(href, "indiegogo.com/projects/") {
			return ""
		}
		if i := strings.Index(href, "?"); i >= 0 {
			href = href[:i]
		}
		return strings.TrimSuffix(href, "#/")
	})

	return g.harvest(ctx, sess, g.Name(), links, g.fetchProject, category, keyword, opts), nil
}

func (g *indiegogo) fetchProject(ctx context.Context, sess render.Session, projectURL string) (*model.CampaignRecord, error) {
	doc, err := sess.Navigate(ctx, projectURL, render.NavigateOptions{
		Wait:    []render.WaitStrategy{render.WaitDOMContentLoaded, render.WaitLoad},
		Timeout: g.cfg.NavigateTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Indiegogo renders most campaign data client-side but ships the full
	// campaign object in a server-injected gon variable.
	title := extract.FirstOf(doc,
		extract.Selector(".basicsSection-title"),
		extract.EmbeddedJSON("window.gon", "campaign", "title"),
		extract.Meta("og:title"),
		extract.Literal(titleFromSlug(projectURL)),
	)

	rec := &model.CampaignRecord{
		URL:           projectURL,
		Title:         title,
		OriginalTitle: title,
		ProjectOwner: extract.FirstOf(doc,
			extract.Selector(".basicsCampaignOwner-details-name"),
			extract.EmbeddedJSON("window.gon", "campaign", "owner_name"),
		),
		OwnerCountry: extract.FirstOf(doc,
			extract.Selector(".basicsCampaignOwner-details-city"),
			extract.EmbeddedJSON("window.gon", "campaign", "location"),
		),
		Description: extract.FirstOf(doc,
			extract.Selector(".basicsSection-tagline"),
			extract.EmbeddedJSON("window.gon", "campaign", "tagline"),
			extract.Meta("og:description"),
		),
		ImageURL: extract.FirstOf(doc,
			extract.Meta("og:image"),
			extract.EmbeddedJSON("window.gon", "campaign", "image_url"),
		),
	}

	rec.Raised = model.ParseMoney(extract.FirstOf(doc,
		extract.Selector(".basicsGoalProgress-amountSold"),
		extract.EmbeddedJSON("window.gon", "campaign", "collected_funds"),
		extract.Regex(extract.AmountPattern, 0),
	), "$")
	rec.Goal = model.ParseMoney(extract.FirstOf(doc,
		extract.EmbeddedJSON("window.gon", "campaign", "goal"),
		extract.Regex(extract.GoalPattern, 1),
	), "$")
	rec.Supporters = model.ParseCount(extract.FirstOf(doc,
		extract.Selector(".basicsGoalProgress-claimedOrBackers"),
		extract.EmbeddedJSON("window.gon", "campaign", "contributions_count"),
		extract.Regex(extract.BackersPattern, 1),
	))
	rec.AchievementRate = model.ParsePercent(extract.FirstOf(doc,
		extract.Regex(extract.PercentPattern, 0),
		extract.EmbeddedJSON("window.gon", "campaign", "percent_funded"),
	))
	if rec.AchievementRate == 0 && rec.Goal.Amount > 0 {
		rec.AchievementRate = model.Percent(float64(rec.Raised.Amount) / float64(rec.Goal.Amount) * 100)
	}
	return rec, nil
}
