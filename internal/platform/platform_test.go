package platform

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/relevance"
	"github.com/dailylance/crowdscrape/internal/render"
	"github.com/dailylance/crowdscrape/internal/taxonomy"
)

// mockRenderer serves canned pages and tracks session lifecycle.
type mockRenderer struct {
	pages map[string]string

	mu     sync.Mutex
	opened int
	closed int
}

func (m *mockRenderer) NewSession(context.Context) (render.Session, error) {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &mockSession{parent: m}, nil
}

type mockSession struct {
	parent *mockRenderer
}

func (s *mockSession) Navigate(_ context.Context, url string, _ render.NavigateOptions) (*render.Document, error) {
	body, ok := s.parent.pages[url]
	if !ok {
		return nil, eris.Errorf("no page for %s", url)
	}
	return render.NewDocument(url, []byte(body), 200, http.Header{})
}

func (s *mockSession) Close() error {
	s.parent.mu.Lock()
	s.parent.closed++
	s.parent.mu.Unlock()
	return nil
}

func testSite(t *testing.T, r render.Renderer) site {
	t.Helper()
	tables, err := taxonomy.Load()
	require.NoError(t, err)
	return site{
		renderer: r,
		filter:   relevance.New(tables),
		cfg: Config{
			BatchSize:       3,
			BatchDelay:      time.Millisecond,
			FallbackCap:     10,
			ListingAttempts: 1,
			NavigateTimeout: time.Second,
			MaxDetails:      50,
		},
	}
}

func TestRegistryGetAndUnsupported(t *testing.T) {
	reg := NewRegistry(&mockRenderer{}, relevance.New(mustTables(t)), Config{})

	a, err := reg.Get("kickstarter")
	require.NoError(t, err)
	assert.Equal(t, "kickstarter", a.Name())

	_, err = reg.Get("flyingv")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestRegistryPlatformsSorted(t *testing.T) {
	reg := NewRegistry(&mockRenderer{}, relevance.New(mustTables(t)), Config{})
	metas := reg.Platforms()
	require.Len(t, metas, 6)
	ids := make([]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"campfire", "greenfunding", "indiegogo", "kickstarter", "makuake", "wadiz"}, ids)
}

func TestRegistryCategoriesUnknownIsEmptyNotError(t *testing.T) {
	reg := NewRegistry(&mockRenderer{}, relevance.New(mustTables(t)), Config{})
	assert.Empty(t, reg.Categories("zeczec"))
	assert.NotEmpty(t, reg.Categories("indiegogo"))
}

func mustTables(t *testing.T) *taxonomy.Tables {
	t.Helper()
	tables, err := taxonomy.Load()
	require.NoError(t, err)
	return tables
}

func TestCollectLinksDedupPreservesOrder(t *testing.T) {
	html := `<html>
		<a href="/projects/a/one">1</a>
		<a href="/projects/b/two">2</a>
		<a href="/projects/a/one">dup</a>
		<a href="/help/projects/ignore">skip</a>
		<a href="/projects/c/three">3</a>
	</html>`
	doc, err := render.NewDocument("https://www.kickstarter.com/discover/popular", []byte(html), 200, http.Header{})
	require.NoError(t, err)

	links := collectLinks(doc, `a[href*="/projects/"]`, 10, normalizeKickstarterLink)
	assert.Equal(t, []string{
		"https://www.kickstarter.com/projects/a/one",
		"https://www.kickstarter.com/projects/b/two",
		"https://www.kickstarter.com/projects/c/three",
	}, links)
}

func TestCollectLinksHonorsLimit(t *testing.T) {
	html := `<html>
		<a href="/projects/a/one">1</a>
		<a href="/projects/b/two">2</a>
		<a href="/projects/c/three">3</a>
	</html>`
	doc, err := render.NewDocument("https://www.kickstarter.com/x", []byte(html), 200, http.Header{})
	require.NoError(t, err)
	assert.Len(t, collectLinks(doc, `a[href*="/projects/"]`, 2, normalizeKickstarterLink), 2)
}

func TestHarvestSkipsFailedPages(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://x.test/p/1": `<html><h1>Smart Speaker One</h1></html>`,
		"https://x.test/p/3": `<html><h1>Smart Speaker Three</h1></html>`,
	}}
	s := testSite(t, renderer)
	sess, err := renderer.NewSession(context.Background())
	require.NoError(t, err)

	fetch := func(ctx context.Context, sess render.Session, url string) (*model.CampaignRecord, error) {
		doc, err := sess.Navigate(ctx, url, render.NavigateOptions{})
		if err != nil {
			return nil, err
		}
		title := doc.Find("h1").Text()
		return &model.CampaignRecord{URL: url, Title: title, OriginalTitle: title}, nil
	}

	links := []string{"https://x.test/p/1", "https://x.test/p/2", "https://x.test/p/3"}
	got := s.harvest(context.Background(), sess, "testsite", links, fetch, "", "speaker", Options{})

	require.Len(t, got, 2)
	assert.Equal(t, "Smart Speaker One", got[0].Title)
	assert.Equal(t, "Smart Speaker Three", got[1].Title)
	assert.Equal(t, "testsite", got[0].Platform)
}

func TestHarvestUnfilteredFallback(t *testing.T) {
	pages := make(map[string]string)
	var links []string
	for _, u := range []string{
		"https://x.test/p/1", "https://x.test/p/2", "https://x.test/p/3",
	} {
		pages[u] = `<html><h1>Ceramic Mug</h1></html>`
		links = append(links, u)
	}
	renderer := &mockRenderer{pages: pages}
	s := testSite(t, renderer)
	sess, err := renderer.NewSession(context.Background())
	require.NoError(t, err)

	fetch := func(ctx context.Context, sess render.Session, url string) (*model.CampaignRecord, error) {
		return &model.CampaignRecord{URL: url, Title: "Ceramic Mug " + url}, nil
	}

	// Keyword matches nothing, but the scrape still returns the top records.
	got := s.harvest(context.Background(), sess, "testsite", links, fetch, "", "smart speaker", Options{})
	assert.Len(t, got, 3)
}

func TestHarvestFallbackCap(t *testing.T) {
	var links []string
	for i := 0; i < 15; i++ {
		links = append(links, "https://x.test/p/"+string(rune('a'+i)))
	}
	renderer := &mockRenderer{}
	s := testSite(t, renderer)
	sess := &mockSession{parent: renderer}

	fetch := func(ctx context.Context, sess render.Session, url string) (*model.CampaignRecord, error) {
		return &model.CampaignRecord{URL: url, Title: "Unrelated " + url}, nil
	}

	got := s.harvest(context.Background(), sess, "testsite", links, fetch, "", "smart speaker", Options{})
	assert.Len(t, got, 10)
}

func TestHarvestRespectsMaxResults(t *testing.T) {
	var links []string
	for i := 0; i < 8; i++ {
		links = append(links, "https://x.test/p/"+string(rune('a'+i)))
	}
	renderer := &mockRenderer{}
	s := testSite(t, renderer)
	sess := &mockSession{parent: renderer}

	var mu sync.Mutex
	fetched := 0
	fetch := func(ctx context.Context, sess render.Session, url string) (*model.CampaignRecord, error) {
		mu.Lock()
		fetched++
		mu.Unlock()
		return &model.CampaignRecord{URL: url, Title: "Smart Speaker"}, nil
	}

	s.harvest(context.Background(), sess, "testsite", links, fetch, "", "speaker", Options{MaxResults: 4})
	assert.Equal(t, 4, fetched)
}

func TestCampaignPeriod(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	start, end := campaignPeriod("実施期間: 2024/01/15 〜 2024/2/5", now)
	assert.Equal(t, "2024-01-15", start)
	assert.Equal(t, "2024-02-05", end)

	start, end = campaignPeriod("Funding: 21 days to go", now)
	assert.Empty(t, start)
	assert.Equal(t, "2026-03-22", end)

	_, end = campaignPeriod("残り12日", now)
	assert.Equal(t, "2026-03-13", end)

	start, end = campaignPeriod("no period on this page", now)
	assert.Empty(t, start)
	assert.Empty(t, end)
}

func TestKickstarterScrapeHappyPath(t *testing.T) {
	listing := `<html>
		<a href="/projects/maker/smart-speaker-pro">Smart Speaker Pro</a>
		<a href="/projects/maker/ceramic-mug">Ceramic Mug</a>
	</html>`
	detail1 := `<html><head>
		<meta property="og:image" content="https://cdn.test/s.jpg">
		<meta property="og:description" content="A smart speaker for every room">
		</head><body>
		<h2>Smart Speaker Pro</h2>
		<span data-testid="pledged">$12,345</span>
		<span data-testid="backers-count">678</span>
		pledged of $10,000 goal
		</body></html>`
	detail2 := `<html><body><h2>Ceramic Mug</h2>$500 pledged</body></html>`

	renderer := &mockRenderer{pages: map[string]string{
		"https://www.kickstarter.com/discover/advanced?term=speaker&sort=magic": listing,
		"https://www.kickstarter.com/projects/maker/smart-speaker-pro":          detail1,
		"https://www.kickstarter.com/projects/maker/ceramic-mug":                detail2,
	}}
	k := newKickstarter(testSite(t, renderer))

	got, err := k.Scrape(context.Background(), "", "speaker", Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	rec := got[0]
	assert.Equal(t, "Smart Speaker Pro", rec.Title)
	assert.Equal(t, "kickstarter", rec.Platform)
	assert.Equal(t, int64(12345), rec.Raised.Amount)
	assert.Equal(t, "$", rec.Raised.Symbol)
	assert.Equal(t, 678, rec.Supporters)
	assert.Equal(t, int64(10000), rec.Goal.Amount)
	assert.Equal(t, "https://cdn.test/s.jpg", rec.ImageURL)

	// One session per scrape call, released afterwards.
	assert.Equal(t, 1, renderer.opened)
	assert.Equal(t, 1, renderer.closed)
}

func TestKickstarterTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Smart Speaker Pro", titleFromSlug("https://www.kickstarter.com/projects/m/smart-speaker-pro"))
}

func TestMakuakeListingURL(t *testing.T) {
	m := newMakuake(testSite(t, &mockRenderer{}))
	assert.Equal(t,
		"https://www.makuake.com/discover/categories/technology?sort=popular",
		m.listingURL("technology", ""))
	assert.Equal(t,
		"https://www.makuake.com/discover/categories/food?sort=popular",
		m.listingURL("", "料理グッズ"))
	assert.Equal(t,
		"https://www.makuake.com/discover/categories/fashion?sort=popular",
		m.listingURL("", ""))
}

func TestCampfireListingURL(t *testing.T) {
	c := newCampfire(testSite(t, &mockRenderer{}))
	u := c.listingURL("food", "ラーメン")
	assert.Contains(t, u, "camp-fire.jp/projects?")
	assert.Contains(t, u, "category=food")
	assert.Contains(t, u, "keyword=")
}

func TestGreenfundingListingURL(t *testing.T) {
	gf := newGreenFunding(testSite(t, &mockRenderer{}))
	assert.Equal(t,
		"https://greenfunding.jp/portals/search?category_id=45",
		gf.listingURL("audio", ""))
	assert.Equal(t,
		"https://greenfunding.jp/portals/search?category_id=45&q=speaker",
		gf.listingURL("audio", "speaker"))
	assert.Equal(t,
		"https://greenfunding.jp/portals/search?q=speaker",
		gf.listingURL("", "speaker"))
}

func TestIndiegogoExploreSlug(t *testing.T) {
	g := newIndiegogo(testSite(t, &mockRenderer{}))
	assert.Equal(t, "audio", g.exploreSlug("audio", ""))
	assert.Equal(t, "audio", g.exploreSlug("", "speaker"))
	assert.Equal(t, "transportation", g.exploreSlug("", "ebike"))
	assert.Equal(t, "all", g.exploreSlug("", "xyzzy"))
}
