package extract

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailylance/crowdscrape/internal/render"
)

func doc(t *testing.T, html string) *render.Document {
	t.Helper()
	d, err := render.NewDocument("https://x.test/p/1", []byte(html), 200, http.Header{})
	require.NoError(t, err)
	return d
}

func TestFirstOfStopsAtFirstHit(t *testing.T) {
	d := doc(t, `<html><h1 class="b">Second</h1><h2>Third</h2></html>`)
	got := FirstOf(d,
		Selector("h1.missing"),
		Selector("h1.b"),
		Selector("h2"),
	)
	assert.Equal(t, "Second", got)
}

func TestFirstOfEmptyWhenAllMiss(t *testing.T) {
	d := doc(t, `<html><p>nothing here</p></html>`)
	assert.Equal(t, "", FirstOf(d, Selector(".a"), Selector(".b")))
}

func TestSelectorAttrAndMeta(t *testing.T) {
	d := doc(t, `<html><head><meta property="og:image" content="https://cdn.test/a.jpg"></head>
		<body><a class="owner" href="https://maker.test">Maker</a></body></html>`)
	assert.Equal(t, "https://maker.test", SelectorAttr("a.owner", "href")(d))
	assert.Equal(t, "https://cdn.test/a.jpg", Meta("og:image")(d))
}

func TestRegexStrategy(t *testing.T) {
	d := doc(t, `<html><body>1,234 backers pledged $56,789 of $50,000</body></html>`)
	assert.Equal(t, "1,234", Regex(BackersPattern, 1)(d))
	assert.Equal(t, "$50,000", Regex(GoalPattern, 1)(d))
}

func TestEmbeddedJSON(t *testing.T) {
	d := doc(t, `<html><script>
		window.gon = {"project": {"title": "Solar Lantern", "collected_money": 320000, "nested": {"deep": "yes"}}, "blocked": false};
	</script></html>`)

	assert.Equal(t, "Solar Lantern", EmbeddedJSON("window.gon", "project", "title")(d))
	assert.Equal(t, "320000", EmbeddedJSON("window.gon", "project", "collected_money")(d))
	assert.Equal(t, "yes", EmbeddedJSON("window.gon", "project", "nested", "deep")(d))
	assert.Equal(t, "", EmbeddedJSON("window.gon", "project", "missing")(d))
	assert.Equal(t, "", EmbeddedJSON("window.other", "project")(d))
}

func TestEmbeddedJSONBracesInsideStrings(t *testing.T) {
	d := doc(t, `<html><script>
		var state = {"title": "Brace {not} a problem", "note": "escaped \" quote"};
	</script></html>`)
	assert.Equal(t, "Brace {not} a problem", EmbeddedJSON("var state", "title")(d))
}

func TestPatterns(t *testing.T) {
	assert.Equal(t, "¥1,200,000", FirstAmount("raised ¥1,200,000 so far"))
	assert.Equal(t, "320,000円", FirstAmount("現在 320,000円"))
	assert.Equal(t, "NT$25,000", FirstAmount("pledged NT$25,000"))
	assert.Equal(t, "", FirstAmount("no money here"))

	m := PercentPattern.FindStringSubmatch("達成率 1,234％")
	require.NotNil(t, m)
	assert.Equal(t, "1,234", m[1])

	m = BackersPattern.FindStringSubmatch("523人が支援")
	require.NotNil(t, m)
	assert.Equal(t, "523", m[1])

	m = DateRangePattern.FindStringSubmatch("期間: 2024/01/15 〜 2024/02/28")
	require.NotNil(t, m)
	assert.Equal(t, "2024/01/15", m[1])
	assert.Equal(t, "2024/02/28", m[2])
}

func TestRegexGroupOutOfRange(t *testing.T) {
	d := doc(t, `<html>100%</html>`)
	assert.Equal(t, "", Regex(regexp.MustCompile(`(\d+)%`), 5)(d))
}
