package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/taxonomy"
)

func newFilter(t *testing.T) *Filter {
	t.Helper()
	tables, err := taxonomy.Load()
	require.NoError(t, err)
	return New(tables)
}

func rec(title, description, url string) *model.CampaignRecord {
	return &model.CampaignRecord{Title: title, Description: description, URL: url}
}

func TestEmptyKeywordPassesThrough(t *testing.T) {
	f := newFilter(t)
	assert.True(t, f.IsRelevant(rec("Anything", "", "https://x.test/p/1"), "", "tech"))
}

func TestExactSubstringMatch(t *testing.T) {
	f := newFilter(t)
	r := rec("The Ultimate Smart Speaker", "wireless audio", "https://x.test/projects/a")
	assert.True(t, f.IsRelevant(r, "smart speaker", ""))
}

func TestURLSlugMatch(t *testing.T) {
	f := newFilter(t)
	r := rec("無題", "", "https://x.test/projects/board-game-nights")
	assert.True(t, f.IsRelevant(r, "board game", ""))

	r = rec("無題", "", "https://x.test/projects/boardgame-2")
	assert.True(t, f.IsRelevant(r, "board game", ""))
}

func TestSemanticEquivalentMatch(t *testing.T) {
	f := newFilter(t)
	r := rec("Studio Headphone Pro", "reference sound", "https://x.test/projects/shp")
	assert.True(t, f.IsRelevant(r, "audio", ""))
}

func TestShortWordsIgnoredInFallback(t *testing.T) {
	f := newFilter(t)
	r := rec("Travel Mug", "keeps coffee hot", "https://x.test/projects/mug")
	assert.False(t, f.IsRelevant(r, "an rv kit", ""))
}

func TestExclusionRejectsNonExactMatch(t *testing.T) {
	f := newFilter(t)
	// Matches "audio" only semantically (via "speaker"), but carries a
	// blacklisted battery term: rejected.
	r := rec("BLUETTI Speaker Dock", "portable power station with speaker", "https://x.test/projects/b")
	assert.False(t, f.IsRelevant(r, "audio", ""))
}

func TestVerbatimTitleMatchSurvivesExclusionElsewhere(t *testing.T) {
	f := newFilter(t)
	// Keyword appears verbatim in the title; the blacklisted phrase only
	// appears in the description, so the record is kept.
	r := rec("Ebike City Cruiser", "charges from any power station", "https://x.test/projects/c")
	assert.True(t, f.IsRelevant(r, "ebike", ""))

	// Blacklisted phrase inside the title still rejects.
	r = rec("Ebike Power Station Combo", "", "https://x.test/projects/d")
	assert.False(t, f.IsRelevant(r, "ebike", ""))
}

func TestCategoryOnTopicGate(t *testing.T) {
	f := newFilter(t)
	// "sound" is in the audio synonym set, and a synonym appears in text.
	r := rec("Pocket Microphone", "", "https://x.test/projects/mic")
	assert.True(t, f.IsRelevant(r, "sound", "audio"))

	// On-topic keyword but no synonym anywhere: rejected by the gate.
	r = rec("Ceramic Mug", "handmade pottery", "https://x.test/projects/mug2")
	assert.False(t, f.IsRelevant(r, "sound", "audio"))
}

func TestIsRelevantIsPure(t *testing.T) {
	f := newFilter(t)
	r := rec("Smart Speaker", "audio device", "https://x.test/projects/s")
	first := f.IsRelevant(r, "speaker", "audio")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, f.IsRelevant(r, "speaker", "audio"))
	}
}
