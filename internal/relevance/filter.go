// Package relevance decides whether an extracted campaign matches a user's
// search intent. Sites return loosely-categorized listings, so the filter
// layers exact, URL and semantic matching rather than trusting any single
// signal.
package relevance

import (
	"strings"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/taxonomy"
)

// Filter is a pure keyword/category matcher over campaign records.
type Filter struct {
	tables *taxonomy.Tables
}

// New creates a Filter backed by the shared taxonomy tables.
func New(tables *taxonomy.Tables) *Filter {
	return &Filter{tables: tables}
}

// IsRelevant reports whether the record matches the keyword in the context
// of an optional category. It is a pure function of its inputs.
//
// Precedence, highest first:
//  1. Empty keyword: everything is relevant.
//  2. Exclusion clusters: a blacklisted phrase in the record text rejects,
//     unless the keyword itself appears verbatim in the title and the
//     blacklisted phrase does not.
//  3. Exact keyword substring in the combined text.
//  4. Keyword as a URL slug (spaces as "-" or removed).
//  5. Category on-topic gate: when the keyword belongs to the category's
//     synonym set, at least one synonym must appear in the text.
//  6. Any keyword word (>2 chars) or curated semantic equivalent in the text.
func (f *Filter) IsRelevant(rec *model.CampaignRecord, keyword, category string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}

	title := strings.ToLower(rec.Title)
	url := strings.ToLower(rec.URL)
	combined := strings.ToLower(strings.Join([]string{
		rec.Title, rec.OriginalTitle, rec.ProjectOwner, rec.Description, rec.URL,
	}, " "))

	words := strings.Fields(keyword)
	verbatimInTitle := strings.Contains(title, keyword)

	for _, word := range append([]string{keyword}, words...) {
		for _, banned := range f.tables.Blacklist(word) {
			if !strings.Contains(combined, banned) {
				continue
			}
			// A verbatim title match survives an exclusion hit elsewhere in
			// the text, but not one inside the title itself.
			if verbatimInTitle && !strings.Contains(title, banned) {
				continue
			}
			return false
		}
	}

	if strings.Contains(combined, keyword) {
		return true
	}

	if strings.Contains(url, strings.ReplaceAll(keyword, " ", "-")) ||
		strings.Contains(url, strings.ReplaceAll(keyword, " ", "")) {
		return true
	}

	if category != "" {
		if syns := f.tables.Synonyms(category); len(syns) > 0 && contains(syns, keyword) {
			for _, syn := range syns {
				if strings.Contains(combined, syn) {
					return true
				}
			}
			return false
		}
	}

	for _, word := range words {
		if len(word) > 2 && strings.Contains(combined, word) {
			return true
		}
	}
	for _, eq := range f.tables.Equivalents(keyword) {
		if strings.Contains(combined, eq) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
