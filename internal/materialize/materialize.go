// Package materialize turns enhanced campaign records into the bilingual
// result documents served by the API and written to disk: an English view
// and an original-language view, each with enhancement statistics.
package materialize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dailylance/crowdscrape/internal/model"
	"github.com/dailylance/crowdscrape/internal/taxonomy"
)

// Stats summarizes enhancement over one result set.
type Stats struct {
	Total           int    `json:"total"`
	EnhancedCount   int    `json:"enhanced_count"`
	ErrorCount      int    `json:"error_count"`
	EnhancementRate string `json:"enhancement_rate"`
}

// Output is a materialized result set.
type Output struct {
	Platform    string           `json:"platform"`
	Category    string           `json:"category"`
	Keyword     string           `json:"keyword"`
	Stats       Stats            `json:"stats"`
	English     []map[string]any `json:"english"`
	Original    []map[string]any `json:"original"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Materializer builds bilingual outputs from enhanced records.
type Materializer struct {
	tables *taxonomy.Tables
}

// New creates a Materializer.
func New(tables *taxonomy.Tables) *Materializer {
	return &Materializer{tables: tables}
}

// Materialize builds both language views and the stats envelope. Record
// order is preserved in both views.
func (m *Materializer) Materialize(records []model.EnhancedRecord, platform, category, keyword string) *Output {
	out := &Output{
		Platform:    platform,
		Category:    category,
		Keyword:     keyword,
		GeneratedAt: time.Now(),
	}

	englishPlatform := m.tables.IsEnglishPlatform(platform)
	for _, rec := range records {
		out.English = append(out.English, m.englishView(rec, englishPlatform))
		out.Original = append(out.Original, m.originalView(rec, platform, englishPlatform))

		if rec.OCREnhanced {
			out.Stats.EnhancedCount++
		} else if rec.OCRError != "" {
			out.Stats.ErrorCount++
		}
	}

	out.Stats.Total = len(records)
	out.Stats.EnhancementRate = enhancementRate(out.Stats.EnhancedCount, len(records))
	return out
}

// enhancementRate formats enhanced/total as a percentage string. An empty
// set rates "0%", everything else gets two decimals.
func enhancementRate(enhanced, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(enhanced)/float64(total)*100)
}

// englishView renders one record for English readers: the OCR English
// payload wins over scraped values, and Japanese-platform text gets the
// curated phrase substitution pass.
func (m *Materializer) englishView(rec model.EnhancedRecord, englishPlatform bool) map[string]any {
	doc := rec.Record.Display()

	if !englishPlatform {
		for _, field := range []string{"title", "description", "category"} {
			if s, ok := doc[field].(string); ok && s != "" {
				doc[field] = substitutePhrases(s)
			}
		}
	}

	for field, value := range rec.EnglishPayload {
		if value != "" {
			doc[field] = value
		}
	}

	if rec.OCREnhanced && len(rec.EnglishPayload) == 0 {
		doc["translation_note"] = "Enhanced via OCR; English field values are machine-assisted."
	}

	m.annotate(doc, rec)
	return doc
}

// originalView renders one record in the source language: the OCR original
// payload overlaid, English-platform text run through the curated phrase
// pass, then Japanese field labels and translated values.
func (m *Materializer) originalView(rec model.EnhancedRecord, platform string, englishPlatform bool) map[string]any {
	base := rec.Record.Display()

	for field, value := range rec.OriginalPayload {
		if value != "" {
			base[field] = value
		}
	}

	if englishPlatform {
		for _, field := range []string{"title", "description"} {
			if s, ok := base[field].(string); ok && s != "" {
				base[field] = substituteEnglishPhrases(s)
			}
		}
	}

	currency := m.tables.Currency(platform)
	for _, field := range []string{"amount", "support_amount"} {
		if s, ok := base[field].(string); ok && s != "" && !hasCurrencySymbol(s) {
			base[field] = currency + s
		}
	}

	m.annotate(base, rec)

	doc := make(map[string]any, len(base))
	for field, value := range base {
		label := fieldLabelsJA[field]
		if label == "" {
			label = field
		}
		if s, ok := value.(string); ok && englishPlatform {
			if translated, found := valueTranslationsJA[s]; found {
				value = translated
			}
		}
		doc[label] = value
	}
	return doc
}

// annotate adds enhancement provenance to a view.
func (m *Materializer) annotate(doc map[string]any, rec model.EnhancedRecord) {
	doc["ocr_enhanced"] = rec.OCREnhanced
	if rec.OCRError != "" {
		doc["ocr_error"] = rec.OCRError
	}
	if rec.OCREnhanced {
		doc["confidence_scores"] = rec.ConfidenceScores
		doc["images_processed"] = rec.ImagesProcessed
		doc["enhancement_timestamp"] = rec.EnhancedAt.Format(time.RFC3339)
	}
}

func hasCurrencySymbol(s string) bool {
	return strings.ContainsAny(s, "$¥₩£€円")
}

var phraseOrder = sortedPhrases()

// sortedPhrases orders substitution keys longest-first so compound phrases
// win over their prefixes (音楽フェス before 音楽).
func sortedPhrases() []string {
	keys := make([]string, 0, len(phrasesJPToEN))
	for jp := range phrasesJPToEN {
		keys = append(keys, jp)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// substitutePhrases replaces known Japanese words with English equivalents,
// leaving unknown text (product names, model numbers) untouched.
func substitutePhrases(s string) string {
	for _, jp := range phraseOrder {
		s = strings.ReplaceAll(s, jp, phrasesJPToEN[jp])
	}
	return s
}

// englishPhrase pairs a compiled word-boundary pattern with its Japanese
// replacement.
type englishPhrase struct {
	re *regexp.Regexp
	ja string
}

var englishPhraseOrder = compileEnglishPhrases()

// compileEnglishPhrases turns the EN→JA table into case-insensitive
// word-bounded patterns, ordered longest-first so compound phrases win over
// their parts ("Music Festival" before "Music").
func compileEnglishPhrases() []englishPhrase {
	keys := make([]string, 0, len(phrasesENToJA))
	for en := range phrasesENToJA {
		keys = append(keys, en)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	phrases := make([]englishPhrase, len(keys))
	for i, en := range keys {
		phrases[i] = englishPhrase{
			re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(en) + `\b`),
			ja: phrasesENToJA[en],
		}
	}
	return phrases
}

// substituteEnglishPhrases replaces known English words and phrases with
// Japanese equivalents on word boundaries, so "Art" never fires inside
// "Smart".
func substituteEnglishPhrases(s string) string {
	for _, p := range englishPhraseOrder {
		s = p.re.ReplaceAllString(s, p.ja)
	}
	return s
}
