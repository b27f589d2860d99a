// Package taxonomy holds the shared search-semantics tables: category
// synonym sets, exclusion clusters and per-platform currency/language
// metadata. The tables are data-driven (embedded YAML) and loaded once.
package taxonomy

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// Tables is the parsed taxonomy.
type Tables struct {
	Categories map[string][]string `yaml:"categories"`
	Exclusions []ExclusionCluster  `yaml:"exclusions"`
	Currencies map[string]string   `yaml:"currencies"`
	Languages  map[string]string   `yaml:"languages"`
}

// ExclusionCluster rejects records containing a blacklisted phrase when the
// search term belongs to the trigger set.
type ExclusionCluster struct {
	Triggers  []string `yaml:"triggers"`
	Blacklist []string `yaml:"blacklist"`
}

var (
	loadOnce sync.Once
	loaded   *Tables
	loadErr  error
)

// Load parses the embedded tables. Safe for concurrent use; parsing happens
// once per process.
func Load() (*Tables, error) {
	loadOnce.Do(func() {
		var t Tables
		if err := yaml.Unmarshal(tablesYAML, &t); err != nil {
			loadErr = eris.Wrap(err, "taxonomy: parse tables")
			return
		}
		loaded = &t
	})
	return loaded, loadErr
}

// Synonyms returns the synonym set for a category key, or nil when the
// category is not a known key.
func (t *Tables) Synonyms(category string) []string {
	return t.Categories[strings.ToLower(category)]
}

// Equivalents returns the semantic-equivalence set for an exact keyword
// phrase. The category table doubles as the equivalence table: both map a
// term to the curated words that mean the same thing to a searcher.
func (t *Tables) Equivalents(keyword string) []string {
	return t.Categories[strings.ToLower(keyword)]
}

// Blacklist returns the exclusion phrases triggered by the given search
// word, or nil when the word triggers no cluster.
func (t *Tables) Blacklist(word string) []string {
	word = strings.ToLower(word)
	for _, c := range t.Exclusions {
		for _, trig := range c.Triggers {
			if trig == word {
				return c.Blacklist
			}
		}
	}
	return nil
}

// Currency returns the display currency symbol for a platform id,
// defaulting to "$".
func (t *Tables) Currency(platform string) string {
	if sym, ok := t.Currencies[strings.ToLower(platform)]; ok {
		return sym
	}
	return "$"
}

// Language returns the source language of a platform ("english",
// "japanese", "korean"), defaulting to "english".
func (t *Tables) Language(platform string) string {
	if lang, ok := t.Languages[strings.ToLower(platform)]; ok {
		return lang
	}
	return "english"
}

// IsEnglishPlatform reports whether the platform publishes in English.
func (t *Tables) IsEnglishPlatform(platform string) bool {
	return t.Language(platform) == "english"
}
