// Package extract provides composable field-extraction strategies over a
// rendered document. Each platform adapter declares a cascade of strategies
// per field; the first one to produce a non-empty value wins. Strategies are
// pure functions of the document, so a cascade is cheap to test in isolation.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dailylance/crowdscrape/internal/render"
)

// Strategy extracts a single field from a document. An empty string means
// the strategy did not find the field; the cascade moves on.
type Strategy func(doc *render.Document) string

// FirstOf runs strategies in order and returns the first non-empty result.
func FirstOf(doc *render.Document, strategies ...Strategy) string {
	for _, s := range strategies {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return ""
}

// Selector returns the trimmed text of the first element matching a CSS
// selector.
func Selector(selector string) Strategy {
	return func(doc *render.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// SelectorAttr returns an attribute of the first element matching a CSS
// selector.
func SelectorAttr(selector, attr string) Strategy {
	return func(doc *render.Document) string {
		v, _ := doc.Find(selector).First().Attr(attr)
		return strings.TrimSpace(v)
	}
}

// Meta returns the content of a <meta> tag by property or name.
func Meta(key string) Strategy {
	return func(doc *render.Document) string {
		return doc.Meta(key)
	}
}

// Regex applies a pattern to the raw page body and returns the given capture
// group of the first match.
func Regex(re *regexp.Regexp, group int) Strategy {
	return func(doc *render.Document) string {
		m := re.FindSubmatch(doc.Body())
		if m == nil || group >= len(m) {
			return ""
		}
		return strings.TrimSpace(string(m[group]))
	}
}

// Literal always returns the given value. Useful as the tail of a cascade.
func Literal(v string) Strategy {
	return func(*render.Document) string { return v }
}

// EmbeddedJSON pulls a value out of a JSON object assigned to a script-level
// variable, e.g. `window.gon = {...}` or `gon.project = {...}`. The object is
// located by brace balancing from the first `{` after the assignment, then
// decoded and walked along the given path. Leaf values may be strings or
// numbers; anything else yields "".
func EmbeddedJSON(varName string, path ...string) Strategy {
	assign := regexp.MustCompile(regexp.QuoteMeta(varName) + `\s*=\s*`)
	return func(doc *render.Document) string {
		var out string
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := sel.Text()
			loc := assign.FindStringIndex(text)
			if loc == nil {
				return true
			}
			raw := balancedObject(text[loc[1]:])
			if raw == "" {
				return true
			}
			var obj map[string]any
			if err := json.Unmarshal([]byte(raw), &obj); err != nil {
				return true
			}
			out = walkPath(obj, path)
			return out == ""
		})
		return out
	}
}

// balancedObject returns the JSON object starting at the first '{' in s,
// tracking string literals and escapes so braces inside strings do not
// unbalance the scan.
func balancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func walkPath(obj map[string]any, path []string) string {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return trimFloat(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func trimFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
