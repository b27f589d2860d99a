package extract

import "regexp"

// Shared extraction patterns. Each platform-specific page varies in markup
// but the funding vocabulary is stable enough that a handful of regexes
// cover the long tail when selectors come up empty.
var (
	// AmountPattern matches a currency amount with its symbol, e.g.
	// "$12,345", "US$ 5,000", "¥1,200,000", "₩3,000,000", "NT$25,000".
	AmountPattern = regexp.MustCompile(`(?:NT\$|HK\$|US\$|A\$|C\$|[$¥₩£€])\s?[\d,]+(?:\.\d+)?`)

	// YenAmountPattern matches Japanese-style amounts with a trailing 円.
	YenAmountPattern = regexp.MustCompile(`[\d,]+\s*円`)

	// PercentPattern matches achievement rates like "1,234%" or "120.5%".
	PercentPattern = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*[%％]`)

	// BackersPattern matches supporter counts in English and Japanese,
	// e.g. "1,234 backers", "567 supporters", "523人".
	BackersPattern = regexp.MustCompile(`([\d,]+)\s*(?:backers?|supporters?|人)`)

	// GoalPattern matches "of $10,000", "of the ¥500,000 goal", "pledged of
	// US$ 25,000" style goal phrasings; group 1 is the amount with symbol.
	GoalPattern = regexp.MustCompile(`(?:of|goal(?:\s+of)?)\s+(?:the\s+)?((?:NT\$|HK\$|US\$|[$¥₩£€])\s?[\d,]+(?:\.\d+)?)`)

	// DeadlinePattern matches remaining-time phrasings used to derive the
	// campaign end, e.g. "21 days to go", "残り12日".
	DeadlinePattern = regexp.MustCompile(`(\d+)\s*(?:days?\s+to\s+go|days?\s+left)|残り\s*(\d+)\s*日`)

	// DateRangePattern matches "2024/01/15 - 2024/02/28" style campaign
	// period lines found on Japanese platforms.
	DateRangePattern = regexp.MustCompile(`(\d{4}[/.-]\d{1,2}[/.-]\d{1,2})\s*[-〜~]\s*(\d{4}[/.-]\d{1,2}[/.-]\d{1,2})`)
)

// FirstAmount scans text for the first currency amount in either western or
// yen-suffix notation.
func FirstAmount(text string) string {
	if m := AmountPattern.FindString(text); m != "" {
		return m
	}
	return YenAmountPattern.FindString(text)
}
