package model

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// Money is a typed currency value. Campaign pages present amounts as
// locale-formatted display strings; those are parsed into Money as early as
// possible and rendered back to strings only at the materialization boundary.
type Money struct {
	Amount int64
	Symbol string
}

// Multi-rune symbols must be matched before their single-rune prefixes.
var currencySymbols = []string{"NT$", "HK$", "US$", "$", "¥", "₩", "£", "€"}

var (
	moneyDigitsRe = regexp.MustCompile(`[0-9][0-9,]*`)
	groupedRe     = regexp.MustCompile(`(\d)(?:(\d{3})+$)`)
)

// ParseMoney extracts a currency value from a display string such as
// "$45,000", "¥1,234,567 円" or "目標金額 ３２０，０００円". Full-width digits
// and separators are folded to ASCII first. When the string carries no
// recognizable symbol, defaultSymbol is used.
func ParseMoney(s, defaultSymbol string) Money {
	s = width.Narrow.String(strings.TrimSpace(s))
	if s == "" {
		return Money{Symbol: defaultSymbol}
	}

	symbol := defaultSymbol
	for _, sym := range currencySymbols {
		if strings.Contains(s, sym) {
			symbol = sym
			break
		}
	}
	if strings.Contains(s, "円") && symbol == defaultSymbol {
		symbol = "¥"
	}

	digits := moneyDigitsRe.FindString(s)
	if digits == "" {
		return Money{Symbol: symbol}
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
	if err != nil {
		return Money{Symbol: symbol}
	}
	return Money{Amount: n, Symbol: symbol}
}

func (m Money) IsZero() bool { return m.Amount == 0 }

// String renders the amount with thousands separators and its currency
// symbol, e.g. "$45,000". Zero amounts render as the empty string so missing
// fields stay recognizably missing for the enhancement pipeline.
func (m Money) String() string {
	if m.Amount == 0 {
		return ""
	}
	return m.Symbol + groupDigits(m.Amount)
}

// WithSymbol returns a copy carrying the given currency symbol.
func (m Money) WithSymbol(symbol string) Money {
	m.Symbol = symbol
	return m
}

func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Percent is an achievement rate in percent units (120 means 120%).
type Percent float64

var percentRe = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*%`)

// ParsePercent extracts a percentage from strings like "120%", "達成率 1,204％"
// or "120% funded". Returns 0 when no percentage is present.
func ParsePercent(s string) Percent {
	s = width.Narrow.String(s)
	m := percentRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return Percent(f)
}

func (p Percent) IsZero() bool { return p == 0 }

// String renders as an integral percentage ("120%"), the display convention
// every target site uses. Zero renders empty.
func (p Percent) String() string {
	if p == 0 {
		return ""
	}
	return strconv.FormatInt(int64(p+0.5), 10) + "%"
}

var countRe = regexp.MustCompile(`[0-9][0-9,]*`)

// ParseCount extracts a supporter/backer count from strings like
// "1,234 backers", "523人" or "サポーター 1,234". Returns 0 when absent.
func ParseCount(s string) int {
	s = width.Narrow.String(s)
	digits := countRe.FindString(s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
