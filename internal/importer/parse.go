package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
)

// ErrInvalidNumber is returned by ParseDecimal for unparseable text.
var ErrInvalidNumber = errors.New("invalid number")

var currencySymbols = []string{"R$", "US$", "$", "€", "£"}

// ParseDecimal parses a locale-formatted number such as "R$ 1.234,56",
// "1,234.56", "10,5" or "(3,20)".
//
// When both ',' and '.' appear the one occurring last is the decimal
// separator. A lone comma is always the decimal separator; a comma or period
// repeated on its own is a thousands separator.
func ParseDecimal(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "2006/01/02"}

// ParseDate parses an acquisition date using DateLayouts. A trailing time
// component ("2024-01-15 00:00:00") is ignored. ok is false when no layout
// matched, which callers treat as an unknown date rather than an error.
func ParseDate(s string) (d date.Date, ok bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return date.Date{}, false
	}
	s = fields[0]
	if i := strings.IndexByte(s, 'T'); i == len("2006-01-02") {
		s = s[:i]
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return date.FromTime(t), true
		}
	}
	return date.Date{}, false
}
