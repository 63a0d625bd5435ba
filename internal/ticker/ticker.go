// Package ticker extracts canonical instrument codes from broker free text.
package ticker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"stockfolio/internal/reference"
)

// MinLength is the shortest accepted instrument code.
const MinLength = 4

// ErrInvalidTicker is returned when no usable code can be extracted.
var ErrInvalidTicker = errors.New("invalid ticker")

// Canonicalize turns text like "FIQE3 - UNIFIQUE TELECOM S.A." into "FIQE3".
//
// Fractional-lot listings ("PETR4F") map to the round-lot code since both
// refer to the same underlying instrument.
func Canonicalize(text string) (string, error) {
	head, _, _ := strings.Cut(text, " - ")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty text", ErrInvalidTicker)
	}

	var b strings.Builder
	for _, r := range fields[0] {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	code := b.String()

	if strings.HasSuffix(code, "F") && !strings.HasSuffix(code, "FF") && len(code)-1 >= MinLength {
		code = code[:len(code)-1]
	}
	if len(code) < MinLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, text)
	}
	return code, nil
}

// Asset types assigned to holdings.
const (
	AssetStock = "stock"
	AssetFII   = "fii"
	AssetBDR   = "bdr"
	AssetUnit  = "unit"
	AssetETF   = "etf"
)

// DetectAssetType classifies a canonical B3 code by its numeric suffix. The
// catalog, when it knows the ticker, has the final word since "11" is shared
// by real-estate funds, ETFs and units.
func DetectAssetType(code string, catalog reference.Catalog) string {
	if catalog != nil {
		if in, ok := catalog.Lookup(code); ok && in.AssetType != "" {
			return in.AssetType
		}
	}

	switch {
	case strings.HasSuffix(code, "11"):
		return AssetFII
	case hasAnySuffix(code, "32", "33", "34", "35", "39"):
		return AssetBDR
	default:
		return AssetStock
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
