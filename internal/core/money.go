// Package core provides the domain types and leaf parsing functions shared by
// ingestion, matching and aggregation.
//
// This file handles monetary amount parsing from ledger export cells, which
// arrive in Brazilian ("1.234,56") or US ("1,234.56") formatting, optionally
// with a currency symbol and accounting-negative notation.
package core

import (
	"strconv"
	"strings"
)

// ParseAmount converts a raw currency cell to a signed float.
//
// Handling, in order:
//   - currency symbols ("R$", "$") and spaces are stripped
//   - "(1.234,56)" and "1.234,56-" are accounting negatives
//   - when both comma and dot appear, the rightmost one is the decimal
//     separator and the other is a thousands separator to remove
//   - a lone comma is treated as the decimal separator
//
// Unparsable or empty input yields 0.0. This is a deliberate lossy fallback:
// one garbled cell must never abort a batch of thousands, so callers that
// care count degraded cells instead of failing.
func ParseAmount(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[:len(s)-1])
	}

	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// Brazilian: dot groups thousands, comma is decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US: comma groups thousands
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -v
	}
	return v
}
