package core

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultQty and DefaultUnit fill quantity fields when nothing usable can
// be extracted from the input.
const (
	DefaultQty  = 1.0
	DefaultUnit = "-"
)

// CategoryUnits suggests a unit when a row is created under a known
// category.
var CategoryUnits = map[string]string{
	"Kebutuhan Bulanan":  "pcs",
	"Kebutuhan Mingguan": "pcs/kg",
	"Buah":               "kg",
	"Snack":              "pcs",
	"Tagihan":            "-",
	"Skincare":           "pcs",
	"Kesehatan":          "pcs",
	"Sedekah":            "-",
	"Transportasi":       "kali",
	"Lainnya":            "-",
	"Refill Galon":       "galon",
	"Galon":              "galon",
}

// UnitFor returns the suggested unit for a category, or the placeholder.
func UnitFor(category string) string {
	if u, ok := CategoryUnits[category]; ok {
		return u
	}
	return DefaultUnit
}

// itemQtyRe matches a trailing "<qty> <unit>" suffix on an item
// description, e.g. "beras 2,5 kg". The unit vocabulary is closed so that
// ordinary trailing words are not eaten.
var itemQtyRe = regexp.MustCompile(`(?i)(.*)\s+(\d+[\.,]?\d*)\s*(kg|g|gr|gram|liter|l|ml|pcs|buah|bks|bungkus|pak|kotak|dus|sak|ons|porsi|mangkok|gelas|cup|btl|botol|lusin|kodi|ikat|butir|galon|ekor)$`)

// qtyPrefixRe matches a leading numeric quantity with an optional trailing
// unit token, e.g. "2 kg", "1,5", "3pcs", as found in imported Qty cells.
var qtyPrefixRe = regexp.MustCompile(`^([\d\.,]+)\s*(.*)$`)

// ExtractItemQuantity splits a trailing quantity+unit off an item
// description. When the text does not match, ok is false and the caller
// must leave its fields unchanged (the failure mode is "no match", never
// an error).
func ExtractItemQuantity(text string) (item string, qty float64, unit string, ok bool) {
	m := itemQtyRe.FindStringSubmatch(text)
	if m == nil {
		return text, 0, "", false
	}
	q, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
	if err != nil {
		return text, 0, "", false
	}
	return strings.TrimSpace(m[1]), q, strings.ToLower(m[3]), true
}

// GuessUnit infers a unit from keywords in the item name. Returns "" when
// nothing is recognized.
func GuessUnit(item string) string {
	lower := strings.ToLower(item)
	switch {
	case strings.Contains(lower, "galon"):
		return "galon"
	case strings.Contains(lower, "mi"), strings.Contains(lower, "nasi"):
		return "porsi"
	}
	return ""
}

// SplitQuantity parses a combined quantity/unit cell ("2 kg", "1,5",
// "3 pcs"). Unmatchable input falls back to the defaults.
func SplitQuantity(s string) (qty float64, unit string) {
	qty, unit = DefaultQty, DefaultUnit
	m := qtyPrefixRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return qty, unit
	}
	if q, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil && q > 0 {
		qty = q
	}
	if rest := strings.TrimSpace(m[2]); rest != "" {
		unit = rest
	}
	return qty, unit
}
