package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// MonthKey identifies a calendar month as "YYYY-MM". Keys compare
	// chronologically with plain string ordering.
	MonthKey string

	// Date is a calendar day. The time-of-day component is always
	// normalized to midnight UTC so comparisons work on year/month/day
	// only, regardless of how the value was parsed.
	Date struct {
		time.Time
	}

	// Expense is one spending record. The ID is unique within its bucket
	// (the active bucket or a single archive), not globally.
	Expense struct {
		ID             int64   `json:"id"`
		Date           Date    `json:"date"`
		Item           string  `json:"item"`
		Category       string  `json:"category"`
		Amount         Money   `json:"amount"`
		Qty            float64 `json:"qty"`
		Unit           string  `json:"unit"`
		CustomCategory bool    `json:"custom_category,omitempty"`
	}
)

var ErrInvalidMonthKey = errors.New("invalid month key")

// NewDate creates a Date from year, month, day. Out-of-range months roll
// into adjacent years, which is what the period math relies on.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses "YYYY-MM-DD". Inputs carrying a time suffix (RFC 3339
// artifacts from spreadsheets or old persisted state) are truncated first.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// MonthKey returns the "YYYY-MM" key of the date's calendar month.
func (d Date) MonthKey() MonthKey {
	if d.IsZero() {
		return ""
	}
	return MonthKey(d.Format("2006-01"))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// UnmarshalJSON decodes "YYYY-MM-DD". Missing or unparseable values yield
// the zero date instead of an error: a corrupt date excludes the record
// from period filtering but must never fail a whole state load.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

// ParseMonthKey validates a "YYYY-MM" string.
func ParseMonthKey(s string) (MonthKey, error) {
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", ErrInvalidMonthKey
	}
	return MonthKey(s), nil
}

// MonthKeyOf returns the month key for an instant.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// Label renders the month key as a human label ("January 2025"). Malformed
// keys fall back to the raw string rather than failing.
func (k MonthKey) Label() string {
	t, err := time.Parse("2006-01", string(k))
	if err != nil {
		return string(k)
	}
	return t.Format("January 2006")
}

func (k MonthKey) IsZero() bool { return k == "" }
