package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2025-02-15", NewDate(2025, 2, 15), true},
		{" 2025-02-15 ", NewDate(2025, 2, 15), true},
		{"2025-02-15T10:30:00Z", NewDate(2025, 2, 15), true}, // time suffix truncated
		{"15/02/2025", Date{}, false},
		{"", Date{}, false},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && (err != nil || !got.Equal(tc.want.Time)) {
			t.Fatalf("case %d: ParseDate(%q) = %v, %v", i, tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d: expected error for %q", i, tc.in)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	e := Expense{ID: 1, Date: NewDate(2025, 3, 5), Item: "beras", Amount: 50000, Qty: 1, Unit: "kg"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Expense
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Date.Equal(e.Date.Time) || back.Amount != e.Amount {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestDateJSONCorruptIsZeroNotError(t *testing.T) {
	var e Expense
	// A corrupt date must not fail the load; the record just falls out of
	// period filtering.
	if err := json.Unmarshal([]byte(`{"id":1,"date":"not-a-date","amount":10}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !e.Date.IsZero() {
		t.Fatalf("corrupt date should decode to zero, got %v", e.Date)
	}
}

func TestMonthKey(t *testing.T) {
	if k := NewDate(2025, 2, 15).MonthKey(); k != "2025-02" {
		t.Fatalf("month key: %q", k)
	}
	if k := (Date{}).MonthKey(); k != "" {
		t.Fatalf("zero date month key: %q", k)
	}
	if _, err := ParseMonthKey("2025-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
	k, err := ParseMonthKey("2025-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if l := k.Label(); l != "February 2025" {
		t.Fatalf("label: %q", l)
	}
	// Month keys order chronologically as strings.
	if !("2024-12" < "2025-01" && "2025-01" < "2025-02") {
		t.Fatalf("month key string ordering broken")
	}
}
