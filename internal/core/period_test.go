package core

import (
	"testing"
)

func TestActivePeriodBoundaries(t *testing.T) {
	cases := []struct {
		today     Date
		cutoff    int
		wantStart Date
		wantEnd   Date
	}{
		// On or after the cutoff: window starts this month.
		{NewDate(2025, 3, 15), 10, NewDate(2025, 3, 10), NewDate(2025, 4, 9)},
		{NewDate(2025, 3, 10), 10, NewDate(2025, 3, 10), NewDate(2025, 4, 9)},
		// Before the cutoff: window started last month.
		{NewDate(2025, 3, 5), 10, NewDate(2025, 2, 10), NewDate(2025, 3, 9)},
		// Year roll backward: January before the cutoff.
		{NewDate(2025, 1, 3), 10, NewDate(2024, 12, 10), NewDate(2025, 1, 9)},
		// Year roll forward: December on the cutoff.
		{NewDate(2024, 12, 25), 25, NewDate(2024, 12, 25), NewDate(2025, 1, 24)},
		// Cutoff 1 degenerates to the calendar month.
		{NewDate(2025, 2, 14), 1, NewDate(2025, 2, 1), NewDate(2025, 2, 28)},
		// Leap February with cutoff 1.
		{NewDate(2024, 2, 14), 1, NewDate(2024, 2, 1), NewDate(2024, 2, 29)},
		// Day 28 cutoff across leap February.
		{NewDate(2024, 2, 28), 28, NewDate(2024, 2, 28), NewDate(2024, 3, 27)},
		// Invalid cutoff values fall back to 1.
		{NewDate(2025, 6, 10), 0, NewDate(2025, 6, 1), NewDate(2025, 6, 30)},
		{NewDate(2025, 6, 10), 31, NewDate(2025, 6, 1), NewDate(2025, 6, 30)},
	}
	for i, tc := range cases {
		p := ActivePeriod(tc.today, tc.cutoff)
		if !p.Start.Equal(tc.wantStart.Time) || !p.End.Equal(tc.wantEnd.Time) {
			t.Fatalf("case %d: got [%s, %s], want [%s, %s]",
				i, p.Start, p.End, tc.wantStart, tc.wantEnd)
		}
		if !p.Contains(tc.today) {
			t.Fatalf("case %d: today %s outside its own period [%s, %s]",
				i, tc.today, p.Start, p.End)
		}
	}
}

func TestActivePeriodInvariants(t *testing.T) {
	// periodStart.day == cutoff and periodEnd is one day before the cutoff
	// in the following month, for every cutoff and a spread of dates.
	days := []Date{
		NewDate(2025, 1, 1), NewDate(2025, 1, 31), NewDate(2024, 2, 29),
		NewDate(2025, 6, 15), NewDate(2025, 12, 31), NewDate(2025, 7, 28),
	}
	for cutoff := MinCutoffDay; cutoff <= MaxCutoffDay; cutoff++ {
		for _, today := range days {
			p := ActivePeriod(today, cutoff)
			if p.Start.Day() != cutoff {
				t.Fatalf("cutoff %d, today %s: start day %d", cutoff, today, p.Start.Day())
			}
			next := DateOf(p.End.AddDate(0, 0, 1))
			if next.Day() != cutoff {
				t.Fatalf("cutoff %d, today %s: end %s not one day before cutoff", cutoff, today, p.End)
			}
			if !p.Contains(today) {
				t.Fatalf("cutoff %d: today %s not contained in [%s, %s]", cutoff, today, p.Start, p.End)
			}
		}
	}
}

func TestFilterByPeriod(t *testing.T) {
	p := Period{Start: NewDate(2025, 1, 10), End: NewDate(2025, 2, 9)}
	list := []Expense{
		{ID: 1, Date: NewDate(2025, 1, 9), Amount: 100},  // day before start
		{ID: 2, Date: NewDate(2025, 1, 10), Amount: 200}, // start boundary
		{ID: 3, Date: NewDate(2025, 1, 25), Amount: 300},
		{ID: 4, Date: NewDate(2025, 2, 9), Amount: 400},  // end boundary
		{ID: 5, Date: NewDate(2025, 2, 10), Amount: 500}, // day after end
		{ID: 6, Date: Date{}, Amount: 600},               // missing date
	}
	got := FilterByPeriod(list, p)
	wantIDs := []int64{2, 3, 4}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d records, want %d", len(got), len(wantIDs))
	}
	for i, e := range got {
		if e.ID != wantIDs[i] {
			t.Fatalf("record %d: id %d, want %d", i, e.ID, wantIDs[i])
		}
	}
	// Idempotent when reapplied.
	again := FilterByPeriod(got, p)
	if len(again) != len(got) {
		t.Fatalf("refilter changed size: %d -> %d", len(got), len(again))
	}
	// Total over the filtered list matches the members satisfying the
	// predicate, independent of order.
	if TotalSpent(got) != 900 {
		t.Fatalf("filtered total = %d, want 900", TotalSpent(got))
	}
}

func TestPeriodLabel(t *testing.T) {
	p := Period{Start: NewDate(2025, 1, 5), End: NewDate(2025, 2, 4)}
	if got := p.Label(); got != "5 Jan - 4 Feb 2025" {
		t.Fatalf("label: %q", got)
	}
	if got := (Period{}).Label(); got != "Active period" {
		t.Fatalf("zero-period label: %q", got)
	}
}
