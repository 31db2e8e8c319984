// Package ledger owns the mutable application state of the expense engine:
// the active bucket, the archive store, the rollover state machine, and the
// import reconciler. Every mutation goes through the Tracker, which applies
// it under one lock and persists write-through before returning.
package ledger

import (
	"sort"

	"moomoney/internal/core"
)

// DefaultCategories seeds the category list on first run.
var DefaultCategories = []string{
	"Kebutuhan Bulanan", "Kebutuhan Mingguan", "Buah", "Snack", "Tagihan",
	"Skincare", "Kesehatan", "Sedekah", "Transportasi", "Lainnya",
}

// DefaultBudget seeds the overall budget on first run.
const DefaultBudget = core.Money(2000000)

// ActiveBucket is the live, non-archived working set. LastActiveMonth marks
// which calendar month the bucket represents; divergence from the current
// month key is what triggers a rollover.
type ActiveBucket struct {
	Budget            core.Money
	CategoryBudgets   map[string]core.Money
	VisibleBudgetCats []string
	Categories        []string
	Expenses          []core.Expense
	LastActiveMonth   core.MonthKey
}

// NewActiveBucket returns a bucket seeded with the first-run defaults for
// the given month.
func NewActiveBucket(month core.MonthKey) ActiveBucket {
	budgets := make(map[string]core.Money, len(DefaultCategories))
	for _, c := range DefaultCategories {
		budgets[c] = 0
	}
	return ActiveBucket{
		Budget:          DefaultBudget,
		CategoryBudgets: budgets,
		Categories:      append([]string(nil), DefaultCategories...),
		LastActiveMonth: month,
	}
}

// NextExpenseID allocates the next row ID for a list: max existing + 1.
// IDs are unique within their bucket only.
func NextExpenseID(list []core.Expense) int64 {
	var max int64
	for _, e := range list {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

// LatestDate returns the maximum date present in a list, or the zero date
// for an empty list. New rows default to it so consecutive entry stays on
// the day being recorded.
func LatestDate(list []core.Expense) core.Date {
	var max core.Date
	for _, e := range list {
		if e.Date.After(max) {
			max = e.Date
		}
	}
	return max
}

// SortByDateDesc returns a copy of the list ordered newest first. Rows
// sharing a date keep their relative order (new rows are prepended, so the
// most recent entry stays on top).
func SortByDateDesc(list []core.Expense) []core.Expense {
	out := append([]core.Expense(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// FilterByCategory narrows a list to one category; an empty filter returns
// the input unchanged.
func FilterByCategory(list []core.Expense, category string) []core.Expense {
	if category == "" {
		return list
	}
	out := make([]core.Expense, 0, len(list))
	for _, e := range list {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func copyExpenses(list []core.Expense) []core.Expense {
	return append([]core.Expense(nil), list...)
}

func copyBudgets(m map[string]core.Money) map[string]core.Money {
	out := make(map[string]core.Money, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
