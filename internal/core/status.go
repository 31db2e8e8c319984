package core

import "sort"

// FallbackCategory absorbs records whose category was never set.
const FallbackCategory = "Lainnya"

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// CategoryShare is a category's slice of the total, for external charting.
type CategoryShare struct {
	Name    string  `json:"name"`
	Amount  Money   `json:"amount"`
	Percent float64 `json:"percent"`
}

// CategoryStatus classifies one category's spend against its budget.
type CategoryStatus int

const (
	CategoryOK CategoryStatus = iota
	CategoryNear
	CategoryOver
)

// OverallStatus is the single dominant state for user feedback, derived in
// strict priority order (first match wins).
type OverallStatus int

const (
	StatusNormal OverallStatus = iota
	StatusLowBalance
	StatusCategoryNear
	StatusCategoryOver
	StatusCritical
)

func (s OverallStatus) String() string {
	switch s {
	case StatusCritical:
		return "critical"
	case StatusCategoryOver:
		return "category_over"
	case StatusCategoryNear:
		return "category_near"
	case StatusLowBalance:
		return "low_balance"
	default:
		return "normal"
	}
}

// TotalSpent sums the amounts of a list. Missing amounts are zero by
// construction (ParseAmount), so the sum is total and order-independent.
func TotalSpent(list []Expense) Money {
	var total Money
	for _, e := range list {
		total += e.Amount
	}
	return total
}

// Balance is what remains of the budget after the listed spend.
func Balance(budget Money, list []Expense) Money {
	return budget - TotalSpent(list)
}

// SpendByCategory sums amounts per category, routing unset categories to
// the fallback bucket.
func SpendByCategory(list []Expense) map[string]Money {
	totals := make(map[string]Money)
	for _, e := range list {
		cat := e.Category
		if cat == "" {
			cat = FallbackCategory
		}
		totals[cat] += e.Amount
	}
	return totals
}

// ClassifyCategory grades spend against a category budget. The second
// return is false when the budget is zero: "no target set" is never
// classified. Near means spent is within the top 20% of the budget,
// boundary values included on both sides.
func ClassifyCategory(spent, budget Money) (CategoryStatus, bool) {
	if budget <= 0 {
		return CategoryOK, false
	}
	switch {
	case spent > budget:
		return CategoryOver, true
	case 5*spent >= 4*budget:
		return CategoryNear, true
	default:
		return CategoryOK, true
	}
}

// Overall derives the dominant status. tracked lists the category names to
// inspect (the visible budget cards for the active bucket, every budgeted
// key for an archive); spend comes from SpendByCategory. Priority order:
// total overspend, any category over, any category near, low balance.
func Overall(budget Money, catBudgets map[string]Money, tracked []string, spend map[string]Money) OverallStatus {
	total := Money(0)
	for _, v := range spend {
		total += v
	}
	if total > budget {
		return StatusCritical
	}
	anyNear := false
	for _, cat := range tracked {
		st, ok := ClassifyCategory(spend[cat], catBudgets[cat])
		if !ok {
			continue
		}
		if st == CategoryOver {
			return StatusCategoryOver
		}
		if st == CategoryNear {
			anyNear = true
		}
	}
	if anyNear {
		return StatusCategoryNear
	}
	// Low-balance caution is judged on the overall budget alone, on
	// purpose: it can disagree with comfortable per-category numbers.
	if budget > 0 && 5*(budget-total) < budget {
		return StatusLowBalance
	}
	return StatusNormal
}

// Shares computes per-category portions of the total spend, largest first.
// Zero-amount records contribute nothing; an empty list yields nil.
func Shares(list []Expense) []CategoryShare {
	totals := make(map[string]Money)
	var total Money
	for _, e := range list {
		if e.Amount <= 0 {
			continue
		}
		cat := e.Category
		if cat == "" {
			cat = FallbackCategory
		}
		totals[cat] += e.Amount
		total += e.Amount
	}
	if total == 0 {
		return nil
	}
	out := make([]CategoryShare, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryShare{
			Name:    name,
			Amount:  amount,
			Percent: float64(amount) / float64(total) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
