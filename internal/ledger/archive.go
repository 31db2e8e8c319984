package ledger

import (
	"moomoney/internal/core"
)

// Archive is a snapshot of a past billing month. It is frozen at creation
// but may be edited in place afterwards; edits recompute the stored totals
// without moving the archive or changing its month key.
type Archive struct {
	ID              int64                 `json:"id"`
	Period          string                `json:"period"` // human label, e.g. "January 2025"
	ISODate         core.MonthKey         `json:"iso_date"`
	Budget          core.Money            `json:"budget"`
	CategoryBudgets map[string]core.Money `json:"category_budgets"`
	Expenses        []core.Expense        `json:"expenses"`
	TotalExpenses   core.Money            `json:"total_expenses"`
	Balance         core.Money            `json:"balance"`
}

// Recompute refreshes the derived totals from the expense list and budget.
func (a *Archive) Recompute() {
	a.TotalExpenses = core.TotalSpent(a.Expenses)
	a.Balance = a.Budget - a.TotalExpenses
}

// ArchivePatch names the fields an update replaces. Nil fields are left
// untouched; totals are recomputed only when expenses or budget change.
type ArchivePatch struct {
	Budget          *core.Money
	CategoryBudgets map[string]core.Money
	Expenses        []core.Expense
}

// ArchiveStore is the ordered collection of archives, most recent first.
// It is not safe for concurrent use on its own; the Tracker serializes
// access. All operations are synchronous and total: they either fully
// apply or report not-found, with no partial state observable.
type ArchiveStore struct {
	archives []Archive
	nextID   int64
}

// NewArchiveStore wraps an existing archive list (typically loaded from
// persisted state). The ID sequence resumes after the highest existing ID.
func NewArchiveStore(existing []Archive) *ArchiveStore {
	s := &ArchiveStore{archives: append([]Archive(nil), existing...), nextID: 1}
	for _, a := range s.archives {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return s
}

// Create assigns a fresh ID, fills the period label from the month key,
// recomputes totals, and prepends the archive (most recent first).
func (s *ArchiveStore) Create(a Archive) Archive {
	a.ID = s.nextID
	s.nextID++
	if a.Period == "" {
		a.Period = a.ISODate.Label()
	}
	if a.CategoryBudgets == nil {
		a.CategoryBudgets = map[string]core.Money{}
	}
	a.Recompute()
	s.archives = append([]Archive{a}, s.archives...)
	return a
}

// Get returns the archive with the given ID.
func (s *ArchiveStore) Get(id int64) (Archive, bool) {
	for _, a := range s.archives {
		if a.ID == id {
			return a, true
		}
	}
	return Archive{}, false
}

// FindByMonthKey returns the archive holding the keyed month, if any.
// Month keys are unique across the store; merges reuse the existing entry.
func (s *ArchiveStore) FindByMonthKey(key core.MonthKey) (Archive, bool) {
	for _, a := range s.archives {
		if a.ISODate == key {
			return a, true
		}
	}
	return Archive{}, false
}

// Merge concatenates new expenses onto an archive and recomputes totals.
func (s *ArchiveStore) Merge(id int64, rows []core.Expense) (Archive, bool) {
	for i := range s.archives {
		if s.archives[i].ID != id {
			continue
		}
		s.archives[i].Expenses = append(s.archives[i].Expenses, rows...)
		s.archives[i].Recompute()
		return s.archives[i], true
	}
	return Archive{}, false
}

// Update replaces the named fields in place. The archive keeps its ID,
// month key, and position in the list.
func (s *ArchiveStore) Update(id int64, patch ArchivePatch) (Archive, bool) {
	for i := range s.archives {
		if s.archives[i].ID != id {
			continue
		}
		recompute := false
		if patch.Budget != nil {
			s.archives[i].Budget = *patch.Budget
			recompute = true
		}
		if patch.CategoryBudgets != nil {
			s.archives[i].CategoryBudgets = patch.CategoryBudgets
		}
		if patch.Expenses != nil {
			s.archives[i].Expenses = patch.Expenses
			recompute = true
		}
		if recompute {
			s.archives[i].Recompute()
		}
		return s.archives[i], true
	}
	return Archive{}, false
}

// Delete removes the archive with the given ID.
func (s *ArchiveStore) Delete(id int64) bool {
	for i := range s.archives {
		if s.archives[i].ID == id {
			s.archives = append(s.archives[:i], s.archives[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a copy of the archive list, most recent first.
func (s *ArchiveStore) List() []Archive {
	return append([]Archive(nil), s.archives...)
}

// Len reports the number of stored archives.
func (s *ArchiveStore) Len() int { return len(s.archives) }
