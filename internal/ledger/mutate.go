package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"moomoney/internal/core"
)

// AddExpense prepends a new blank row to the viewed bucket. The date
// defaults to the bucket's latest expense date so consecutive entries land
// in the same period without re-picking, falling back to today.
func (t *Tracker) AddExpense(ctx context.Context) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return core.Expense{}, ErrArchiveNotFound
		}
		e := core.Expense{
			ID:       NextExpenseID(arch.Expenses),
			Date:     latestOr(arch.Expenses, core.DateOf(t.now())),
			Category: core.FallbackCategory,
			Qty:      core.DefaultQty,
			Unit:     core.DefaultUnit,
		}
		list := append([]core.Expense{e}, arch.Expenses...)
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{Expenses: list}); !ok {
			return core.Expense{}, ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return e, nil
	}

	e := core.Expense{
		ID:       NextExpenseID(t.bucket.Expenses),
		Date:     latestOr(t.bucket.Expenses, core.DateOf(t.now())),
		Category: core.FallbackCategory,
		Qty:      core.DefaultQty,
		Unit:     core.DefaultUnit,
	}
	t.bucket.Expenses = append([]core.Expense{e}, t.bucket.Expenses...)
	t.persist(ctx, KeyExpenses)
	t.publishBucketChanged(ctx)
	return e, nil
}

func latestOr(list []core.Expense, fallback core.Date) core.Date {
	latest := LatestDate(list)
	if latest.IsZero() {
		return fallback
	}
	return latest
}

// ExpensePatch carries optional field edits for one expense row. AmountRaw
// is the user's literal input and goes through the digit-stripping parse.
type ExpensePatch struct {
	Item           *string
	Category       *string
	AmountRaw      *string
	Qty            *float64
	Unit           *string
	CustomCategory *bool
}

func applyPatch(e core.Expense, patch ExpensePatch) core.Expense {
	if patch.Item != nil {
		e.Item = *patch.Item
	}
	if patch.Category != nil {
		e.Category = *patch.Category
		if patch.Unit == nil {
			// Picking a category refreshes the suggested unit unless the
			// edit sets one explicitly.
			e.Unit = core.UnitFor(e.Category)
		}
	}
	if patch.AmountRaw != nil {
		e.Amount = core.ParseAmount(*patch.AmountRaw)
	}
	if patch.Qty != nil {
		e.Qty = *patch.Qty
	}
	if patch.Unit != nil {
		e.Unit = *patch.Unit
	}
	if patch.CustomCategory != nil {
		e.CustomCategory = *patch.CustomCategory
		if *patch.CustomCategory {
			// Switching to free-text entry clears the dropdown pick.
			e.Category = ""
		}
	}
	return e
}

// UpdateExpense applies the patch to one row of the viewed bucket. Dates
// are edited through SetExpenseDate, which owns the rollover check.
func (t *Tracker) UpdateExpense(ctx context.Context, id int64, patch ExpensePatch) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateLocked(ctx, id, func(e core.Expense) core.Expense {
		return applyPatch(e, patch)
	})
}

// SmartParseItem stores free text as the row's item name, first splitting
// a trailing quantity-and-unit suffix into the qty and unit fields. When
// no suffix is present the unit is guessed from item keywords.
func (t *Tracker) SmartParseItem(ctx context.Context, id int64, text string) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateLocked(ctx, id, func(e core.Expense) core.Expense {
		item, qty, unit, ok := core.ExtractItemQuantity(text)
		e.Item = item
		if ok {
			e.Qty = qty
			e.Unit = unit
		} else if guessed := core.GuessUnit(item); guessed != "" {
			e.Unit = guessed
		}
		return e
	})
}

// updateLocked finds the row in the viewed bucket, applies fn, and
// persists. Caller holds the lock.
func (t *Tracker) updateLocked(ctx context.Context, id int64, fn func(core.Expense) core.Expense) (core.Expense, error) {
	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return core.Expense{}, ErrArchiveNotFound
		}
		list := copyExpenses(arch.Expenses)
		for i, e := range list {
			if e.ID == id {
				list[i] = fn(e)
				if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{Expenses: list}); !ok {
					return core.Expense{}, ErrArchiveNotFound
				}
				t.persist(ctx, KeyArchives)
				return list[i], nil
			}
		}
		return core.Expense{}, fmt.Errorf("archive %d: %w", t.view.ArchiveID, ErrExpenseNotFound)
	}

	for i, e := range t.bucket.Expenses {
		if e.ID == id {
			t.bucket.Expenses[i] = fn(e)
			t.persist(ctx, KeyExpenses)
			t.publishBucketChanged(ctx)
			return t.bucket.Expenses[i], nil
		}
	}
	return core.Expense{}, ErrExpenseNotFound
}

// SetExpenseDate edits a row's date. In the active view, moving a row to a
// different calendar month does not apply immediately: the edit is held
// and a manual rollover prompt is returned for the user to confirm or
// cancel. Archive rows are edited in place, dates included.
func (t *Tracker) SetExpenseDate(ctx context.Context, id int64, date core.Date) (core.Expense, *PendingEdit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.view.Archive && date.MonthKey() != t.bucket.LastActiveMonth {
		found := false
		for _, e := range t.bucket.Expenses {
			if e.ID == id {
				found = true
				break
			}
		}
		if !found {
			return core.Expense{}, nil, ErrExpenseNotFound
		}
		t.pending = &PendingEdit{RowID: id, Date: date, Month: date.MonthKey()}
		t.state = RolloverManualPending
		slog.InfoContext(ctx, "Date edit crosses month boundary, holding for confirmation",
			"row", id, "new_month", date.MonthKey(), "active_month", t.bucket.LastActiveMonth)
		p := *t.pending
		return core.Expense{}, &p, nil
	}

	e, err := t.updateLocked(ctx, id, func(e core.Expense) core.Expense {
		e.Date = date
		return e
	})
	return e, nil, err
}

// DeleteExpense removes one row from the viewed bucket.
func (t *Tracker) DeleteExpense(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return ErrArchiveNotFound
		}
		list := make([]core.Expense, 0, len(arch.Expenses))
		removed := false
		for _, e := range arch.Expenses {
			if e.ID == id {
				removed = true
				continue
			}
			list = append(list, e)
		}
		if !removed {
			return ErrExpenseNotFound
		}
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{Expenses: list}); !ok {
			return ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return nil
	}

	list := make([]core.Expense, 0, len(t.bucket.Expenses))
	removed := false
	for _, e := range t.bucket.Expenses {
		if e.ID == id {
			removed = true
			continue
		}
		list = append(list, e)
	}
	if !removed {
		return ErrExpenseNotFound
	}
	t.bucket.Expenses = list
	t.persist(ctx, KeyExpenses)
	t.publishBucketChanged(ctx)
	return nil
}

// SetBudget sets the viewed bucket's overall budget from raw user input.
func (t *Tracker) SetBudget(ctx context.Context, raw string) (core.Money, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	amount := core.ParseAmount(raw)
	if t.view.Archive {
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{Budget: &amount}); !ok {
			return 0, ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return amount, nil
	}
	t.bucket.Budget = amount
	t.persist(ctx, KeyBudget)
	t.publishBucketChanged(ctx)
	return amount, nil
}

// SetCategoryBudget sets one category's budget on the viewed bucket.
func (t *Tracker) SetCategoryBudget(ctx context.Context, category, raw string) (core.Money, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	amount := core.ParseAmount(raw)
	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return 0, ErrArchiveNotFound
		}
		budgets := copyBudgets(arch.CategoryBudgets)
		if budgets == nil {
			budgets = map[string]core.Money{}
		}
		budgets[category] = amount
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{CategoryBudgets: budgets}); !ok {
			return 0, ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return amount, nil
	}
	if t.bucket.CategoryBudgets == nil {
		t.bucket.CategoryBudgets = map[string]core.Money{}
	}
	t.bucket.CategoryBudgets[category] = amount
	t.persist(ctx, KeyCategoryBudgets)
	t.publishBucketChanged(ctx)
	return amount, nil
}

// TrackCategory shows a per-category budget card. On an archive this means
// ensuring the category has a budget entry, zero until set.
func (t *Tracker) TrackCategory(ctx context.Context, category string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return ErrArchiveNotFound
		}
		budgets := copyBudgets(arch.CategoryBudgets)
		if budgets == nil {
			budgets = map[string]core.Money{}
		}
		if _, exists := budgets[category]; !exists {
			budgets[category] = 0
		}
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{CategoryBudgets: budgets}); !ok {
			return ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return nil
	}
	if !containsString(t.bucket.VisibleBudgetCats, category) {
		t.bucket.VisibleBudgetCats = append(t.bucket.VisibleBudgetCats, category)
	}
	t.persist(ctx, KeyVisibleBudgets)
	return nil
}

// UntrackCategory hides a category's budget card. The budget amount itself
// is kept on the active bucket; on an archive the entry is removed.
func (t *Tracker) UntrackCategory(ctx context.Context, category string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return ErrArchiveNotFound
		}
		budgets := copyBudgets(arch.CategoryBudgets)
		delete(budgets, category)
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{CategoryBudgets: budgets}); !ok {
			return ErrArchiveNotFound
		}
		t.persist(ctx, KeyArchives)
		return nil
	}
	t.bucket.VisibleBudgetCats = removeString(t.bucket.VisibleBudgetCats, category)
	t.persist(ctx, KeyVisibleBudgets)
	return nil
}

// AddCategory registers a new category name, makes it selectable
// everywhere, and starts tracking it with a zero budget.
func (t *Tracker) AddCategory(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		return fmt.Errorf("add category: %w", ErrEmptyCategory)
	}
	if !containsString(t.bucket.Categories, name) {
		t.bucket.Categories = append(t.bucket.Categories, name)
	}
	if t.view.Archive {
		arch, ok := t.archives.Get(t.view.ArchiveID)
		if !ok {
			return ErrArchiveNotFound
		}
		budgets := copyBudgets(arch.CategoryBudgets)
		if budgets == nil {
			budgets = map[string]core.Money{}
		}
		if _, exists := budgets[name]; !exists {
			budgets[name] = 0
		}
		if _, ok := t.archives.Update(t.view.ArchiveID, ArchivePatch{CategoryBudgets: budgets}); !ok {
			return ErrArchiveNotFound
		}
		t.persist(ctx, KeyCategories, KeyArchives)
		return nil
	}
	if t.bucket.CategoryBudgets == nil {
		t.bucket.CategoryBudgets = map[string]core.Money{}
	}
	if _, exists := t.bucket.CategoryBudgets[name]; !exists {
		t.bucket.CategoryBudgets[name] = 0
	}
	if !containsString(t.bucket.VisibleBudgetCats, name) {
		t.bucket.VisibleBudgetCats = append(t.bucket.VisibleBudgetCats, name)
	}
	t.persist(ctx, KeyCategories, KeyCategoryBudgets, KeyVisibleBudgets)
	return nil
}

// OpenArchive switches the view to a stored archive.
func (t *Tracker) OpenArchive(id int64) (Archive, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	arch, ok := t.archives.Get(id)
	if !ok {
		return Archive{}, ErrArchiveNotFound
	}
	t.view = ArchiveView(id)
	return arch, nil
}

// CloseArchive returns the view to the active bucket.
func (t *Tracker) CloseArchive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view = ActiveView
}

// DeleteArchive removes a stored archive. Deleting the one currently
// viewed also closes the view.
func (t *Tracker) DeleteArchive(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.archives.Delete(id) {
		return ErrArchiveNotFound
	}
	if t.view.Archive && t.view.ArchiveID == id {
		t.view = ActiveView
	}
	t.persist(ctx, KeyArchives)
	return nil
}

// SetCutoffDay changes the billing period anchor. Out-of-range values fall
// back to the default rather than being rejected.
func (t *Tracker) SetCutoffDay(ctx context.Context, day int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cutoffDay = core.NormalizeCutoffDay(day)
	t.persist(ctx, KeyCutoffDay)
	return t.cutoffDay
}

// SetTheme switches the colour theme.
func (t *Tracker) SetTheme(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !ValidTheme(name) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	t.theme = name
	t.persist(ctx, KeyTheme)
	return nil
}
