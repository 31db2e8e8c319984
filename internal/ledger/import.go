package ledger

import (
	"context"
	"log/slog"
	"sort"

	"moomoney/internal/core"
)

// ImportRow is one parsed spreadsheet row handed to the reconciler. Rows
// are already validated upstream: the date is non-zero and the amount is
// positive.
type ImportRow struct {
	Date     core.Date
	Item     string
	Category string
	Amount   core.Money
	Qty      float64
	Unit     string
}

// ImportReport summarises where an import's rows ended up.
type ImportReport struct {
	Appended        int             `json:"appended"`
	Merged          int             `json:"merged"`
	NewArchives     int             `json:"new_archives"`
	Dropped         int             `json:"dropped"`
	ArchivedMonths  []core.MonthKey `json:"archived_months,omitempty"`
	MergedArchives  []core.MonthKey `json:"merged_archives,omitempty"`
	AppendedToMonth core.MonthKey   `json:"appended_to_month,omitempty"`
}

// Import reconciles parsed rows into the ledger. Rows are grouped by
// calendar month: the group matching the viewed bucket's month is appended
// to that bucket, groups matching an existing archive are merged into it,
// and every other group becomes a new archive with a zero budget and the
// active bucket's category budgets copied over. IDs continue each target
// bucket's own sequence so imports never collide with existing rows.
func (t *Tracker) Import(ctx context.Context, rows []ImportRow) (ImportReport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var report ImportReport
	if len(rows) == 0 {
		return report, nil
	}

	target := t.viewedMonthKey()
	report.AppendedToMonth = target

	groups := map[core.MonthKey][]ImportRow{}
	for _, row := range rows {
		key := row.Date.MonthKey()
		groups[key] = append(groups[key], row)
	}
	keys := make([]core.MonthKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	archivesTouched := false
	for _, key := range keys {
		group := groups[key]
		switch {
		case key == target:
			t.appendRowsLocked(group)
			report.Appended += len(group)

		default:
			if arch, ok := t.archives.FindByMonthKey(key); ok {
				merged := assignIDs(arch.Expenses, group)
				t.archives.Merge(arch.ID, merged)
				report.Merged += len(group)
				report.MergedArchives = append(report.MergedArchives, key)
				archivesTouched = true
				continue
			}
			t.archives.Create(Archive{
				ISODate:         key,
				Budget:          0,
				CategoryBudgets: copyBudgets(t.bucket.CategoryBudgets),
				Expenses:        assignIDs(nil, group),
			})
			report.NewArchives++
			report.ArchivedMonths = append(report.ArchivedMonths, key)
			archivesTouched = true
			t.publishArchiveCreated(ctx, key, "import")
		}
	}

	if report.Appended > 0 {
		if t.view.Archive {
			t.persist(ctx, KeyArchives)
			archivesTouched = false
		} else {
			t.persist(ctx, KeyExpenses)
			t.publishBucketChanged(ctx)
		}
	}
	if archivesTouched {
		t.persist(ctx, KeyArchives)
	}

	slog.InfoContext(ctx, "Import reconciled",
		"rows", len(rows),
		"appended", report.Appended,
		"merged", report.Merged,
		"new_archives", report.NewArchives,
		"target_month", target)
	return report, nil
}

// appendRowsLocked appends a group to the viewed bucket, continuing its ID
// sequence. Caller holds the lock and has verified the group belongs to
// the viewed month.
func (t *Tracker) appendRowsLocked(group []ImportRow) {
	if t.view.Archive {
		if arch, ok := t.archives.Get(t.view.ArchiveID); ok {
			t.archives.Merge(arch.ID, assignIDs(arch.Expenses, group))
			return
		}
	}
	t.bucket.Expenses = append(t.bucket.Expenses, assignIDs(t.bucket.Expenses, group)...)
}

// assignIDs converts rows to expenses with IDs continuing from the
// existing list's maximum.
func assignIDs(existing []core.Expense, group []ImportRow) []core.Expense {
	next := NextExpenseID(existing)
	out := make([]core.Expense, 0, len(group))
	for _, row := range group {
		e := core.Expense{
			ID:       next,
			Date:     row.Date,
			Item:     row.Item,
			Category: row.Category,
			Amount:   row.Amount,
			Qty:      row.Qty,
			Unit:     row.Unit,
		}
		if e.Category == "" {
			e.Category = core.FallbackCategory
		}
		if e.Qty == 0 {
			e.Qty = core.DefaultQty
		}
		if e.Unit == "" {
			e.Unit = core.DefaultUnit
		}
		out = append(out, e)
		next++
	}
	return out
}
