package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"moomoney/internal/core"
)

var (
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrArchiveNotFound   = errors.New("archive not found")
	ErrNoRolloverPending = errors.New("no rollover pending")
	ErrUnknownTheme      = errors.New("unknown theme")
	ErrEmptyCategory     = errors.New("empty category name")
)

// Tracker is the process-wide owner of the active bucket, the archive
// store, and the rollover state machine. Every mutation is applied under
// one lock, fully persisted write-through, and only then returned; there
// is no batching and no rollback of earlier writes within one operation.
type Tracker struct {
	mu     sync.Mutex
	store  StateStore
	events EventPublisher
	now    func() time.Time

	bucket    ActiveBucket
	archives  *ArchiveStore
	cutoffDay int
	theme     string

	view         View
	state        RolloverState
	driftChecked bool
	pending      *PendingEdit
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock injects the wall clock (tests pin "today").
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithEvents attaches a best-effort change-event publisher.
func WithEvents(p EventPublisher) Option {
	return func(t *Tracker) { t.events = p }
}

// NewTracker loads persisted state from the store, substituting the
// first-run default for every key that is missing or corrupt. Load
// failures of individual keys never fail construction.
func NewTracker(ctx context.Context, store StateStore, opts ...Option) (*Tracker, error) {
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}

	month := core.MonthKeyOf(t.now())
	t.bucket = NewActiveBucket(month)
	t.cutoffDay = core.DefaultCutoffDay
	t.theme = DefaultTheme

	t.loadKey(ctx, KeyBudget, &t.bucket.Budget)
	t.loadKey(ctx, KeyCategoryBudgets, &t.bucket.CategoryBudgets)
	t.loadKey(ctx, KeyVisibleBudgets, &t.bucket.VisibleBudgetCats)
	t.loadKey(ctx, KeyCategories, &t.bucket.Categories)
	t.loadKey(ctx, KeyLastActiveMonth, &t.bucket.LastActiveMonth)
	t.loadKey(ctx, KeyCutoffDay, &t.cutoffDay)
	t.cutoffDay = core.NormalizeCutoffDay(t.cutoffDay)
	t.loadKey(ctx, KeyTheme, &t.theme)
	if !ValidTheme(t.theme) {
		t.theme = DefaultTheme
	}
	if t.bucket.LastActiveMonth.IsZero() {
		t.bucket.LastActiveMonth = month
	}

	if found := t.loadKey(ctx, KeyExpenses, &t.bucket.Expenses); !found {
		// First run: seed one sample row dated today.
		t.bucket.Expenses = []core.Expense{{
			ID:       1,
			Date:     core.DateOf(t.now()),
			Item:     "Beli Rumput Premium",
			Category: "Kebutuhan Bulanan",
			Amount:   50000,
			Qty:      1,
			Unit:     "kg",
		}}
	}

	var archived []Archive
	t.loadKey(ctx, KeyArchives, &archived)
	t.archives = NewArchiveStore(archived)

	slog.InfoContext(ctx, "Ledger state loaded",
		"month", t.bucket.LastActiveMonth,
		"expenses", len(t.bucket.Expenses),
		"archives", t.archives.Len(),
		"cutoff_day", t.cutoffDay)

	return t, nil
}

// loadKey loads one persisted key, leaving the default in place on a miss.
func (t *Tracker) loadKey(ctx context.Context, key string, v any) bool {
	found, err := t.store.Load(ctx, key, v)
	if err != nil {
		slog.WarnContext(ctx, "State key load failed, using default", "key", key, "error", err)
		return false
	}
	return found
}

// persist writes the given keys through to the store. A failed write is
// logged and the remaining keys are still written; earlier writes in the
// same operation are never undone.
func (t *Tracker) persist(ctx context.Context, keys ...string) {
	for _, key := range keys {
		var v any
		switch key {
		case KeyBudget:
			v = t.bucket.Budget
		case KeyCategoryBudgets:
			v = t.bucket.CategoryBudgets
		case KeyVisibleBudgets:
			v = t.bucket.VisibleBudgetCats
		case KeyCategories:
			v = t.bucket.Categories
		case KeyLastActiveMonth:
			v = t.bucket.LastActiveMonth
		case KeyExpenses:
			v = t.bucket.Expenses
		case KeyArchives:
			v = t.archives.List()
		case KeyCutoffDay:
			v = t.cutoffDay
		case KeyTheme:
			v = t.theme
		default:
			continue
		}
		if err := t.store.Save(ctx, key, v); err != nil {
			slog.ErrorContext(ctx, "State save failed", "key", key, "error", err)
		}
	}
}

func (t *Tracker) publishArchiveCreated(ctx context.Context, month core.MonthKey, reason string) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishArchiveCreated(ctx, string(month), reason); err != nil {
		slog.WarnContext(ctx, "Archive event publish failed", "month", month, "error", err)
	}
}

func (t *Tracker) publishBucketChanged(ctx context.Context) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishBucketChanged(ctx, string(t.bucket.LastActiveMonth)); err != nil {
		slog.WarnContext(ctx, "Change event publish failed", "error", err)
	}
}

// Overview is the derived read model for the currently viewed bucket.
type Overview struct {
	View              View                  `json:"view"`
	Rollover          string                `json:"rollover_state"`
	MonthKey          core.MonthKey         `json:"month_key"`
	PeriodLabel       string                `json:"period_label"`
	Budget            core.Money            `json:"budget"`
	CategoryBudgets   map[string]core.Money `json:"category_budgets"`
	TrackedCategories []string              `json:"tracked_categories"`
	Categories        []string              `json:"categories"`
	Expenses          []core.Expense        `json:"expenses"`
	TotalSpent        core.Money            `json:"total_spent"`
	Balance           core.Money            `json:"balance"`
	Status            string                `json:"status"`
	Shares            []core.CategoryShare  `json:"shares"`
	CutoffDay         int                   `json:"cutoff_day"`
	Theme             string                `json:"theme"`
}

// viewedExpenses returns the complete expense set of the viewed bucket:
// the active bucket filtered to the active billing period, or an archive's
// stored list verbatim (archived data is final; no date filtering is
// reapplied to it).
func (t *Tracker) viewedExpenses() ([]core.Expense, Archive, bool) {
	if t.view.Archive {
		if arch, ok := t.archives.Get(t.view.ArchiveID); ok {
			return arch.Expenses, arch, true
		}
		// Viewed archive was deleted out from under the view; fall back
		// to the active bucket.
	}
	p := core.ActivePeriod(core.DateOf(t.now()), t.cutoffDay)
	return core.FilterByPeriod(t.bucket.Expenses, p), Archive{}, false
}

// Overview derives the read model. filterCategory narrows the expense list
// to one category after period membership; it never affects totals, which
// always cover the whole viewed bucket.
func (t *Tracker) Overview(filterCategory string) Overview {
	t.mu.Lock()
	defer t.mu.Unlock()

	list, arch, isArchive := t.viewedExpenses()

	o := Overview{
		View:      t.view,
		Rollover:  t.state.String(),
		CutoffDay: t.cutoffDay,
		Theme:     t.theme,
		Categories: append([]string(nil),
			t.bucket.Categories...),
	}
	if isArchive {
		o.MonthKey = arch.ISODate
		o.PeriodLabel = arch.Period
		o.Budget = arch.Budget
		o.CategoryBudgets = copyBudgets(arch.CategoryBudgets)
		// Archives track every budgeted key.
		for cat := range arch.CategoryBudgets {
			o.TrackedCategories = append(o.TrackedCategories, cat)
		}
	} else {
		p := core.ActivePeriod(core.DateOf(t.now()), t.cutoffDay)
		o.MonthKey = t.bucket.LastActiveMonth
		o.PeriodLabel = p.Label()
		o.Budget = t.bucket.Budget
		o.CategoryBudgets = copyBudgets(t.bucket.CategoryBudgets)
		o.TrackedCategories = append([]string(nil), t.bucket.VisibleBudgetCats...)
	}

	o.TotalSpent = core.TotalSpent(list)
	o.Balance = core.Balance(o.Budget, list)
	o.Status = core.Overall(o.Budget, o.CategoryBudgets, o.TrackedCategories, core.SpendByCategory(list)).String()
	o.Shares = core.Shares(list)
	o.Expenses = SortByDateDesc(FilterByCategory(list, filterCategory))
	return o
}

// Archives lists the stored archives, most recent first.
func (t *Tracker) Archives() []Archive {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.archives.List()
}

// ViewedMonthKey returns the month key imports are reconciled against: the
// open archive's key, or the active bucket's lastActiveMonth.
func (t *Tracker) viewedMonthKey() core.MonthKey {
	if t.view.Archive {
		if arch, ok := t.archives.Get(t.view.ArchiveID); ok {
			return arch.ISODate
		}
	}
	return t.bucket.LastActiveMonth
}

// CheckCalendarDrift evaluates the startup drift check: has the calendar
// moved past the bucket's month? Guarded to fire at most once per load so
// repeated evaluation cannot re-prompt. Returns nil when stable.
func (t *Tracker) CheckCalendarDrift(ctx context.Context) *DriftPrompt {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.driftChecked {
		return nil
	}
	t.driftChecked = true

	current := core.MonthKeyOf(t.now())
	if t.bucket.LastActiveMonth.IsZero() || t.bucket.LastActiveMonth >= current {
		return nil
	}
	t.state = RolloverDriftDetected
	slog.InfoContext(ctx, "Calendar drift detected",
		"last_active_month", t.bucket.LastActiveMonth, "current_month", current)
	return &DriftPrompt{Outgoing: t.bucket.LastActiveMonth, Current: current}
}

// ConfirmRollover answers the drift prompt with Archive & Reset: the
// active bucket is snapshotted into a new archive keyed by the outgoing
// month, expenses are cleared, and lastActiveMonth advances. Budget and
// category budgets carry forward unchanged.
func (t *Tracker) ConfirmRollover(ctx context.Context) (Archive, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != RolloverDriftDetected {
		return Archive{}, ErrNoRolloverPending
	}
	outgoing := t.bucket.LastActiveMonth
	arch := t.archives.Create(Archive{
		ISODate:         outgoing,
		Budget:          t.bucket.Budget,
		CategoryBudgets: copyBudgets(t.bucket.CategoryBudgets),
		Expenses:        copyExpenses(t.bucket.Expenses),
	})
	t.bucket.Expenses = nil
	t.bucket.LastActiveMonth = core.MonthKeyOf(t.now())
	t.state = RolloverStable

	t.persist(ctx, KeyArchives, KeyExpenses, KeyLastActiveMonth)
	t.publishArchiveCreated(ctx, outgoing, "rollover")
	t.publishBucketChanged(ctx)

	slog.InfoContext(ctx, "Rollover archived and reset",
		"archived_month", outgoing, "new_month", t.bucket.LastActiveMonth,
		"archived_expenses", len(arch.Expenses))
	return arch, nil
}

// DeclineRollover answers the drift prompt with Keep Using Old Data: only
// lastActiveMonth advances, suppressing further prompts this session; no
// archive is created and nothing is cleared.
func (t *Tracker) DeclineRollover(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != RolloverDriftDetected {
		return ErrNoRolloverPending
	}
	t.bucket.LastActiveMonth = core.MonthKeyOf(t.now())
	t.state = RolloverStable
	t.persist(ctx, KeyLastActiveMonth)
	slog.InfoContext(ctx, "Rollover declined, keeping old data",
		"month", t.bucket.LastActiveMonth)
	return nil
}

// ConfirmManualRollover applies a held date edit: the pre-edit bucket is
// archived under the old month, and the active bucket restarts with a
// single row carrying the triggering row's fields under the new date.
func (t *Tracker) ConfirmManualRollover(ctx context.Context) (Archive, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != RolloverManualPending || t.pending == nil {
		return Archive{}, ErrNoRolloverPending
	}
	pending := *t.pending
	outgoing := t.bucket.LastActiveMonth

	arch := t.archives.Create(Archive{
		ISODate:         outgoing,
		Budget:          t.bucket.Budget,
		CategoryBudgets: copyBudgets(t.bucket.CategoryBudgets),
		Expenses:        copyExpenses(t.bucket.Expenses),
	})

	carry := core.Expense{ID: 1, Date: pending.Date, Category: core.FallbackCategory, Qty: core.DefaultQty, Unit: core.DefaultUnit}
	for _, e := range t.bucket.Expenses {
		if e.ID == pending.RowID {
			carry.Item = e.Item
			if e.Category != "" {
				carry.Category = e.Category
			}
			carry.Amount = e.Amount
			if e.Qty != 0 {
				carry.Qty = e.Qty
			}
			if e.Unit != "" {
				carry.Unit = e.Unit
			}
			break
		}
	}
	t.bucket.Expenses = []core.Expense{carry}
	t.bucket.LastActiveMonth = pending.Month
	t.pending = nil
	t.state = RolloverStable

	t.persist(ctx, KeyArchives, KeyExpenses, KeyLastActiveMonth)
	t.publishArchiveCreated(ctx, outgoing, "manual_rollover")
	t.publishBucketChanged(ctx)

	slog.InfoContext(ctx, "Manual rollover confirmed",
		"archived_month", outgoing, "new_month", pending.Month, "carry_row", pending.RowID)
	return arch, nil
}

// CancelManualRollover discards the held date edit; the bucket is left
// exactly as it was.
func (t *Tracker) CancelManualRollover() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != RolloverManualPending {
		return ErrNoRolloverPending
	}
	t.pending = nil
	t.state = RolloverStable
	return nil
}

// PendingRollover exposes the held edit, if any.
func (t *Tracker) PendingRollover() *PendingEdit {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	p := *t.pending
	return &p
}
