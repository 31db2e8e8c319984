// Package worker mirrors ledger months to an external spreadsheet in
// response to change events. Events carry only the month key; the worker
// reads current state itself, so redelivery and out-of-order delivery are
// harmless.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moomoney/internal/amqp"
	"moomoney/internal/core"
	"moomoney/internal/ledger"
	"moomoney/internal/sheets"
)

type MirrorWorker struct {
	store  ledger.StateStore
	writer sheets.ReportWriter
	now    func() time.Time
}

func NewMirrorWorker(store ledger.StateStore, writer sheets.ReportWriter) *MirrorWorker {
	return &MirrorWorker{store: store, writer: writer, now: time.Now}
}

// HandleEvent processes one ledger change event. A month that no longer
// exists (archive deleted before the event arrived) is skipped, not an
// error, so the message is not requeued forever.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"month", msg.Month)

	month, err := core.ParseMonthKey(msg.Month)
	if err != nil {
		slog.WarnContext(ctx, "Malformed month in event, skipping", "month", msg.Month)
		return nil
	}

	report, ok, err := w.buildReport(ctx, month)
	if err != nil {
		return fmt.Errorf("build report for %s: %w", msg.Month, err)
	}
	if !ok {
		slog.WarnContext(ctx, "Month no longer present, skipping mirror", "month", msg.Month)
		return nil
	}

	if err := w.writer.WriteMonthReport(ctx, report); err != nil {
		return fmt.Errorf("mirror month %s: %w", msg.Month, err)
	}
	return nil
}

// buildReport assembles the report for one month from persisted state: the
// active bucket when the month is the current one, a stored archive
// otherwise.
func (w *MirrorWorker) buildReport(ctx context.Context, month core.MonthKey) (sheets.MonthReport, bool, error) {
	var lastActive core.MonthKey
	if _, err := w.store.Load(ctx, ledger.KeyLastActiveMonth, &lastActive); err != nil {
		return sheets.MonthReport{}, false, fmt.Errorf("load active month: %w", err)
	}

	if month == lastActive {
		return w.buildActiveReport(ctx, month)
	}

	var archives []ledger.Archive
	if _, err := w.store.Load(ctx, ledger.KeyArchives, &archives); err != nil {
		return sheets.MonthReport{}, false, fmt.Errorf("load archives: %w", err)
	}
	for _, arch := range archives {
		if arch.ISODate == month {
			return sheets.MonthReport{
				Month:       month,
				PeriodLabel: arch.Period,
				Budget:      arch.Budget,
				TotalSpent:  arch.TotalExpenses,
				Balance:     arch.Balance,
				Expenses:    arch.Expenses,
			}, true, nil
		}
	}
	return sheets.MonthReport{}, false, nil
}

func (w *MirrorWorker) buildActiveReport(ctx context.Context, month core.MonthKey) (sheets.MonthReport, bool, error) {
	var (
		expenses  []core.Expense
		budget    = ledger.DefaultBudget
		cutoffDay = core.DefaultCutoffDay
	)
	if _, err := w.store.Load(ctx, ledger.KeyExpenses, &expenses); err != nil {
		return sheets.MonthReport{}, false, fmt.Errorf("load expenses: %w", err)
	}
	if _, err := w.store.Load(ctx, ledger.KeyBudget, &budget); err != nil {
		return sheets.MonthReport{}, false, fmt.Errorf("load budget: %w", err)
	}
	if _, err := w.store.Load(ctx, ledger.KeyCutoffDay, &cutoffDay); err != nil {
		return sheets.MonthReport{}, false, fmt.Errorf("load cutoff day: %w", err)
	}

	period := core.ActivePeriod(core.DateOf(w.now()), cutoffDay)
	list := core.FilterByPeriod(expenses, period)
	return sheets.MonthReport{
		Month:       month,
		PeriodLabel: period.Label(),
		Budget:      budget,
		TotalSpent:  core.TotalSpent(list),
		Balance:     core.Balance(budget, list),
		Expenses:    ledger.SortByDateDesc(list),
	}, true, nil
}

// MirrorAll re-mirrors the active month and every archive. Run at startup
// as a catch-up in case events were lost while the worker was down.
func (w *MirrorWorker) MirrorAll(ctx context.Context) error {
	var lastActive core.MonthKey
	if _, err := w.store.Load(ctx, ledger.KeyLastActiveMonth, &lastActive); err != nil {
		return fmt.Errorf("load active month: %w", err)
	}
	if !lastActive.IsZero() {
		if err := w.HandleEvent(ctx, amqp.NewBucketChangedMessage(string(lastActive))); err != nil {
			return err
		}
	}

	var archives []ledger.Archive
	if _, err := w.store.Load(ctx, ledger.KeyArchives, &archives); err != nil {
		return fmt.Errorf("load archives: %w", err)
	}
	for _, arch := range archives {
		if err := w.HandleEvent(ctx, amqp.NewArchiveCreatedMessage(string(arch.ISODate), "catch_up")); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Catch-up mirror complete",
		"active_month", lastActive,
		"archives", len(archives))
	return nil
}
