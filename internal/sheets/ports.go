package sheets

import (
	"context"

	"moomoney/internal/core"
)

// MonthReport is one month's ledger data rendered for mirroring to an
// external spreadsheet.
type MonthReport struct {
	Month       core.MonthKey
	PeriodLabel string
	Budget      core.Money
	TotalSpent  core.Money
	Balance     core.Money
	Expenses    []core.Expense
}

// Ports for outbound adapters.
type (
	// ReportWriter replaces the mirror of one month with the given report.
	// Writes are idempotent: mirroring the same report twice leaves the
	// same result, so redelivered change events are safe.
	ReportWriter interface {
		WriteMonthReport(ctx context.Context, report MonthReport) error
	}
)
