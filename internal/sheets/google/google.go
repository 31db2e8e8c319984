// Package google mirrors month reports into a Google Spreadsheet, one tab
// per month. Authentication uses a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "moomoney/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// tabPrefix is prepended to the month key to form the tab name
	// ("Laporan 2025-03").
	tabPrefix string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a mirror client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_PREFIX (default "Laporan ").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	tabPrefix := os.Getenv("GOOGLE_SHEET_PREFIX")
	if tabPrefix == "" {
		tabPrefix = "Laporan "
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabPrefix:     tabPrefix,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) tabName(month string) string {
	return c.tabPrefix + month
}

// WriteMonthReport replaces the month's tab contents with the report. The
// tab is created on first write; clear-then-update makes the operation
// idempotent under event redelivery.
func (c *Client) WriteMonthReport(ctx context.Context, report ports.MonthReport) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	tab := c.tabName(string(report.Month))
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:F", tab)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := [][]any{
		{"Catatan Pengeluaran", report.Month.Label()},
		{"Periode", report.PeriodLabel},
		{"Budget", int64(report.Budget)},
		{"Total Pengeluaran", int64(report.TotalSpent)},
		{"Sisa Saldo", int64(report.Balance)},
		{},
		{"Tanggal", "Item", "Kategori", "Qty", "Satuan", "Jumlah"},
	}
	for _, e := range report.Expenses {
		values = append(values, []any{
			e.Date.String(), e.Item, e.Category, e.Qty, e.Unit, int64(e.Amount),
		})
	}

	updateRange := fmt.Sprintf("%s!A1", tab)
	vr := &gsheet.ValueRange{Values: values}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, updateRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Month report mirrored",
		"month", report.Month,
		"tab", tab,
		"rows", len(report.Expenses))
	return nil
}

// ensureTab creates the tab if it does not exist yet. An "already exists"
// rejection from the API is success.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	return nil
}
