// Package workbook reads and writes spreadsheet files for the ledger:
// xlsx via excelize and plain csv. Import parsing is structural-first:
// the header row must be located before any row is interpreted, and a
// file with no recognizable header fails outright so the caller mutates
// nothing. Individual bad rows are skipped, never fatal.
package workbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"moomoney/internal/core"
	"moomoney/internal/ledger"
)

var (
	ErrNoSheet  = errors.New("workbook has no sheets")
	ErrNoHeader = errors.New("no header row with date, description and amount columns found")
)

// headerScanLimit caps how deep the header search goes; real exports put
// the table within the first screen of rows.
const headerScanLimit = 20

// excelEpochOffset converts an Excel serial day number to a Unix day
// number (days between 1899-12-30 and 1970-01-01).
const excelEpochOffset = 25569

// columns maps header names to column indexes; -1 means absent. Date,
// item and amount are required; the rest are optional.
type columns struct {
	date     int
	item     int
	category int
	amount   int
	qty      int
	unit     int
}

func (c columns) valid() bool { return c.date >= 0 && c.item >= 0 && c.amount >= 0 }

var (
	dateMarkers     = []string{"tanggal", "date"}
	amountMarkers   = []string{"jumlah", "harga", "amount", "total", "nominal"}
	itemMarkers     = []string{"item", "nama", "barang", "keterangan", "deskripsi", "description"}
	categoryMarkers = []string{"kategori", "category"}
	qtyMarkers      = []string{"qty", "banyak", "kuantitas"}
	unitMarkers     = []string{"satuan", "unit"}
)

func matchMarker(cell string, markers []string) bool {
	cell = strings.ToLower(strings.TrimSpace(cell))
	for _, m := range markers {
		if strings.Contains(cell, m) {
			return true
		}
	}
	return false
}

// findHeader scans the first rows for one naming the date, description
// and amount columns. The remaining columns are optional.
func findHeader(rows [][]string) (columns, int, bool) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		c := columns{date: -1, item: -1, category: -1, amount: -1, qty: -1, unit: -1}
		for j, cell := range rows[i] {
			switch {
			case c.date < 0 && matchMarker(cell, dateMarkers):
				c.date = j
			case c.qty < 0 && matchMarker(cell, qtyMarkers):
				// Checked before amount: "banyak"/"qty" never mean money.
				c.qty = j
			case c.amount < 0 && matchMarker(cell, amountMarkers):
				c.amount = j
			case c.category < 0 && matchMarker(cell, categoryMarkers):
				c.category = j
			case c.item < 0 && matchMarker(cell, itemMarkers):
				c.item = j
			case c.unit < 0 && matchMarker(cell, unitMarkers):
				c.unit = j
			}
		}
		if c.valid() {
			return c, i, true
		}
	}
	return columns{}, 0, false
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 Jan 2006",
	"02 Jan 2006",
}

// parseDateCell interprets a spreadsheet date cell: a textual date in a
// handful of layouts, or a raw Excel serial number.
func parseDateCell(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 {
		unix := int64((serial - excelEpochOffset) * 86400)
		return core.DateOf(time.Unix(unix, 0).UTC())
	}
	return core.Date{}
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseGrid converts a raw cell grid to import rows. Rows with no usable
// date or a non-positive amount are dropped and counted; a grid with no
// header at all is a structural error. Fully blank rows are ignored
// without counting.
func parseGrid(rows [][]string) ([]ledger.ImportRow, int, error) {
	cols, headerIdx, ok := findHeader(rows)
	if !ok {
		return nil, 0, ErrNoHeader
	}

	var out []ledger.ImportRow
	dropped := 0
	for _, row := range rows[headerIdx+1:] {
		if blankRow(row) {
			continue
		}
		date := parseDateCell(cellAt(row, cols.date))
		if date.IsZero() {
			dropped++
			continue
		}
		amount := core.ParseAmount(cellAt(row, cols.amount))
		if amount <= 0 {
			dropped++
			continue
		}

		r := ledger.ImportRow{
			Date:     date,
			Item:     cellAt(row, cols.item),
			Category: cellAt(row, cols.category),
			Amount:   amount,
			Unit:     cellAt(row, cols.unit),
		}
		if raw := cellAt(row, cols.qty); raw != "" {
			if qty, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil && qty > 0 {
				r.Qty = qty
			} else {
				// Combined "5 kg" cells carry quantity and unit in one
				// field. A separate unit column still wins.
				qty, unit := core.SplitQuantity(raw)
				r.Qty = qty
				if r.Unit == "" {
					r.Unit = unit
				}
			}
		}
		if r.Qty == 0 && r.Unit == "" {
			// No explicit columns: pull a trailing "5 kg" out of the item.
			if item, qty, unit, ok := core.ExtractItemQuantity(r.Item); ok {
				r.Item, r.Qty, r.Unit = item, qty, unit
			}
		}
		out = append(out, r)
	}
	return out, dropped, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseXLSX reads the first sheet of an xlsx workbook into import rows,
// also reporting how many data rows were dropped as unparseable.
func ParseXLSX(r io.Reader) ([]ledger.ImportRow, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, 0, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return parseGrid(rows)
}

// ParseCSV reads a csv export into import rows. Ragged rows are allowed.
func ParseCSV(r io.Reader) ([]ledger.ImportRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}
	return parseGrid(records)
}
