package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"moomoney/internal/ledger"
)

const exportSheet = "Laporan"

var detailHeader = []string{"Tanggal", "Item", "Kategori", "Qty", "Satuan", "Jumlah"}

// ExportXLSX writes the viewed bucket as a styled xlsx report: a title, a
// summary block, then the detail table in the same column layout the
// importer understands, so a report can be re-imported as-is.
func ExportXLSX(w io.Writer, o ledger.Overview) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", exportSheet)

	f.SetCellValue(exportSheet, "A1", "Catatan Pengeluaran "+o.MonthKey.Label())
	f.SetCellValue(exportSheet, "A2", "Periode")
	f.SetCellValue(exportSheet, "B2", o.PeriodLabel)
	f.SetCellValue(exportSheet, "A3", "Budget")
	f.SetCellValue(exportSheet, "B3", o.Budget.FormatCurrency())
	f.SetCellValue(exportSheet, "A4", "Total Pengeluaran")
	f.SetCellValue(exportSheet, "B4", o.TotalSpent.FormatCurrency())
	f.SetCellValue(exportSheet, "A5", "Sisa Saldo")
	f.SetCellValue(exportSheet, "B5", o.Balance.FormatCurrency())

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	f.SetCellStyle(exportSheet, "A1", "A1", titleStyle)

	const headerRow = 7
	for i, name := range detailHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		f.SetCellValue(exportSheet, cell, name)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	f.SetCellStyle(exportSheet, "A7", "F7", headerStyle)

	for i, e := range o.Expenses {
		row := headerRow + 1 + i
		f.SetCellValue(exportSheet, "A"+strconv.Itoa(row), e.Date.String())
		f.SetCellValue(exportSheet, "B"+strconv.Itoa(row), e.Item)
		f.SetCellValue(exportSheet, "C"+strconv.Itoa(row), e.Category)
		f.SetCellValue(exportSheet, "D"+strconv.Itoa(row), e.Qty)
		f.SetCellValue(exportSheet, "E"+strconv.Itoa(row), e.Unit)
		f.SetCellValue(exportSheet, "F"+strconv.Itoa(row), int64(e.Amount))
	}

	f.SetColWidth(exportSheet, "A", "A", 14)
	f.SetColWidth(exportSheet, "B", "B", 32)
	f.SetColWidth(exportSheet, "C", "C", 20)
	f.SetColWidth(exportSheet, "F", "F", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportCSV writes just the detail table as csv, header included.
func ExportCSV(w io.Writer, o ledger.Overview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range o.Expenses {
		record := []string{
			e.Date.String(),
			e.Item,
			e.Category,
			strconv.FormatFloat(e.Qty, 'f', -1, 64),
			e.Unit,
			strconv.FormatInt(int64(e.Amount), 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
