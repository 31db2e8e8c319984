package workbook

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"moomoney/internal/core"
	"moomoney/internal/ledger"
)

func TestParseGridFindsDeepHeader(t *testing.T) {
	grid := [][]string{
		{"Catatan Pengeluaran Maret 2025"},
		{},
		{"Periode", "1 Mar - 31 Mar 2025"},
		{"Tanggal", "Item", "Kategori", "Qty", "Satuan", "Jumlah"},
		{"2025-03-02", "Beras", "Kebutuhan Bulanan", "5", "kg", "70.000"},
		{"2025-03-03", "Galon", "Kebutuhan Bulanan", "1", "galon", "Rp20.000"},
	}

	rows, _, err := parseGrid(grid)
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Item != "Beras" || rows[0].Amount != 70000 || rows[0].Qty != 5 || rows[0].Unit != "kg" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Amount != 20000 {
		t.Fatalf("currency-prefixed amount = %d, want 20000", rows[1].Amount)
	}
}

func TestParseGridSkipsBadRows(t *testing.T) {
	grid := [][]string{
		{"Date", "Item", "Amount"},
		{"2025-03-02", "Kopi", "5000"},
		{"not a date", "Teh", "5000"},
		{"2025-03-04", "Gula", "0"},
		{"2025-03-05", "Roti", "-100"}, // digit strip makes this 100, kept
		{"", "", ""},
		{"2025-03-06", "Susu"}, // ragged, no amount cell
	}

	rows, dropped, err := parseGrid(grid)
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want only parseable ones", len(rows))
	}
	if rows[1].Amount != 100 {
		t.Fatalf("amount = %d, want digit-stripped 100", rows[1].Amount)
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3 (blank row not counted)", dropped)
	}
}

func TestParseGridRequiresDescriptionColumn(t *testing.T) {
	grid := [][]string{
		{"Tanggal", "Jumlah"},
		{"2025-03-02", "5000"},
	}
	if _, _, err := parseGrid(grid); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader for header without an item column", err)
	}
}

func TestParseGridCombinedQuantityCell(t *testing.T) {
	grid := [][]string{
		{"Tanggal", "Item", "Qty", "Jumlah"},
		{"2025-03-02", "Beras", "5 kg", "70.000"},
		{"2025-03-03", "Galon", "2", "40.000"},
	}

	rows, _, err := parseGrid(grid)
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	if rows[0].Qty != 5 || rows[0].Unit != "kg" {
		t.Fatalf("combined cell = qty %v unit %q, want 5 kg", rows[0].Qty, rows[0].Unit)
	}
	if rows[1].Qty != 2 || rows[1].Unit != "" {
		t.Fatalf("numeric cell = qty %v unit %q, want 2 with no unit", rows[1].Qty, rows[1].Unit)
	}

	withUnitCol := [][]string{
		{"Tanggal", "Item", "Qty", "Satuan", "Jumlah"},
		{"2025-03-02", "Telur", "1,5 kg", "pcs", "30.000"},
	}
	rows, _, err = parseGrid(withUnitCol)
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	if rows[0].Qty != 1.5 || rows[0].Unit != "pcs" {
		t.Fatalf("row = qty %v unit %q, want 1.5 with the unit column winning", rows[0].Qty, rows[0].Unit)
	}
}

func TestParseGridNoHeader(t *testing.T) {
	grid := [][]string{
		{"free", "text"},
		{"more", "text"},
	}
	if _, _, err := parseGrid(grid); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestParseGridSplitsQuantityFromItem(t *testing.T) {
	grid := [][]string{
		{"Tanggal", "Keterangan", "Harga"},
		{"2025-03-02", "Telur ayam 2 kg", "56.000"},
	}

	rows, _, err := parseGrid(grid)
	if err != nil {
		t.Fatalf("parseGrid: %v", err)
	}
	got := rows[0]
	if got.Item != "Telur ayam" || got.Qty != 2 || got.Unit != "kg" {
		t.Fatalf("row = %+v, want quantity split out of item", got)
	}
}

func TestParseDateCell(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-02", "2025-03-02"},
		{"02/03/2025", "2025-03-02"},
		{"2/3/2025", "2025-03-02"},
		{"45718", "2025-03-02"}, // Excel serial for 2025-03-02
		{"garbage", ""},
		{"12", ""}, // too small for a serial
		{"", ""},
	}
	for _, tc := range cases {
		got := parseDateCell(tc.in)
		if got.String() != tc.want {
			t.Errorf("parseDateCell(%q) = %q, want %q", tc.in, got.String(), tc.want)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	o := ledger.Overview{
		Expenses: []core.Expense{
			{ID: 1, Date: mustDate(t, "2025-03-02"), Item: "Beras", Category: "Kebutuhan Bulanan", Amount: 70000, Qty: 5, Unit: "kg"},
			{ID: 2, Date: mustDate(t, "2025-03-09"), Item: "Snack", Category: "Snack", Amount: 12000, Qty: 2, Unit: "bks"},
		},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, o); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	rows, _, err := ParseCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for i, want := range o.Expenses {
		got := rows[i]
		if got.Date != want.Date || got.Item != want.Item || got.Category != want.Category ||
			got.Amount != want.Amount || got.Qty != want.Qty || got.Unit != want.Unit {
			t.Fatalf("row %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	o := ledger.Overview{
		MonthKey:    "2025-03",
		PeriodLabel: "1 Mar - 31 Mar 2025",
		Budget:      500000,
		TotalSpent:  82000,
		Balance:     418000,
		Expenses: []core.Expense{
			{ID: 1, Date: mustDate(t, "2025-03-02"), Item: "Beras", Category: "Kebutuhan Bulanan", Amount: 70000, Qty: 5, Unit: "kg"},
			{ID: 2, Date: mustDate(t, "2025-03-09"), Item: "Snack", Category: "Snack", Amount: 12000, Qty: 2, Unit: "bks"},
		},
	}

	var buf bytes.Buffer
	if err := ExportXLSX(&buf, o); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	rows, _, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ParseXLSX: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Item != "Beras" || rows[0].Amount != 70000 {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].Date.MonthKey() != "2025-03" {
		t.Fatalf("row 1 month = %s", rows[1].Date.MonthKey())
	}
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
