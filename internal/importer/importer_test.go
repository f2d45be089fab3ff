package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"asset-tracker-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestDetectHeaderRow(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want int
		ok   bool
	}{
		{"first row", [][]string{{"Name", "Serial Number"}, {"a", "1"}}, 0, true},
		{"after title rows", [][]string{{"Inventory 2024"}, {}, {"", "SERIAL NO.", "model"}}, 2, true},
		{"single match is not enough", [][]string{{"Name", "foo"}, {"bar", "baz"}}, 0, false},
		{"empty", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectHeaderRow(tt.rows)
			if got != tt.want || ok != tt.ok {
				t.Errorf("DetectHeaderRow = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestReadTableFirstRowHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Serial Number", "Model"},
		{"Laptop", "SN1", "L-1"},
	})
	tbl, err := ReadTable("assets.xlsx", buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Strategy != StrategyFirstRow || len(tbl.Rows) != 1 {
		t.Errorf("strategy=%s rows=%d", tbl.Strategy, len(tbl.Rows))
	}
}

func TestReadTableDetectsOffsetHeader(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Quarterly stock count"},
		{"prepared by ops"},
		{"Asset Type", "S/N", "Location"},
		{"Router", "R-1", "Shelf 2"},
	})
	tbl, err := ReadTable("stock.XLSX", buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Strategy != StrategyDetected || tbl.HeaderRow != 2 {
		t.Fatalf("strategy=%s header=%d", tbl.Strategy, tbl.HeaderRow)
	}

	rows, invalid := MapRows(tbl, Defaults{})
	if len(invalid) != 0 || len(rows) != 1 {
		t.Fatalf("rows=%+v invalid=%+v", rows, invalid)
	}
	r := rows[0]
	if r.ProductName != "Router" || r.Name != "Router" {
		t.Errorf("asset type alias not applied: %+v", r)
	}
	if r.Line != 4 {
		t.Errorf("line = %d, want 4", r.Line)
	}
	if r.Status != "New" {
		t.Errorf("default status = %q", r.Status)
	}
}

func TestReadTableMergedHeaderUsesRawCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	cells := map[string]string{
		"A1": "Asset Name", "B1": "Identifiers",
		"B2": "Serial Number",
		"A3": "Laptop", "B3": "SN-1",
		"A4": "Dock", "B4": "SN-2",
	}
	for ref, v := range cells {
		if err := f.SetCellValue("Sheet1", ref, v); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}
	if err := f.MergeCell("Sheet1", "A1", "A2"); err != nil {
		t.Fatalf("MergeCell: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	tbl, err := ReadTable("two-row-header.xlsx", &buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tbl.Strategy != StrategyRawCells || tbl.HeaderRow != 1 {
		t.Fatalf("strategy=%s header=%d", tbl.Strategy, tbl.HeaderRow)
	}
	if tbl.Header[0] != "Asset Name" || tbl.Header[1] != "Serial Number" {
		t.Errorf("header = %q", tbl.Header)
	}

	rows, invalid := MapRows(tbl, Defaults{})
	if len(invalid) != 0 || len(rows) != 2 {
		t.Fatalf("rows=%+v invalid=%+v", rows, invalid)
	}
	if rows[0].Name != "Laptop" || rows[0].SerialNumber != "SN-1" || rows[0].Line != 3 {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestReadTableCSV(t *testing.T) {
	csv := "\xef\xbb\xbfname,serial number,status\nSwitch,SW-1,Used\n,,\n"
	tbl, err := ReadTable("a.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	rows, _ := MapRows(tbl, Defaults{Source: "Audit"})
	if len(rows) != 1 || rows[0].Status != "Used" || rows[0].Source != "Audit" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestReadTableCSVLinesSurviveBlankLines(t *testing.T) {
	csv := "Asset Name,Serial Number\nCam A,SN-1\n\nCam B,SN-1\n\n\nCam C,\"SN\n3\"\nCam D,\n"
	tbl, err := ReadTable("cams.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	rows, invalid := MapRows(tbl, Defaults{})
	if len(invalid) != 0 || len(rows) != 4 {
		t.Fatalf("rows=%+v invalid=%+v", rows, invalid)
	}
	wantLines := []int{2, 4, 7, 9}
	for i, r := range rows {
		if r.Line != wantLines[i] {
			t.Errorf("%s: line = %d, want %d", r.Name, r.Line, wantLines[i])
		}
	}

	_, skipped := Dedupe(rows, func(Row) uint { return 0 }, nil, false)
	if len(skipped) != 1 || skipped[0].Line != 4 || !strings.Contains(skipped[0].Reason, "row 2") {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestReadTableErrors(t *testing.T) {
	if _, err := ReadTable("a.xls", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("xls: %v", err)
	}
	buf := workbook(t, [][]any{{"foo", "bar"}, {"1", "2"}})
	if _, err := ReadTable("a.xlsx", buf); !errors.Is(err, ErrNoHeader) {
		t.Errorf("no header: %v", err)
	}
}

func TestMapRowsInvalid(t *testing.T) {
	tbl := &Table{
		Header: []string{"Name", "Serial", "Condition"},
		Rows:   [][]string{{"", "", "scratched"}, {"Phone", "", ""}},
	}
	rows, invalid := MapRows(tbl, Defaults{})
	if len(rows) != 1 || len(invalid) != 1 || invalid[0].Line != 2 {
		t.Errorf("rows=%+v invalid=%+v", rows, invalid)
	}
}

func TestDedupe(t *testing.T) {
	rows := []Row{
		{Line: 2, Name: "a", SerialNumber: "SN-1"},
		{Line: 3, Name: "b", SerialNumber: "sn-1"},
		{Line: 4, Name: "c", SerialNumber: "SN-2"},
		{Line: 5, Name: "d"},
		{Line: 6, Name: "e"},
	}
	storeKey := func(Row) uint { return 7 }
	exists := func(store uint, serial string) bool { return store == 7 && serial == "sn-2" }

	keep, skipped := Dedupe(rows, storeKey, exists, false)
	if len(keep) != 3 {
		t.Errorf("kept %d rows, want 3", len(keep))
	}
	if len(skipped) != 2 || skipped[0].Line != 3 || skipped[1].Line != 4 {
		t.Errorf("skipped = %+v", skipped)
	}

	keep, skipped = Dedupe(rows, storeKey, exists, true)
	if len(keep) != len(rows) || len(skipped) != 0 {
		t.Errorf("allowDuplicates should keep all rows")
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}
	tbl, err := ReadTable("template.xlsx", &buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	rows, invalid := MapRows(tbl, Defaults{})
	if len(rows) != 1 || len(invalid) != 0 || rows[0].SerialNumber != "SN12345678" {
		t.Errorf("template example row not importable: %+v %+v", rows, invalid)
	}
}

func TestWriteAssets(t *testing.T) {
	store := uint(3)
	assets := []models.Asset{{Name: "Cam", SerialNumber: "C1", Status: "New", StoreID: &store}}
	var buf bytes.Buffer
	err := WriteAssets(&buf, assets, func(id *uint) string {
		if id != nil && *id == 3 {
			return "HQ"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("WriteAssets: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(AssetSheet)
	if len(rows) != 2 || rows[1][7] != "HQ" || rows[1][14] != "In Store (New)" {
		t.Errorf("unexpected export rows: %v", rows)
	}
}
