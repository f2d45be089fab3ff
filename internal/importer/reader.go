package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoHeader        = errors.New("no header row found (need at least two known column names)")
	ErrUnsupportedFile = errors.New("unsupported file type (use .xlsx or .csv)")
	ErrEmptyFile       = errors.New("file has no rows")
)

// Strategy names how a table was read.
type Strategy string

const (
	StrategyFirstRow Strategy = "first_row"
	StrategyDetected Strategy = "detected_header"
	StrategyRawCells Strategy = "raw_cells"
	StrategyCSV      Strategy = "csv"
)

// Table is a sheet with its header located.
type Table struct {
	Sheet     string
	Header    []string
	HeaderRow int // zero-based index in the source sheet
	Rows      [][]string
	Lines     []int // 1-based source line of each entry in Rows, when known
	Strategy  Strategy
}

// Line returns the 1-based source line of Rows[i].
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return t.HeaderRow + 2 + i
}

// ReadTable reads an uploaded .xlsx or .csv file and locates the header.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(r)
	case ".csv":
		return readCSV(r)
	}
	return nil, ErrUnsupportedFile
}

// readWorkbook tries, per sheet: the first row as header, a detected header
// row, then decoding the used cell range cell by cell.
func readWorkbook(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sawRows := false
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err == nil && len(rows) > 0 {
			sawRows = true
			if t := fromRows(sheet, rows); t != nil {
				return t, nil
			}
		}

		raw, err := rawCells(f, sheet, rows)
		if err != nil || len(raw) == 0 {
			continue
		}
		sawRows = true
		if idx, ok := DetectHeaderRow(raw); ok {
			return &Table{
				Sheet:     sheet,
				Header:    raw[idx],
				HeaderRow: idx,
				Rows:      raw[idx+1:],
				Strategy:  StrategyRawCells,
			}, nil
		}
	}

	if !sawRows {
		return nil, ErrEmptyFile
	}
	return nil, ErrNoHeader
}

func fromRows(sheet string, rows [][]string) *Table {
	if countKnown(rows[0]) >= MinHeaderMatches {
		return &Table{Sheet: sheet, Header: rows[0], Rows: rows[1:], Strategy: StrategyFirstRow}
	}
	if idx, ok := DetectHeaderRow(rows); ok {
		return &Table{Sheet: sheet, Header: rows[idx], HeaderRow: idx, Rows: rows[idx+1:], Strategy: StrategyDetected}
	}
	return nil
}

// rawCells reads the sheet cell by cell with GetCellValue, which also
// picks up cells GetRows skips: every cell of a merged range carries the
// range's value. The range read covers the declared dimension, the rows
// already seen and every merged range.
func rawCells(f *excelize.File, sheet string, rows [][]string) ([][]string, error) {
	c1, r1, c2, r2 := 1, 1, 0, len(rows)
	for _, row := range rows {
		c2 = max(c2, len(row))
	}
	extend := func(ref string) error {
		c, r, err := excelize.CellNameToCoordinates(ref)
		if err != nil {
			return err
		}
		c2, r2 = max(c2, c), max(r2, r)
		return nil
	}

	dim, err := f.GetSheetDimension(sheet)
	if err != nil {
		return nil, err
	}
	if dim != "" {
		parts := strings.SplitN(dim, ":", 2)
		if err := extend(parts[len(parts)-1]); err != nil {
			return nil, fmt.Errorf("unexpected sheet dimension %q: %w", dim, err)
		}
	}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}
	for _, m := range merged {
		if err := extend(m.GetEndAxis()); err != nil {
			return nil, err
		}
	}
	if c2 == 0 || r2 == 0 {
		return nil, nil
	}

	out := make([][]string, 0, r2-r1+1)
	for row := r1; row <= r2; row++ {
		line := make([]string, 0, c2-c1+1)
		for col := c1; col <= c2; col++ {
			name, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}
			v, err := f.GetCellValue(sheet, name)
			if err != nil {
				return nil, err
			}
			line = append(line, v)
		}
		out = append(out, line)
	}
	return out, nil
}

func readCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	// The reader skips blank lines, so each record keeps its own line.
	var rows [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	idx, ok := DetectHeaderRow(rows)
	if !ok {
		return nil, ErrNoHeader
	}
	return &Table{
		Header:    rows[idx],
		HeaderRow: lines[idx] - 1,
		Rows:      rows[idx+1:],
		Lines:     lines[idx+1:],
		Strategy:  StrategyCSV,
	}, nil
}

func countKnown(row []string) int {
	n := 0
	for _, cell := range row {
		if _, ok := LookupHeader(cell); ok {
			n++
		}
	}
	return n
}
