package importer

import (
	"strconv"
	"strings"
)

// Row is one mapped data row. Line is the 1-based spreadsheet row number.
type Row struct {
	Line         int    `json:"line"`
	Name         string `json:"name"`
	ModelNumber  string `json:"model_number"`
	SerialNumber string `json:"serial_number"`
	MacAddress   string `json:"mac_address"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
	ProductName  string `json:"product_name"`
	Store        string `json:"store"`
	Location     string `json:"location"`
	Status       string `json:"status"`
	Condition    string `json:"condition"`
	TicketNumber string `json:"ticket_number"`
	Vendor       string `json:"vendor"`
	Source       string `json:"source"`
}

type InvalidRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type SkippedDuplicate struct {
	Line         int    `json:"line"`
	SerialNumber string `json:"serial_number"`
	Reason       string `json:"reason"`
}

// Defaults fill columns the file leaves empty.
type Defaults struct {
	Source   string
	Vendor   string
	Location string
	Status   string
}

// MapRows converts table rows to Rows. Blank rows are dropped; rows that
// name nothing identifiable are reported as invalid.
func MapRows(t *Table, def Defaults) ([]Row, []InvalidRow) {
	cols := columnMap(t.Header)

	var out []Row
	var invalid []InvalidRow
	for i, cells := range t.Rows {
		values := make(map[Field]string, len(cols))
		blank := true
		for idx, field := range cols {
			if idx >= len(cells) {
				continue
			}
			v := strings.TrimSpace(cells[idx])
			if v != "" {
				blank = false
				values[field] = v
			}
		}
		if blank {
			continue
		}

		row := Row{
			Line:         t.Line(i),
			Name:         values[FieldName],
			ModelNumber:  values[FieldModelNumber],
			SerialNumber: values[FieldSerialNumber],
			MacAddress:   values[FieldMacAddress],
			Manufacturer: values[FieldManufacturer],
			Category:     values[FieldCategory],
			ProductName:  values[FieldProductName],
			Store:        values[FieldStore],
			Location:     values[FieldLocation],
			Status:       values[FieldStatus],
			Condition:    values[FieldCondition],
			TicketNumber: values[FieldTicketNumber],
			Vendor:       values[FieldVendor],
			Source:       values[FieldSource],
		}
		if row.ProductName == "" {
			row.ProductName = values[FieldAssetType]
		}
		if row.Name == "" {
			row.Name = firstNonEmpty(row.ProductName, row.ModelNumber)
		}
		row.Source = firstNonEmpty(row.Source, def.Source)
		row.Vendor = firstNonEmpty(row.Vendor, def.Vendor)
		row.Location = firstNonEmpty(row.Location, def.Location)
		row.Status = firstNonEmpty(row.Status, def.Status, "New")

		if row.Name == "" && row.SerialNumber == "" {
			invalid = append(invalid, InvalidRow{Line: row.Line, Reason: "missing name, product and serial number"})
			continue
		}
		out = append(out, row)
	}
	return out, invalid
}

// ExistsFunc reports whether serial is already stored in the store that
// storeKey identifies.
type ExistsFunc func(storeKey uint, serial string) bool

// Dedupe applies the duplicate policy. Without allowDuplicates a serial
// seen earlier in the same upload, or already present in the row's store,
// is skipped. Rows without a serial number are never duplicates.
func Dedupe(rows []Row, storeKey func(Row) uint, exists ExistsFunc, allowDuplicates bool) ([]Row, []SkippedDuplicate) {
	if allowDuplicates {
		return rows, nil
	}

	seen := make(map[string]int)
	keep := make([]Row, 0, len(rows))
	var skipped []SkippedDuplicate
	for _, r := range rows {
		serial := strings.ToLower(strings.TrimSpace(r.SerialNumber))
		if serial == "" {
			keep = append(keep, r)
			continue
		}
		if line, ok := seen[serial]; ok {
			skipped = append(skipped, SkippedDuplicate{
				Line:         r.Line,
				SerialNumber: r.SerialNumber,
				Reason:       "duplicate of row " + strconv.Itoa(line) + " in this file",
			})
			continue
		}
		seen[serial] = r.Line
		if exists != nil && exists(storeKey(r), serial) {
			skipped = append(skipped, SkippedDuplicate{
				Line:         r.Line,
				SerialNumber: r.SerialNumber,
				Reason:       "serial number already exists in this store",
			})
			continue
		}
		keep = append(keep, r)
	}
	return keep, skipped
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
