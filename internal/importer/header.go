// Package importer reads asset spreadsheets with loosely named columns and
// writes the export and template workbooks.
package importer

import "strings"

// Field is a canonical import column.
type Field string

const (
	FieldName         Field = "name"
	FieldModelNumber  Field = "model_number"
	FieldSerialNumber Field = "serial_number"
	FieldMacAddress   Field = "mac_address"
	FieldManufacturer Field = "manufacturer"
	FieldCategory     Field = "category"
	FieldProductName  Field = "product_name"
	FieldAssetType    Field = "asset_type"
	FieldStore        Field = "store"
	FieldLocation     Field = "location"
	FieldStatus       Field = "status"
	FieldCondition    Field = "condition"
	FieldTicketNumber Field = "ticket_number"
	FieldVendor       Field = "vendor"
	FieldSource       Field = "source"
)

// headerAliases maps normalized header text to a field.
var headerAliases = map[string]Field{
	"name":          FieldName,
	"asset name":    FieldName,
	"item":          FieldName,
	"item name":     FieldName,
	"description":   FieldName,
	"model":         FieldModelNumber,
	"model number":  FieldModelNumber,
	"model no":      FieldModelNumber,
	"model #":       FieldModelNumber,
	"serial":        FieldSerialNumber,
	"serial number": FieldSerialNumber,
	"serial no":     FieldSerialNumber,
	"s/n":           FieldSerialNumber,
	"sn":            FieldSerialNumber,
	"mac":           FieldMacAddress,
	"mac address":   FieldMacAddress,
	"manufacturer":  FieldManufacturer,
	"brand":         FieldManufacturer,
	"make":          FieldManufacturer,
	"category":      FieldCategory,
	"product":       FieldProductName,
	"product name":  FieldProductName,
	"asset type":    FieldAssetType,
	"type":          FieldAssetType,
	"store":         FieldStore,
	"store name":    FieldStore,
	"location":      FieldLocation,
	"status":        FieldStatus,
	"condition":     FieldCondition,
	"ticket":        FieldTicketNumber,
	"ticket number": FieldTicketNumber,
	"ticket no":     FieldTicketNumber,
	"vendor":        FieldVendor,
	"vendor name":   FieldVendor,
	"supplier":      FieldVendor,
	"source":        FieldSource,
}

// MinHeaderMatches is how many known headers a row needs to count as the
// header row.
const MinHeaderMatches = 2

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ", ".", "", ":", "", "\u00a0", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// LookupHeader returns the field a header cell names.
func LookupHeader(cell string) (Field, bool) {
	f, ok := headerAliases[normalizeHeader(cell)]
	return f, ok
}

// DetectHeaderRow returns the index of the first row with at least
// MinHeaderMatches known header cells.
func DetectHeaderRow(rows [][]string) (int, bool) {
	for i, row := range rows {
		matches := 0
		for _, cell := range row {
			if _, ok := LookupHeader(cell); ok {
				matches++
			}
		}
		if matches >= MinHeaderMatches {
			return i, true
		}
	}
	return 0, false
}

// columnMap maps column index to field; the first column for a field wins.
func columnMap(header []string) map[int]Field {
	out := make(map[int]Field, len(header))
	seen := make(map[Field]bool)
	for i, cell := range header {
		f, ok := LookupHeader(cell)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		out[i] = f
	}
	return out
}
