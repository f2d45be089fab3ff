package importer

import (
	"fmt"
	"io"

	"asset-tracker-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	AssetSheet    = "Assets"
	XLSXMediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TemplateHeaders are the import columns, in template order.
var TemplateHeaders = []string{
	"Name", "Model Number", "Serial Number", "MAC Address", "Manufacturer",
	"Category", "Product Name", "Store", "Location", "Status", "Condition",
	"Ticket Number", "Vendor", "Source",
}

var exportHeaders = append(append([]string{}, TemplateHeaders...),
	"Display Status", "Assigned To", "Return Pending", "Created At")

func newWorkbook(headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", AssetSheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(AssetSheet, "A1", &headers); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(AssetSheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(AssetSheet, "A", lastCol, 18); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteTemplate writes an empty import workbook with one example row.
func WriteTemplate(w io.Writer) error {
	f, err := newWorkbook(TemplateHeaders)
	if err != nil {
		return fmt.Errorf("creating template: %w", err)
	}
	defer f.Close()

	example := []any{
		"Dell Latitude 5440", "LAT-5440", "SN12345678", "00:1A:2B:3C:4D:5E", "Dell",
		"Laptops", "Latitude 5440", "", "IT Room", "New", "Good",
		"", "", "Purchase",
	}
	if err := f.SetSheetRow(AssetSheet, "A2", &example); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteAssets writes assets in export order. storeName resolves a store ID
// to its name.
func WriteAssets(w io.Writer, assets []models.Asset, storeName func(*uint) string) error {
	f, err := newWorkbook(exportHeaders)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	defer f.Close()

	for i, a := range assets {
		assigned := a.AssignedExternal.Name
		if a.AssignedTo != nil {
			assigned = a.AssignedTo.Name
		}
		row := []any{
			a.Name, a.ModelNumber, a.SerialNumber, a.MacAddress, a.Manufacturer,
			a.Category, a.ProductName, storeName(a.StoreID), a.Location, a.Status, a.Condition,
			a.TicketNumber, a.VendorName, a.Source,
			a.Display().Label, assigned, a.ReturnPending, a.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(AssetSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}
