package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/importer"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ImportReport struct {
	Message           string                      `json:"message"`
	Created           int                         `json:"created"`
	SkippedDuplicates []importer.SkippedDuplicate `json:"skipped_duplicates"`
	InvalidRows       []importer.InvalidRow       `json:"invalid_rows"`
	Strategy          importer.Strategy           `json:"strategy,omitempty"`
}

// storeResolver maps the store column of a row to a visible store.
type storeResolver struct {
	byName   map[string]uint
	fallback *uint
}

func newStoreResolver(c *fiber.Ctx, fallback *uint) (*storeResolver, error) {
	var stores []models.Store
	if err := tenant.FromCtx(c).Apply(database.DB.Model(&models.Store{}), "id").Find(&stores).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not load stores")
	}
	r := &storeResolver{byName: make(map[string]uint, len(stores)), fallback: fallback}
	for _, s := range stores {
		r.byName[strings.ToLower(strings.TrimSpace(s.Name))] = s.ID
	}
	return r, nil
}

func (r *storeResolver) resolve(name string) (*uint, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return r.fallback, nil
	}
	id, ok := r.byName[name]
	if !ok {
		return nil, errors.New("unknown store or store outside your scope")
	}
	return &id, nil
}

func storeKey(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}

// existingSerials indexes the stored serials that appear in rows, by store.
func existingSerials(db *gorm.DB, rows []importer.Row) (map[uint]map[string]bool, error) {
	var serials []string
	for _, r := range rows {
		if s := strings.ToLower(strings.TrimSpace(r.SerialNumber)); s != "" {
			serials = append(serials, s)
		}
	}
	index := make(map[uint]map[string]bool)
	if len(serials) == 0 {
		return index, nil
	}

	var found []struct {
		StoreID *uint
		Serial  string
	}
	if err := db.Model(&models.Asset{}).
		Select("store_id, LOWER(serial_number) AS serial").
		Where("LOWER(serial_number) IN ?", serials).
		Scan(&found).Error; err != nil {
		return nil, fmt.Errorf("loading existing serials: %w", err)
	}
	for _, f := range found {
		k := storeKey(f.StoreID)
		if index[k] == nil {
			index[k] = make(map[string]bool)
		}
		index[k][f.Serial] = true
	}
	return index, nil
}

// insertRows creates one asset per row. Every row runs in its own
// transaction so a failing row never aborts the others.
func insertRows(c *fiber.Ctx, rows []importer.Row, invalid []importer.InvalidRow, allowDuplicates bool, fallback *uint, action string) (*ImportReport, error) {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return nil, err
	}
	resolver, err := newStoreResolver(c, fallback)
	if err != nil {
		return nil, err
	}

	stores := make(map[int]*uint, len(rows))
	resolved := make([]importer.Row, 0, len(rows))
	for _, r := range rows {
		id, err := resolver.resolve(r.Store)
		if err != nil {
			invalid = append(invalid, importer.InvalidRow{Line: r.Line, Reason: err.Error()})
			continue
		}
		stores[r.Line] = id
		resolved = append(resolved, r)
	}

	index, err := existingSerials(database.DB, resolved)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not check serial numbers")
	}
	keep, skipped := importer.Dedupe(resolved,
		func(r importer.Row) uint { return storeKey(stores[r.Line]) },
		func(store uint, serial string) bool { return index[store][serial] },
		allowDuplicates,
	)

	report := &ImportReport{
		SkippedDuplicates: skipped,
		InvalidRows:       invalid,
	}
	var storeForLog *uint
	for _, r := range keep {
		a := assetFromRow(r, stores[r.Line], user.ID)
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			return commitTx(tx, user, change{Asset: &a, Action: action, Ticket: r.TicketNumber})
		})
		if err != nil {
			report.InvalidRows = append(report.InvalidRows, importer.InvalidRow{Line: r.Line, Reason: "could not save row"})
			continue
		}
		report.Created++
		if storeForLog == nil {
			storeForLog = a.StoreID
		}
	}

	if report.SkippedDuplicates == nil {
		report.SkippedDuplicates = []importer.SkippedDuplicate{}
	}
	if report.InvalidRows == nil {
		report.InvalidRows = []importer.InvalidRow{}
	}
	report.Message = fmt.Sprintf("%d assets imported, %d duplicates skipped, %d invalid rows",
		report.Created, len(report.SkippedDuplicates), len(report.InvalidRows))

	audit.Record(c, audit.LogOptions{
		StoreID:     storeForLog,
		EntityType:  entityAsset,
		Action:      audit.ActionImport,
		Description: report.Message,
		Details: map[string]any{
			"created":            report.Created,
			"skipped_duplicates": len(report.SkippedDuplicates),
			"invalid_rows":       len(report.InvalidRows),
		},
	})
	return report, nil
}

func assetFromRow(r importer.Row, storeID *uint, createdBy uint) models.Asset {
	return models.Asset{
		Name:         r.Name,
		ModelNumber:  r.ModelNumber,
		SerialNumber: r.SerialNumber,
		MacAddress:   r.MacAddress,
		Manufacturer: r.Manufacturer,
		Category:     r.Category,
		ProductName:  r.ProductName,
		StoreID:      storeID,
		Location:     r.Location,
		Status:       r.Status,
		Condition:    r.Condition,
		TicketNumber: r.TicketNumber,
		VendorName:   r.Vendor,
		Source:       r.Source,
		CreatedByID:  &createdBy,
	}
}

type BulkCreateRequest struct {
	Assets          []importer.Row `json:"assets"`
	StoreID         *uint          `json:"store_id"`
	AllowDuplicates bool           `json:"allow_duplicates"`
}

// POST /api/assets/bulk
func BulkCreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkCreateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.Assets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "No assets given")
		}
		fallback, err := tenant.WriteStore(c, body.StoreID)
		if err != nil {
			return err
		}

		var rows []importer.Row
		var invalid []importer.InvalidRow
		for i, r := range body.Assets {
			r.Line = i + 1
			r.Name = strings.TrimSpace(r.Name)
			if r.Name == "" {
				r.Name = strings.TrimSpace(r.ProductName)
			}
			if strings.TrimSpace(r.Status) == "" {
				r.Status = "New"
			}
			if r.Name == "" {
				invalid = append(invalid, importer.InvalidRow{Line: r.Line, Reason: "missing name"})
				continue
			}
			rows = append(rows, r)
		}

		report, err := insertRows(c, rows, invalid, body.AllowDuplicates, fallback, models.ActionCreated)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

type BulkUpdateRequest struct {
	IDs          []uint  `json:"ids"`
	Status       *string `json:"status"`
	Condition    *string `json:"condition"`
	Location     *string `json:"location"`
	StoreID      *uint   `json:"store_id"`
	TicketNumber string  `json:"ticket_number"`
}

// POST /api/assets/bulk-update
func BulkUpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkUpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.IDs) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "No assets selected")
		}
		if body.StoreID != nil {
			if err := tenant.Check(c, body.StoreID); err != nil {
				return err
			}
		}
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		q, err := scopedAssets(c)
		if err != nil {
			return err
		}
		var assets []models.Asset
		if err := q.Where("assets.id IN ?", body.IDs).Find(&assets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load assets")
		}

		updated := 0
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			for i := range assets {
				a := &assets[i]
				var changed []string
				for _, f := range []struct {
					name     string
					dst, src *string
				}{
					{"status", &a.Status, body.Status},
					{"condition", &a.Condition, body.Condition},
					{"location", &a.Location, body.Location},
				} {
					if optionalString(f.dst, f.src) {
						changed = append(changed, f.name)
					}
				}
				if body.StoreID != nil && storeKey(a.StoreID) != *body.StoreID {
					id := *body.StoreID
					a.StoreID = &id
					changed = append(changed, "store_id")
				}
				if len(changed) == 0 {
					continue
				}
				if err := commitTx(tx, user, change{
					Asset:   a,
					Action:  models.ActionBulkUpdated,
					Ticket:  body.TicketNumber,
					Details: "Changed: " + strings.Join(changed, ", "),
				}); err != nil {
					return err
				}
				updated++
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update assets")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  entityAsset,
			Action:      audit.ActionBulk,
			Description: fmt.Sprintf("%d assets bulk updated", updated),
			Details:     map[string]any{"ids": body.IDs},
		})
		return c.JSON(fiber.Map{"message": fmt.Sprintf("%d assets updated", updated), "updated": updated})
	}
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

// POST /api/assets/bulk-delete
func BulkDeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkDeleteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.IDs) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "No assets selected")
		}

		q, err := scopedAssets(c)
		if err != nil {
			return err
		}
		var ids []uint
		if err := q.Where("assets.id IN ?", body.IDs).Pluck("assets.id", &ids).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load assets")
		}
		if err := deleteAssets(database.DB, ids); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete assets")
		}

		audit.Record(c, audit.LogOptions{
			EntityType:  entityAsset,
			Action:      audit.ActionDelete,
			Description: fmt.Sprintf("%d assets bulk deleted", len(ids)),
			Details:     map[string]any{"ids": ids},
		})
		return c.JSON(fiber.Map{"message": fmt.Sprintf("%d assets deleted", len(ids)), "deleted": len(ids)})
	}
}

// POST /api/assets/import (multipart: file, allowDuplicates, source, vendor, location, store)
func ImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File is required")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not open file")
		}
		defer f.Close()

		table, err := importer.ReadTable(fh.Filename, f)
		if err != nil {
			switch {
			case errors.Is(err, importer.ErrUnsupportedFile), errors.Is(err, importer.ErrNoHeader), errors.Is(err, importer.ErrEmptyFile):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusBadRequest, "Could not read spreadsheet: "+err.Error())
		}

		var requested *uint
		if id, err := tenant.ParseStoreID(c.FormValue("store")); err == nil {
			requested = &id
		}
		fallback, err := tenant.WriteStore(c, requested)
		if err != nil {
			return err
		}

		rows, invalid := importer.MapRows(table, importer.Defaults{
			Source:   c.FormValue("source"),
			Vendor:   c.FormValue("vendor"),
			Location: c.FormValue("location"),
		})
		allow := formBool(c.FormValue("allowDuplicates")) || formBool(c.FormValue("allow_duplicates"))

		report, err := insertRows(c, rows, invalid, allow, fallback, models.ActionImported)
		if err != nil {
			return err
		}
		report.Strategy = table.Strategy
		return c.JSON(report)
	}
}

// GET /api/assets/export (same filters as the list)
func ExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := scopedAssets(c)
		if err != nil {
			return err
		}
		var assets []models.Asset
		if err := applyFilters(c, q).Preload("AssignedTo").
			Order("assets.created_at DESC, assets.id DESC").
			Find(&assets).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load assets")
		}

		var stores []models.Store
		if err := database.DB.Select("id", "name").Find(&stores).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load stores")
		}
		names := make(map[uint]string, len(stores))
		for _, s := range stores {
			names[s.ID] = s.Name
		}

		var buf bytes.Buffer
		if err := importer.WriteAssets(&buf, assets, func(id *uint) string {
			if id == nil {
				return ""
			}
			return names[*id]
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build export")
		}
		return sendWorkbook(c, fmt.Sprintf("assets-%s.xlsx", time.Now().Format("20060102")), buf.Bytes())
	}
}

// GET /api/assets/template
func TemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := importer.WriteTemplate(&buf); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build template")
		}
		return sendWorkbook(c, "asset-import-template.xlsx", buf.Bytes())
	}
}

func sendWorkbook(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, importer.XLSXMediaType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

func formBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
