// Package backup snapshots every table and hands the snapshot to sinks.
// Snapshots are not coordinated with concurrent writes.
package backup

import (
	"context"
	"fmt"
	"time"

	"asset-tracker-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Snapshot struct {
	ID      string                      `json:"id"`
	TakenAt time.Time                   `json:"taken_at"`
	Tables  map[string][]map[string]any `json:"tables"`
}

// Models lists the backed-up tables in restore order.
func Models() []any {
	return []any{
		&models.Store{},
		&models.User{},
		&models.Product{},
		&models.AssetCategory{},
		&models.Asset{},
		&models.AssetHistory{},
		&models.Request{},
		&models.Vendor{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
		&models.Pass{},
		&models.Permit{},
		&models.ActivityLog{},
	}
}

// Take reads every table into memory.
func Take(ctx context.Context, db *gorm.DB) (*Snapshot, error) {
	snap := &Snapshot{
		ID:      uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Tables:  make(map[string][]map[string]any),
	}

	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parsing model %T: %w", m, err)
		}
		table := stmt.Schema.Table

		var rows []map[string]any
		if err := db.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("reading %s: %w", table, err)
		}
		for _, row := range rows {
			normalizeRow(row)
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		snap.Tables[table] = rows
	}
	return snap, nil
}

// normalizeRow turns driver byte slices into strings so JSON and BSON
// encode them as text.
func normalizeRow(row map[string]any) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}

// Rows returns the total row count.
func (s *Snapshot) Rows() int {
	n := 0
	for _, rows := range s.Tables {
		n += len(rows)
	}
	return n
}

type Sink interface {
	Name() string
	Write(ctx context.Context, snap *Snapshot) error
}
