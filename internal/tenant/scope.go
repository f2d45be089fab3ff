// Package tenant resolves which stores a request may see.
package tenant

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"asset-tracker-backend/internal/models"

	"gorm.io/gorm"
)

// HeaderActiveStore carries the store the client is currently working in.
const HeaderActiveStore = "x-active-store"

var ErrStoreNotFound = errors.New("store not found")

// Scope is the set of store IDs a request is limited to. The zero value is
// unrestricted; a non-nil empty set denies everything.
type Scope struct {
	ids []uint
}

func Unrestricted() Scope { return Scope{} }

func DenyAll() Scope { return Scope{ids: []uint{}} }

// Restrict limits the scope to ids. An empty list denies everything.
func Restrict(ids []uint) Scope {
	if len(ids) == 0 {
		return DenyAll()
	}
	return Scope{ids: slices.Clone(ids)}
}

func (s Scope) IsUnrestricted() bool { return s.ids == nil }

func (s Scope) IsDenyAll() bool { return s.ids != nil && len(s.ids) == 0 }

// IDs returns nil when unrestricted.
func (s Scope) IDs() []uint {
	if s.ids == nil {
		return nil
	}
	return slices.Clone(s.ids)
}

// Allows reports whether a record owned by storeID is visible. Records
// without a store are only visible to unrestricted scopes.
func (s Scope) Allows(storeID *uint) bool {
	if s.IsUnrestricted() {
		return true
	}
	if storeID == nil {
		return false
	}
	return slices.Contains(s.ids, *storeID)
}

// AllowsID is Allows for a concrete ID.
func (s Scope) AllowsID(storeID uint) bool {
	return s.Allows(&storeID)
}

// Narrow limits s to a single store the caller asked for explicitly. A
// store outside s yields deny-all.
func (s Scope) Narrow(storeID uint) Scope {
	if !s.AllowsID(storeID) {
		return DenyAll()
	}
	return Restrict([]uint{storeID})
}

// Apply filters db on column ("store_id", "assets.store_id", ...).
func (s Scope) Apply(db *gorm.DB, column string) *gorm.DB {
	switch {
	case s.IsUnrestricted():
		return db
	case s.IsDenyAll():
		return db.Where("1 = 0")
	}
	return db.Where(column+" IN ?", s.ids)
}

// ApplyAssets is Apply for the assets table plus the legacy location match:
// an asset without a store reference belongs to a store when its free-text
// location equals the store name, ignoring case.
func (s Scope) ApplyAssets(db *gorm.DB, storeNames []string) *gorm.DB {
	if s.IsUnrestricted() || s.IsDenyAll() || len(storeNames) == 0 {
		return s.Apply(db, "assets.store_id")
	}
	lowered := make([]string, 0, len(storeNames))
	for _, n := range storeNames {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			lowered = append(lowered, n)
		}
	}
	if len(lowered) == 0 {
		return s.Apply(db, "assets.store_id")
	}
	return db.Where(
		"((assets.store_id IN ?) OR (assets.store_id IS NULL AND LOWER(assets.location) IN ?))",
		s.ids, lowered,
	)
}

// ApplyShared is Apply that also keeps rows without a store, which are
// shared catalog entries visible to everyone.
func (s Scope) ApplyShared(db *gorm.DB, column string) *gorm.DB {
	switch {
	case s.IsUnrestricted():
		return db
	case s.IsDenyAll():
		return db.Where(column + " IS NULL")
	}
	return db.Where("("+column+" IN ? OR "+column+" IS NULL)", s.ids)
}

// AssetFilter loads the store names needed by ApplyAssets and returns a
// gorm scope for queries on the assets table.
func (s Scope) AssetFilter(conn *gorm.DB) (func(*gorm.DB) *gorm.DB, error) {
	var names []string
	if !s.IsUnrestricted() && !s.IsDenyAll() {
		var err error
		if names, err = StoreNames(conn, s.ids); err != nil {
			return nil, err
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		return s.ApplyAssets(db, names)
	}, nil
}

func (s Scope) String() string {
	switch {
	case s.IsUnrestricted():
		return "all"
	case s.IsDenyAll():
		return "none"
	}
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// GetStoreIds returns storeID followed by its direct child stores. A zero
// storeID yields an empty list.
func GetStoreIds(db *gorm.DB, storeID uint) ([]uint, error) {
	if storeID == 0 {
		return []uint{}, nil
	}

	var children []uint
	if err := db.Model(&models.Store{}).
		Where("parent_store_id = ?", storeID).
		Order("id asc").
		Pluck("id", &children).Error; err != nil {
		return nil, fmt.Errorf("loading child stores of %d: %w", storeID, err)
	}

	ids := make([]uint, 0, len(children)+1)
	ids = append(ids, storeID)
	for _, c := range children {
		if c != storeID {
			ids = append(ids, c)
		}
	}
	return ids, nil
}

// StoreNames returns the names of the stores in ids.
func StoreNames(db *gorm.DB, ids []uint) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var names []string
	if err := db.Model(&models.Store{}).Where("id IN ?", ids).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("loading store names: %w", err)
	}
	return names, nil
}

// Resolve computes the scope for a user with role and assignedStore, given
// the raw value of the active-store header.
func Resolve(db *gorm.DB, role models.UserRole, assignedStore *uint, activeStore string) (Scope, error) {
	activeStore = strings.TrimSpace(activeStore)

	if role == models.RoleSuperAdmin {
		if activeStore == "" || strings.EqualFold(activeStore, "all") {
			return Unrestricted(), nil
		}
		id, err := ParseStoreID(activeStore)
		if err != nil {
			return DenyAll(), nil
		}
		if err := storeExists(db, id); err != nil {
			if errors.Is(err, ErrStoreNotFound) {
				return DenyAll(), nil
			}
			return Scope{}, err
		}
		ids, err := GetStoreIds(db, id)
		if err != nil {
			return Scope{}, err
		}
		return Restrict(ids), nil
	}

	if assignedStore == nil || *assignedStore == 0 {
		return DenyAll(), nil
	}
	allowed, err := GetStoreIds(db, *assignedStore)
	if err != nil {
		return Scope{}, err
	}
	if activeStore == "" || strings.EqualFold(activeStore, "all") {
		return Restrict(allowed), nil
	}

	id, err := ParseStoreID(activeStore)
	if err != nil || !slices.Contains(allowed, id) {
		return DenyAll(), nil
	}
	ids, err := GetStoreIds(db, id)
	if err != nil {
		return Scope{}, err
	}
	return Restrict(ids), nil
}

func ParseStoreID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid store id %q", s)
	}
	return uint(n), nil
}

func storeExists(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Store{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrStoreNotFound
	}
	return nil
}
