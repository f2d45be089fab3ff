package dashboard

import (
	"fmt"

	"asset-tracker-backend/internal/assetstate"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const recentActivityLimit = 10

type StateCount struct {
	State assetstate.State `json:"state"`
	Label string           `json:"label"`
	Count int64            `json:"count"`
}

type StoreCount struct {
	StoreID   *uint  `json:"store_id"`
	StoreName string `json:"store_name"`
	Count     int64  `json:"count"`
}

type Summary struct {
	TotalAssets    int64                `json:"total_assets"`
	ByState        []StateCount         `json:"by_state"`
	ByStore        []StoreCount         `json:"by_store"`
	PendingReturns int64                `json:"pending_returns"`
	OpenRequests   int64                `json:"open_requests"`
	OpenPasses     int64                `json:"open_passes"`
	OpenOrders     int64                `json:"open_orders"`
	RecentActivity []models.ActivityLog `json:"recent_activity"`
}

// Summarize counts assets and open work inside scope. Every canonical state
// is listed, with zero when no asset has it.
func Summarize(db *gorm.DB, scope tenant.Scope) (*Summary, error) {
	filter, err := scope.AssetFilter(db)
	if err != nil {
		return nil, err
	}
	assets := func() *gorm.DB { return db.Model(&models.Asset{}).Scopes(filter) }

	s := &Summary{}
	if err := assets().Count(&s.TotalAssets).Error; err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}

	var stateRows []struct {
		State assetstate.State
		Count int64
	}
	if err := assets().Select("state, COUNT(*) AS count").Group("state").Scan(&stateRows).Error; err != nil {
		return nil, fmt.Errorf("counting states: %w", err)
	}
	byState := make(map[assetstate.State]int64, len(stateRows))
	for _, r := range stateRows {
		byState[r.State] += r.Count
	}
	for _, st := range assetstate.All() {
		s.ByState = append(s.ByState, StateCount{State: st, Label: st.Label(), Count: byState[st]})
	}

	var storeRows []struct {
		StoreID *uint
		Count   int64
	}
	if err := assets().Select("store_id, COUNT(*) AS count").Group("store_id").Scan(&storeRows).Error; err != nil {
		return nil, fmt.Errorf("counting stores: %w", err)
	}
	names, err := storeNames(db)
	if err != nil {
		return nil, err
	}
	for _, r := range storeRows {
		name := "Unassigned"
		if r.StoreID != nil {
			name = names[*r.StoreID]
		}
		s.ByStore = append(s.ByStore, StoreCount{StoreID: r.StoreID, StoreName: name, Count: r.Count})
	}

	if err := assets().Where("return_pending = ?", true).Count(&s.PendingReturns).Error; err != nil {
		return nil, fmt.Errorf("counting returns: %w", err)
	}
	open := []struct {
		dst    *int64
		model  any
		status any
	}{
		{&s.OpenRequests, &models.Request{}, []models.RequestStatus{models.RequestPending, models.RequestApproved}},
		{&s.OpenPasses, &models.Pass{}, []models.PassStatus{models.PassOpen}},
		{&s.OpenOrders, &models.PurchaseOrder{}, []models.PurchaseOrderStatus{models.PODraft, models.POOrdered}},
	}
	for _, o := range open {
		q := scope.Apply(db.Model(o.model), "store_id").Where("status IN ?", o.status)
		if err := q.Count(o.dst).Error; err != nil {
			return nil, fmt.Errorf("counting open work: %w", err)
		}
	}

	if err := scope.Apply(db.Model(&models.ActivityLog{}), "store_id").
		Order("created_at desc").Order("id desc").Limit(recentActivityLimit).
		Find(&s.RecentActivity).Error; err != nil {
		return nil, fmt.Errorf("loading activity: %w", err)
	}
	return s, nil
}

func storeNames(db *gorm.DB) (map[uint]string, error) {
	var stores []models.Store
	if err := db.Select("id", "name").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("loading stores: %w", err)
	}
	m := make(map[uint]string, len(stores))
	for _, st := range stores {
		m[st.ID] = st.Name
	}
	return m, nil
}

// GET /api/dashboard/summary
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := Summarize(database.DB, tenant.FromCtx(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build dashboard")
		}
		return c.JSON(s)
	}
}
