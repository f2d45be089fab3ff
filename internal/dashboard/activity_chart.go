package dashboard

import (
	"sort"
	"strconv"
	"time"

	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/database"
	"asset-tracker-backend/internal/models"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ChartPoint struct {
	Label    string `json:"label"` // bucket start date
	Added    int64  `json:"added"`
	Assigned int64  `json:"assigned"`
	Returned int64  `json:"returned"`
	Disposed int64  `json:"disposed"`
}

type ChartResponse struct {
	Period string       `json:"period"` // daily | weekly | monthly
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points []ChartPoint `json:"points"`
}

// Window returns the first bucket start and the exclusive end for count
// buckets of period ending with the one containing now. Weeks start on
// Monday. Unknown periods fall back to daily.
func Window(period string, count int, now time.Time) (string, time.Time, time.Time) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch period {
	case "weekly":
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		return period, monday.AddDate(0, 0, -7*(count-1)), monday.AddDate(0, 0, 7)
	case "monthly":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return period, first.AddDate(0, -(count - 1), 0), first.AddDate(0, 1, 0)
	}
	return "daily", today.AddDate(0, 0, -(count - 1)), today.AddDate(0, 0, 1)
}

// bucketOf truncates t to the start of its bucket.
func bucketOf(period string, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

// Chart buckets asset intake and lifecycle events between start and end.
// Bucketing happens in Go so the query stays portable across drivers.
func Chart(db *gorm.DB, scope tenant.Scope, period string, start, end time.Time) ([]ChartPoint, error) {
	buckets := make(map[time.Time]*ChartPoint)
	for b := start; b.Before(end); {
		buckets[b] = &ChartPoint{Label: b.Format("2006-01-02")}
		switch period {
		case "weekly":
			b = b.AddDate(0, 0, 7)
		case "monthly":
			b = b.AddDate(0, 1, 0)
		default:
			b = b.AddDate(0, 0, 1)
		}
	}
	add := func(t time.Time, f func(*ChartPoint)) {
		if p, ok := buckets[bucketOf(period, t.In(start.Location()))]; ok {
			f(p)
		}
	}

	filter, err := scope.AssetFilter(db)
	if err != nil {
		return nil, err
	}
	var created []time.Time
	if err := db.Model(&models.Asset{}).Scopes(filter).
		Where("assets.created_at >= ? AND assets.created_at < ?", start, end).
		Pluck("assets.created_at", &created).Error; err != nil {
		return nil, err
	}
	for _, t := range created {
		add(t, func(p *ChartPoint) { p.Added++ })
	}

	var events []models.ActivityLog
	if err := scope.Apply(db.Model(&models.ActivityLog{}), "store_id").
		Select("action", "created_at").
		Where("entity_type = ? AND created_at >= ? AND created_at < ?", "asset", start, end).
		Where("action IN ?", []string{audit.ActionAssign, audit.ActionReturn, audit.ActionDispose}).
		Find(&events).Error; err != nil {
		return nil, err
	}
	for _, e := range events {
		add(e.CreatedAt, func(p *ChartPoint) {
			switch e.Action {
			case audit.ActionAssign:
				p.Assigned++
			case audit.ActionReturn:
				p.Returned++
			case audit.ActionDispose:
				p.Disposed++
			}
		})
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	points := make([]ChartPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, *buckets[k])
	}
	return points, nil
}

// GET /api/dashboard/activity-chart?period=daily&count=7
func ActivityChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		count := 0
		if s := c.Query("count"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid count")
			}
			count = n
		}
		if count == 0 {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				count = 7
			}
		}

		period, start, end := Window(period, count, time.Now())
		points, err := Chart(database.DB, tenant.FromCtx(c), period, start, end)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build chart")
		}
		return c.JSON(ChartResponse{
			Period: period,
			From:   start.Format("2006-01-02"),
			To:     end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points: points,
		})
	}
}
