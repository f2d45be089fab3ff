// Package server assembles the fiber application and its route table.
package server

import (
	"errors"
	"log"
	"strings"

	"asset-tracker-backend/internal/admin"
	"asset-tracker-backend/internal/audit"
	"asset-tracker-backend/internal/auth"
	"asset-tracker-backend/internal/catalog"
	"asset-tracker-backend/internal/config"
	"asset-tracker-backend/internal/dashboard"
	"asset-tracker-backend/internal/inventory"
	"asset-tracker-backend/internal/passes"
	"asset-tracker-backend/internal/procurement"
	"asset-tracker-backend/internal/requests"
	"asset-tracker-backend/internal/tenant"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps are the collaborators built by main. Nil fields get in-process
// defaults.
type Deps struct {
	Revoker auth.Revoker
	Limiter *auth.LoginLimiter
	// Quiet disables request logging, for tests.
	Quiet bool
}

// ErrorHandler renders every error as {"message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{"message": e.Message})
	}
	log.Println("Unexpected error:", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Unexpected server error",
	})
}

func New(cfg *config.Config, deps Deps) *fiber.App {
	if deps.Revoker == nil {
		deps.Revoker = auth.NewMemoryRevoker()
	}
	if deps.Limiter == nil {
		deps.Limiter = auth.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    32 << 20,
	})

	app.Use(recover.New())
	if !deps.Quiet {
		app.Use(logger.New())
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Active-Store",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler())
	api.Post("/auth/login", deps.Limiter.Middleware(), auth.LoginHandler(cfg))

	// Everything below needs a session and a resolved store scope.
	api.Use(auth.JWTMiddleware(cfg, deps.Revoker), tenant.Middleware())

	adm := auth.Admin()
	super := auth.SuperAdmin()

	api.Post("/auth/logout", auth.LogoutHandler(deps.Revoker))
	api.Get("/auth/me", auth.MeHandler())
	api.Put("/auth/password", auth.ChangePasswordHandler())

	// Assets: fixed paths before /:id
	api.Get("/assets", inventory.ListAssetsHandler())
	api.Get("/assets/my", inventory.MyAssetsHandler())
	api.Get("/assets/export", adm, inventory.ExportHandler())
	api.Get("/assets/template", adm, inventory.TemplateHandler())
	api.Post("/assets/import", adm, inventory.ImportHandler())
	api.Post("/assets/bulk", adm, inventory.BulkCreateHandler())
	api.Post("/assets/bulk-update", adm, inventory.BulkUpdateHandler())
	api.Post("/assets/bulk-delete", adm, inventory.BulkDeleteHandler())
	api.Post("/assets/assign", adm, inventory.AssignHandler())
	api.Post("/assets/unassign", adm, inventory.UnassignHandler())
	api.Post("/assets/collect", inventory.CollectHandler())
	api.Post("/assets/return", inventory.ReturnHandler())
	api.Post("/assets/return-approve", adm, inventory.ReturnApproveHandler())
	api.Post("/assets/return-reject", adm, inventory.ReturnRejectHandler())
	api.Post("/assets/dispose", adm, inventory.DisposeHandler())
	api.Post("/assets", adm, inventory.CreateAssetHandler())
	api.Get("/assets/:id", inventory.GetAssetHandler())
	api.Get("/assets/:id/history", inventory.AssetHistoryHandler())
	api.Put("/assets/:id", adm, inventory.UpdateAssetHandler())
	api.Delete("/assets/:id", adm, inventory.DeleteAssetHandler())

	// Catalog
	api.Get("/products", catalog.ListProductsHandler())
	api.Get("/products/:id", catalog.GetProductHandler())
	api.Post("/products", adm, catalog.CreateProductHandler())
	api.Put("/products/:id", adm, catalog.UpdateProductHandler())
	api.Delete("/products/:id", adm, catalog.DeleteProductHandler())
	api.Post("/products/:id/image", adm, catalog.UploadProductImageHandler(cfg.UploadDir))

	api.Get("/asset-categories/stats", catalog.StatsHandler())
	api.Get("/asset-categories", catalog.ListCategoriesHandler())
	api.Post("/asset-categories", adm, catalog.CreateCategoryHandler())
	api.Put("/asset-categories/:id", adm, catalog.UpdateCategoryHandler())
	api.Delete("/asset-categories/:id", adm, catalog.DeleteCategoryHandler())
	api.Post("/asset-categories/:id/image", adm, catalog.UploadCategoryImageHandler(cfg.UploadDir))

	// Stores
	api.Get("/stores", admin.ListStoresHandler())
	api.Get("/stores/:id", admin.GetStoreHandler())
	api.Get("/stores/:id/children", admin.ListChildStoresHandler())
	api.Post("/stores", super, admin.CreateStoreHandler())
	api.Put("/stores/:id", super, admin.UpdateStoreHandler())
	api.Delete("/stores/:id", super, admin.DeleteStoreHandler())
	api.Post("/stores/:id/request-deletion", adm, admin.RequestStoreDeletionHandler())
	api.Post("/stores/:id/approve-deletion", super, admin.ApproveStoreDeletionHandler())
	api.Post("/stores/:id/reject-deletion", super, admin.RejectStoreDeletionHandler())

	// Users
	api.Get("/users/technicians", adm, admin.ListTechniciansHandler())
	api.Get("/users", adm, admin.ListUsersHandler())
	api.Post("/users", adm, admin.CreateUserHandler())
	api.Put("/users/:id", adm, admin.UpdateUserHandler())
	api.Delete("/users/:id", adm, admin.DeleteUserHandler())

	// Requests
	api.Get("/requests", requests.ListRequestsHandler())
	api.Get("/requests/:id", requests.GetRequestHandler())
	api.Post("/requests", requests.CreateRequestHandler())
	api.Put("/requests/:id/review", adm, requests.ReviewRequestHandler())
	api.Delete("/requests/:id", requests.DeleteRequestHandler())

	// Procurement
	api.Get("/vendors", adm, procurement.ListVendorsHandler())
	api.Post("/vendors", adm, procurement.CreateVendorHandler())
	api.Put("/vendors/:id", adm, procurement.UpdateVendorHandler())
	api.Delete("/vendors/:id", adm, procurement.DeleteVendorHandler())

	api.Get("/purchase-orders", adm, procurement.ListOrdersHandler())
	api.Get("/purchase-orders/:id", adm, procurement.GetOrderHandler())
	api.Post("/purchase-orders", adm, procurement.CreateOrderHandler())
	api.Put("/purchase-orders/:id", adm, procurement.UpdateOrderHandler())
	api.Put("/purchase-orders/:id/status", adm, procurement.UpdateOrderStatusHandler())
	api.Delete("/purchase-orders/:id", adm, procurement.DeleteOrderHandler())

	// Passes and permits
	api.Get("/passes", passes.ListPassesHandler())
	api.Get("/passes/:id", passes.GetPassHandler())
	api.Post("/passes", adm, passes.CreatePassHandler())
	api.Post("/passes/:id/close", adm, passes.ClosePassHandler())
	api.Delete("/passes/:id", adm, passes.DeletePassHandler())

	api.Get("/permits", passes.ListPermitsHandler())
	api.Get("/permits/:id", passes.GetPermitHandler())
	api.Post("/permits", passes.CreatePermitHandler())
	api.Post("/permits/:id/approve", adm, passes.ApprovePermitHandler())
	api.Post("/permits/:id/reject", adm, passes.RejectPermitHandler())
	api.Post("/permits/:id/close", adm, passes.ClosePermitHandler())

	// Activity log and dashboard
	api.Get("/activity-logs", adm, audit.ListActivityLogsHandler())
	api.Get("/dashboard/summary", dashboard.SummaryHandler())
	api.Get("/dashboard/activity-chart", dashboard.ActivityChartHandler())

	// System
	api.Post("/system/reset", super, admin.ResetHandler())
	api.Get("/system/backup", super, admin.BackupHandler())

	return app
}
