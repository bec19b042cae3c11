package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         *inventory.LedgerService
	JWTSecret      string
	MetricsHandler http.Handler // nil = sin /metrics
	Logger         zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")
	inv := api.Group("/inventory", AuthMiddleware(deps.JWTSecret))
	h := NewInventoryHandler(deps.Ledger, deps.Logger.With().Str("component", "http").Logger())

	anyRole := RequireRole(jwt.RoleOperator, jwt.RoleAdmin)
	adminOnly := RequireRole(jwt.RoleAdmin)

	inv.Post("/movements", anyRole, h.RecordMovement)

	products := inv.Group("/products/:id")
	products.Get("/projection", anyRole, h.GetProjection)
	products.Get("/movements", anyRole, h.ListMovements)
	products.Get("/replay", anyRole, h.Replay)
	products.Get("/drift", anyRole, h.CheckDrift)
	products.Post("/repair", adminOnly, h.RepairProjection)
	products.Put("/conversion", adminOnly, h.SetConversionFactor)
}
