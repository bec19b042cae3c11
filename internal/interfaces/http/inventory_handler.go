package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// InventoryHandler expone el ledger de stock por HTTP (protegido).
type InventoryHandler struct {
	ledger *inventory.LedgerService
	log    zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.LedgerService, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, log: log}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  IN/OUT suman o restan; ADJUSTMENT fija el stock absoluto. unit es PCS o BASE_UNIT.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "product_id, kind, unit, quantity, reference"
// @Success      201   {object}  dto.RecordMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.ledger.RecordMovementFromRequest(c.Context(), userID, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToRecordMovementResponse(result))
}

// GetProjection godoc
// @Summary      Stock actual del producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  dto.ProjectionDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/projection [get]
func (h *InventoryHandler) GetProjection(c *fiber.Ctx) error {
	p, err := h.ledger.GetProjection(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(inventory.ToProjectionDTO(p))
}

// ListMovements godoc
// @Summary      Log de movimientos del producto (más recientes primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "Product ID"
// @Param        from    query  string  false  "RFC3339"
// @Param        to      query  string  false  "RFC3339"
// @Param        limit   query  int     false  "default 50, máx 500"
// @Param        offset  query  int     false  "default 0"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	if page.Offset < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "offset debe ser >= 0"})
	}

	list, err := h.ledger.ListMovements(c.Context(), c.Params("id"), from, to, page.Limit, page.Offset)
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]dto.MovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, inventory.ToMovementDTO(m))
	}
	return c.JSON(dto.MovementListResponse{
		Movements: out,
		Page:      dto.PageResponse{Limit: inventory.EffectiveListLimit(page.Limit), Offset: page.Offset},
	})
}

// Replay godoc
// @Summary      Proyección reconstruida desde el log (sin tocar la guardada)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  dto.ProjectionDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/replay [get]
func (h *InventoryHandler) Replay(c *fiber.Ctx) error {
	p, err := h.ledger.ReplayFromLog(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(inventory.ToProjectionDTO(p))
}

// CheckDrift godoc
// @Summary      Compara la proyección guardada con el replay del log
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  dto.DriftReportDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/drift [get]
func (h *InventoryHandler) CheckDrift(c *fiber.Ctx) error {
	report, err := h.ledger.CheckDrift(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(inventory.ToDriftReportDTO(report))
}

// RepairProjection godoc
// @Summary      Reemplaza la proyección por el replay del log si divergen (admin)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  dto.DriftReportDTO
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/repair [post]
func (h *InventoryHandler) RepairProjection(c *fiber.Ctx) error {
	report, err := h.ledger.RepairProjection(c.Context(), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if report.Repaired {
		h.log.Warn().Str("product_id", report.ProductID).Str("user_id", GetUserID(c)).
			Int64("live_pieces", report.Live.StockPieces).Int64("replayed_pieces", report.Replayed.StockPieces).
			Msg("proyección reparada")
	}
	return c.JSON(inventory.ToDriftReportDTO(report))
}

// SetConversionFactor godoc
// @Summary      Fija piezas por unidad base (sólo sin movimientos, admin)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "Product ID"
// @Param        body  body  dto.SetConversionRequest   true  "pieces_per_base_unit >= 1"
// @Success      200   {object}  dto.ProjectionDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/conversion [put]
func (h *InventoryHandler) SetConversionFactor(c *fiber.Ctx) error {
	var in dto.SetConversionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	p, err := h.ledger.SetConversionFactor(c.Context(), c.Params("id"), in.PiecesPerBaseUnit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(inventory.ToProjectionDTO(p))
}

// writeError traduce errores del ledger a status + ErrorResponse.
func (h *InventoryHandler) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidConversionFactor),
		errors.Is(err, domain.ErrUnknownUnit),
		errors.Is(err, domain.ErrUnknownKind):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrConversionFactorLocked):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrTimeout):
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "TIMEOUT", Message: "producto ocupado, reintente"})
	case errors.Is(err, domain.ErrPersistenceFailed):
		h.log.Error().Err(err).Str("path", c.Path()).Msg("fallo de persistencia")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "PERSISTENCE", Message: "no se pudo guardar, no hubo cambios"})
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("error no clasificado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
