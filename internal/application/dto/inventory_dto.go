package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements.
// unit es obligatorio: "PCS" o "BASE_UNIT".
type RecordMovementRequest struct {
	ProductID string          `json:"product_id"`
	Kind      string          `json:"kind"`     // IN, OUT, ADJUSTMENT
	Unit      string          `json:"unit"`     // PCS, BASE_UNIT
	Quantity  decimal.Decimal `json:"quantity"` // positiva para IN/OUT; objetivo absoluto (>= 0) para ADJUSTMENT
	Reference string          `json:"reference,omitempty"`
}

// MovementDTO movimiento del log.
type MovementDTO struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Kind       string          `json:"kind"`
	Unit       string          `json:"unit"`
	Quantity   decimal.Decimal `json:"quantity"`
	RecordedAt time.Time       `json:"recorded_at"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy string          `json:"recorded_by,omitempty"`
}

// ProjectionDTO stock actual en ambas denominaciones.
type ProjectionDTO struct {
	ProductID         string          `json:"product_id"`
	PiecesPerBaseUnit int64           `json:"pieces_per_base_unit"`
	StockPieces       int64           `json:"stock_pieces"`
	StockBaseUnits    decimal.Decimal `json:"stock_base_units"`
}

// WarningDTO advertencia no fatal.
type WarningDTO struct {
	Code            string          `json:"code"`
	Message         string          `json:"message"`
	RequestedPieces decimal.Decimal `json:"requested_pieces"`
	AppliedPieces   int64           `json:"applied_pieces"`
}

// RecordMovementResponse respuesta de POST /api/inventory/movements. warnings siempre presente (puede ser []).
type RecordMovementResponse struct {
	Movement   MovementDTO   `json:"movement"`
	Projection ProjectionDTO `json:"projection"`
	Warnings   []WarningDTO  `json:"warnings"`
}

// SetConversionRequest body para PUT /api/inventory/products/:id/conversion.
type SetConversionRequest struct {
	PiecesPerBaseUnit int64 `json:"pieces_per_base_unit"`
}

// MovementListResponse página del log.
type MovementListResponse struct {
	Movements []MovementDTO `json:"movements"`
	Page      PageResponse  `json:"page"`
}

// DriftReportDTO resultado de replay contra proyección.
type DriftReportDTO struct {
	ProductID string        `json:"product_id"`
	Live      ProjectionDTO `json:"live"`
	Replayed  ProjectionDTO `json:"replayed"`
	Movements int           `json:"movements"`
	Drifted   bool          `json:"drifted"`
	Repaired  bool          `json:"repaired"`
}
