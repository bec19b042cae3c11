package entity

import "github.com/shopspring/decimal"

// Projection vista de stock de un producto en ambas denominaciones.
type Projection struct {
	ProductID         string          `json:"product_id"`
	PiecesPerBaseUnit int64           `json:"pieces_per_base_unit"`
	StockPieces       int64           `json:"stock_pieces"`
	StockBaseUnits    decimal.Decimal `json:"stock_base_units"`
}

// Equal compara piezas exactas y unidades base por valor.
func (p Projection) Equal(o Projection) bool {
	return p.ProductID == o.ProductID &&
		p.PiecesPerBaseUnit == o.PiecesPerBaseUnit &&
		p.StockPieces == o.StockPieces &&
		p.StockBaseUnits.Equal(o.StockBaseUnits)
}

// WarningCode identifica una advertencia no fatal devuelta junto a un movimiento exitoso.
type WarningCode string

const (
	// WarningStockWentNegative el resultado quedó bajo cero y se llevó a 0.
	WarningStockWentNegative WarningCode = "STOCK_WENT_NEGATIVE"
	// WarningFractionalPieceRounded la cantidad en unidad base no daba piezas enteras.
	WarningFractionalPieceRounded WarningCode = "FRACTIONAL_PIECE_ROUNDED"
)

// StockWarning hecho estructurado para que el caller decida cómo presentarlo.
type StockWarning struct {
	Code            WarningCode     `json:"code"`
	Message         string          `json:"message"`
	RequestedPieces decimal.Decimal `json:"requested_pieces"`
	AppliedPieces   int64           `json:"applied_pieces"`
}
