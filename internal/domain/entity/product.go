package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product es la fila de producto vista desde el ledger: factor de conversión y proyección de stock.
// El catálogo (precios, SKU, impuestos) vive fuera de este servicio.
type Product struct {
	ID                string
	Name              string
	PiecesPerBaseUnit int64           // piezas por unidad base (caja, docena); 1 = misma unidad
	StockPieces       int64           // autoritativo
	StockBaseUnits    decimal.Decimal // derivado de StockPieces, nunca se muta por separado
	LastMovementAt    time.Time       // recorded_at del último movimiento aplicado (cero si no hay)
	UpdatedAt         time.Time
}

// HasMovements indica si ya se aplicó algún movimiento al producto.
// Mientras sea false el factor de conversión puede cambiarse.
func (p *Product) HasMovements() bool {
	return !p.LastMovementAt.IsZero()
}

// Projection devuelve la vista de stock actual del producto.
func (p *Product) Projection() Projection {
	return Projection{
		ProductID:         p.ID,
		PiecesPerBaseUnit: p.PiecesPerBaseUnit,
		StockPieces:       p.StockPieces,
		StockBaseUnits:    p.StockBaseUnits,
	}
}
