package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductStockRepository define el puerto de persistencia de la proyección de stock y el factor de conversión (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductStockRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// UpdateStock persiste stock_pieces, stock_base_units y last_movement_at.
	UpdateStock(ctx context.Context, product *entity.Product) error
	// UpdateConversionFactor persiste pieces_per_base_unit junto con stock_base_units recalculado.
	UpdateConversionFactor(ctx context.Context, product *entity.Product) error
}
