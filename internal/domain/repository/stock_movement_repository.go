package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto del log de movimientos (append-only: no hay Update ni Delete).
type StockMovementRepository interface {
	// Create agrega el movimiento y asigna ID (si viene vacío) y Seq.
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// ListByProduct lista movimientos en un rango de fechas, más recientes primero (reportes).
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	// ForEachByProduct recorre todos los movimientos del producto en orden (recorded_at, seq) ascendente.
	ForEachByProduct(ctx context.Context, productID string, fn func(*entity.StockMovement) error) error
	// ExistsForProduct indica si el producto tiene al menos un movimiento registrado.
	ExistsForProduct(ctx context.Context, productID string) (bool, error)
}
