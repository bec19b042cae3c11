package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductStockRepository = (*ProductRepo)(nil)

const productColumns = `id, name, pieces_per_base_unit, stock_pieces, stock_base_units, last_movement_at, updated_at`

// ProductRepo implementación de ProductStockRepository sobre PostgreSQL (usable con pool o tx).
// Sólo toca las columnas del ledger; el resto de la fila es del catálogo.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene la proyección de un producto.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetForUpdate obtiene el producto y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
// Serializa también a procesos que comparten la BD pero no el Locker.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isLockTimeout(err) {
			return nil, fmt.Errorf("%w: fila de producto %s", domain.ErrTimeout, id)
		}
		return nil, fmt.Errorf("get product for update: %w", err)
	}
	return p, nil
}

// UpdateStock persiste la proyección.
func (r *ProductRepo) UpdateStock(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products
		SET stock_pieces = $2, stock_base_units = $3, last_movement_at = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		product.ID, product.StockPieces, product.StockBaseUnits,
		nullTime(product.LastMovementAt), product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// UpdateConversionFactor persiste el factor y stock_base_units recalculado.
func (r *ProductRepo) UpdateConversionFactor(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products
		SET pieces_per_base_unit = $2, stock_base_units = $3, updated_at = $4
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, product.ID, product.PiecesPerBaseUnit, product.StockBaseUnits, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update conversion factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var lastMovementAt *time.Time
	if err := row.Scan(&p.ID, &p.Name, &p.PiecesPerBaseUnit, &p.StockPieces, &p.StockBaseUnits,
		&lastMovementAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if lastMovementAt != nil {
		p.LastMovementAt = lastMovementAt.UTC()
	}
	return &p, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
