package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// SetConversionFactor fija piezas por unidad base. El factor sólo es mutable mientras el
// producto no tiene movimientos; después, repetir el mismo valor es un no-op y
// cualquier otro valor devuelve ErrConversionFactorLocked.
func (s *LedgerService) SetConversionFactor(ctx context.Context, productID string, piecesPerBaseUnit int64) (entity.Projection, error) {
	if productID == "" {
		return entity.Projection{}, domain.ErrInvalidInput
	}
	if piecesPerBaseUnit < 1 {
		return entity.Projection{}, domain.ErrInvalidConversionFactor
	}
	unlock, err := s.acquire(ctx, productID)
	if err != nil {
		return entity.Projection{}, err
	}
	defer unlock()

	var projection entity.Projection
	err = s.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductStockRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		if product.PiecesPerBaseUnit == piecesPerBaseUnit {
			projection = product.Projection()
			return nil
		}
		locked := product.HasMovements()
		if !locked {
			if locked, err = movRepo.ExistsForProduct(ctx, productID); err != nil {
				return err
			}
		}
		if locked {
			return domain.ErrConversionFactorLocked
		}
		product.PiecesPerBaseUnit = piecesPerBaseUnit
		product.StockBaseUnits = domaininv.BaseUnits(product.StockPieces, piecesPerBaseUnit)
		product.UpdatedAt = s.timestamp()
		if err := productRepo.UpdateConversionFactor(ctx, product); err != nil {
			return err
		}
		projection = product.Projection()
		return nil
	})
	if err != nil {
		return entity.Projection{}, s.classify(ctx, err)
	}
	s.log.Info().
		Str("product_id", productID).
		Int64("pieces_per_base_unit", piecesPerBaseUnit).
		Msg("factor de conversión fijado")
	return projection, nil
}
