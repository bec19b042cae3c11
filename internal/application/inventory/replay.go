package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// DriftReport compara la proyección en vivo con la reconstruida desde el log.
type DriftReport struct {
	ProductID string            `json:"product_id"`
	Live      entity.Projection `json:"live"`
	Replayed  entity.Projection `json:"replayed"`
	Movements int               `json:"movements"`
	Drifted   bool              `json:"drifted"`
	Repaired  bool              `json:"repaired"`
}

// ReplayFromLog recalcula la proyección desde cero plegando todos los movimientos del producto
// en orden (recorded_at, seq) con el mismo paso que usa RecordMovement. No escribe nada.
func (s *LedgerService) ReplayFromLog(ctx context.Context, productID string) (entity.Projection, error) {
	if productID == "" {
		return entity.Projection{}, domain.ErrInvalidInput
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return entity.Projection{}, s.classify(ctx, err)
	}
	if product == nil {
		return entity.Projection{}, domain.ErrProductNotFound
	}
	r := domaininv.NewReplayer(productID, product.PiecesPerBaseUnit)
	if err := s.movements.ForEachByProduct(ctx, productID, r.Apply); err != nil {
		return entity.Projection{}, s.classify(ctx, err)
	}
	return r.Projection(), nil
}

// CheckDrift compara proyección y replay bajo el lock del producto, sin modificar nada.
func (s *LedgerService) CheckDrift(ctx context.Context, productID string) (DriftReport, error) {
	return s.reconcile(ctx, productID, false)
}

// RepairProjection reescribe la proyección con el resultado del replay si divergen.
// El log es la fuente de verdad; la proyección es derivada.
func (s *LedgerService) RepairProjection(ctx context.Context, productID string) (DriftReport, error) {
	return s.reconcile(ctx, productID, true)
}

func (s *LedgerService) reconcile(ctx context.Context, productID string, repair bool) (DriftReport, error) {
	if productID == "" {
		return DriftReport{}, domain.ErrInvalidInput
	}
	unlock, err := s.acquire(ctx, productID)
	if err != nil {
		return DriftReport{}, err
	}
	defer unlock()

	var report DriftReport
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
		r := domaininv.NewReplayer(productID, product.PiecesPerBaseUnit)
		if err := movRepo.ForEachByProduct(ctx, productID, r.Apply); err != nil {
			return err
		}
		report = DriftReport{
			ProductID: productID,
			Live:      product.Projection(),
			Replayed:  r.Projection(),
			Movements: r.Applied(),
		}
		report.Drifted = !report.Live.Equal(report.Replayed)
		if !report.Drifted || !repair {
			return nil
		}
		product.StockPieces = report.Replayed.StockPieces
		product.StockBaseUnits = report.Replayed.StockBaseUnits
		product.UpdatedAt = s.timestamp()
		if err := productRepo.UpdateStock(ctx, product); err != nil {
			return err
		}
		report.Repaired = true
		return nil
	})
	if err != nil {
		return DriftReport{}, s.classify(ctx, err)
	}

	if report.Drifted {
		s.metrics.DriftDetected()
		s.log.Warn().
			Str("product_id", productID).
			Int64("live_pieces", report.Live.StockPieces).
			Int64("replayed_pieces", report.Replayed.StockPieces).
			Bool("repaired", report.Repaired).
			Msg("divergencia entre log y proyección")
	}
	return report, nil
}
