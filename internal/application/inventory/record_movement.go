package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// MovementInput solicitud de movimiento. Unit es obligatoria: nunca se infiere la denominación.
type MovementInput struct {
	ProductID  string
	Kind       entity.MovementKind
	Unit       entity.StockUnit
	Quantity   decimal.Decimal
	Reference  string
	RecordedBy string
}

// RecordResult proyección posterior al movimiento y advertencias no fatales.
// Warnings no vacío no es un error: el caller decide (p. ej. marcar la venta para conciliación).
type RecordResult struct {
	Movement   *entity.StockMovement
	Projection entity.Projection
	Warnings   []entity.StockWarning
}

// validate revisa la forma del movimiento antes de tomar el lock.
// Lo que depende del factor (redondeo, piezas enteras) lo valida el motor dentro de la tx.
func (in MovementInput) validate() error {
	if in.ProductID == "" {
		return domain.ErrInvalidInput
	}
	if !in.Kind.Valid() {
		return domain.ErrUnknownKind
	}
	if !in.Unit.Valid() {
		return domain.ErrUnknownUnit
	}
	if in.Kind == entity.MovementAdjustment {
		if in.Quantity.IsNegative() {
			return domain.ErrInvalidQuantity
		}
	} else if !in.Quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if !domaininv.HasValidScale(in.Quantity) {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// RecordMovement aplica un movimiento de forma atómica:
// lock del producto → SELECT FOR UPDATE → motor de conversión → piso en cero → INSERT movimiento + UPDATE proyección → Commit.
// Cualquier error deja el log y la proyección sin cambios.
func (s *LedgerService) RecordMovement(ctx context.Context, in MovementInput) (*RecordResult, error) {
	started := time.Now()
	if err := in.validate(); err != nil {
		s.metrics.MovementRejected(rejectReason(err))
		return nil, err
	}

	unlock, err := s.acquire(ctx, in.ProductID)
	if err != nil {
		s.metrics.MovementRejected(rejectReason(err))
		s.log.Warn().Err(err).Str("product_id", in.ProductID).Msg("no se obtuvo el lock del producto")
		return nil, err
	}
	defer unlock()

	var result RecordResult
	err = s.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductStockRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		mov := &entity.StockMovement{
			ProductID:  in.ProductID,
			Kind:       in.Kind,
			Unit:       in.Unit,
			Quantity:   in.Quantity,
			Reference:  in.Reference,
			RecordedBy: in.RecordedBy,
		}
		next, warnings, err := domaininv.ApplyMovement(product.StockPieces, mov, product.PiecesPerBaseUnit)
		if err != nil {
			return err
		}

		// recorded_at no decrece por producto: el orden (recorded_at, seq) es el orden de aplicación.
		now := s.timestamp()
		if now.Before(product.LastMovementAt) {
			now = product.LastMovementAt
		}
		mov.RecordedAt = now
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}

		product.StockPieces = next
		product.StockBaseUnits = domaininv.BaseUnits(next, product.PiecesPerBaseUnit)
		product.LastMovementAt = now
		product.UpdatedAt = now
		if err := productRepo.UpdateStock(ctx, product); err != nil {
			return err
		}

		result = RecordResult{Movement: mov, Projection: product.Projection(), Warnings: warnings}
		return nil
	})
	if err != nil {
		err = s.classify(ctx, err)
		s.metrics.MovementRejected(rejectReason(err))
		ev := s.log.Warn()
		if isPersistence(err) {
			ev = s.log.Error()
		}
		ev.Err(err).
			Str("product_id", in.ProductID).
			Str("kind", string(in.Kind)).
			Str("unit", string(in.Unit)).
			Str("quantity", in.Quantity.String()).
			Msg("movimiento rechazado")
		return nil, err
	}

	s.metrics.MovementRecorded(in.Kind, in.Unit, time.Since(started))
	for _, w := range result.Warnings {
		s.metrics.Warning(w.Code)
		s.log.Warn().
			Str("product_id", in.ProductID).
			Str("movement_id", result.Movement.ID).
			Str("reference", in.Reference).
			Str("code", string(w.Code)).
			Msg(w.Message)
	}
	s.log.Debug().
		Str("product_id", in.ProductID).
		Str("movement_id", result.Movement.ID).
		Int64("stock_pieces", result.Projection.StockPieces).
		Str("stock_base_units", result.Projection.StockBaseUnits.String()).
		Msg("movimiento registrado")

	s.publish(ctx, &result)
	return &result, nil
}

// publish notifica a read-models después del commit. Un fallo aquí no deshace el movimiento.
func (s *LedgerService) publish(ctx context.Context, r *RecordResult) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := MovementRecordedEvent{
		MovementID: r.Movement.ID,
		ProductID:  r.Movement.ProductID,
		Kind:       r.Movement.Kind,
		Unit:       r.Movement.Unit,
		Quantity:   r.Movement.Quantity.String(),
		Reference:  r.Movement.Reference,
		RecordedAt: r.Movement.RecordedAt,
		Projection: r.Projection,
		Warnings:   r.Warnings,
	}
	if err := s.publisher.PublishMovementRecorded(pubCtx, ev); err != nil {
		s.log.Error().Err(err).Str("movement_id", ev.MovementID).Msg("publicar movimiento")
	}
}
