package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ApplyMovement es el único paso de aplicación: lo usan tanto el registro en vivo como el replay,
// por eso ambos producen exactamente el mismo conteo de piezas.
func ApplyMovement(currentPieces int64, m *entity.StockMovement, piecesPerBaseUnit int64) (int64, []entity.StockWarning, error) {
	change, err := ComputeDelta(m.Kind, m.Unit, m.Quantity, piecesPerBaseUnit)
	if err != nil {
		return currentPieces, nil, err
	}

	var warnings []entity.StockWarning
	if change.Rounded {
		applied := change.Pieces
		if applied < 0 {
			applied = -applied
		}
		warnings = append(warnings, entity.StockWarning{
			Code: entity.WarningFractionalPieceRounded,
			Message: fmt.Sprintf("%s unidades base equivalen a %s piezas; se aplicaron %d",
				m.Quantity.String(), change.Exact.String(), applied),
			RequestedPieces: change.Exact,
			AppliedPieces:   applied,
		})
	}

	next, negative, err := change.Apply(currentPieces)
	if err != nil {
		return currentPieces, nil, err
	}
	if negative {
		unclamped := decimal.NewFromInt(currentPieces).Add(decimal.NewFromInt(change.Pieces))
		warnings = append(warnings, entity.StockWarning{
			Code:            entity.WarningStockWentNegative,
			Message:         fmt.Sprintf("el stock quedaría en %s piezas; se fijó en 0", unclamped.String()),
			RequestedPieces: unclamped,
			AppliedPieces:   0,
		})
	}
	return next, warnings, nil
}

// Replayer reconstruye la proyección plegando movimientos desde cero, en orden (recorded_at, seq).
type Replayer struct {
	productID string
	factor    int64
	pieces    int64
	applied   int
	warnings  int
}

// NewReplayer inicia un pliegue vacío para el producto.
func NewReplayer(productID string, piecesPerBaseUnit int64) *Replayer {
	return &Replayer{productID: productID, factor: piecesPerBaseUnit}
}

// Apply pliega un movimiento más.
func (r *Replayer) Apply(m *entity.StockMovement) error {
	next, warnings, err := ApplyMovement(r.pieces, m, r.factor)
	if err != nil {
		return fmt.Errorf("movimiento %s: %w", m.ID, err)
	}
	r.pieces = next
	r.applied++
	r.warnings += len(warnings)
	return nil
}

// Applied cantidad de movimientos plegados.
func (r *Replayer) Applied() int { return r.applied }

// Warnings cantidad de advertencias emitidas durante el pliegue.
func (r *Replayer) Warnings() int { return r.warnings }

// Projection resultado del pliegue.
func (r *Replayer) Projection() entity.Projection {
	return entity.Projection{
		ProductID:         r.productID,
		PiecesPerBaseUnit: r.factor,
		StockPieces:       r.pieces,
		StockBaseUnits:    BaseUnits(r.pieces, r.factor),
	}
}

// Fold pliega una secuencia ya ordenada de movimientos.
func Fold(productID string, piecesPerBaseUnit int64, movements []*entity.StockMovement) (entity.Projection, error) {
	r := NewReplayer(productID, piecesPerBaseUnit)
	for _, m := range movements {
		if err := r.Apply(m); err != nil {
			return entity.Projection{}, err
		}
	}
	return r.Projection(), nil
}
