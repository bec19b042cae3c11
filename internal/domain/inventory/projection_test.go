package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func mov(kind entity.MovementKind, unit entity.StockUnit, qty string) *entity.StockMovement {
	return &entity.StockMovement{ID: "m", ProductID: "p1", Kind: kind, Unit: unit, Quantity: dec(qty)}
}

func TestApplyMovement_Warnings(t *testing.T) {
	next, warnings, err := inventory.ApplyMovement(90, mov(entity.MovementOutbound, entity.UnitBaseUnit, "10"), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next)
	require.Len(t, warnings, 1)
	assert.Equal(t, entity.WarningStockWentNegative, warnings[0].Code)
	assert.True(t, warnings[0].RequestedPieces.Equal(dec("-150")))

	next, warnings, err = inventory.ApplyMovement(0, mov(entity.MovementInbound, entity.UnitBaseUnit, "0.5"), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
	require.Len(t, warnings, 1)
	assert.Equal(t, entity.WarningFractionalPieceRounded, warnings[0].Code)
	assert.Equal(t, int64(2), warnings[0].AppliedPieces)

	// ambas advertencias en el mismo movimiento
	_, warnings, err = inventory.ApplyMovement(1, mov(entity.MovementOutbound, entity.UnitBaseUnit, "0.5"), 3)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
}

func TestApplyMovement_ErrorKeepsCurrent(t *testing.T) {
	next, warnings, err := inventory.ApplyMovement(42, mov(entity.MovementInbound, entity.UnitPieces, "1.5"), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, int64(42), next)
	assert.Empty(t, warnings)
}

func TestFold_ScenarioSequence(t *testing.T) {
	movements := []*entity.StockMovement{
		mov(entity.MovementInbound, entity.UnitBaseUnit, "5"),
		mov(entity.MovementOutbound, entity.UnitPieces, "30"),
		mov(entity.MovementOutbound, entity.UnitBaseUnit, "10"),
		mov(entity.MovementAdjustment, entity.UnitPieces, "500"),
		mov(entity.MovementAdjustment, entity.UnitPieces, "500"),
	}
	p, err := inventory.Fold("p1", 24, movements)
	require.NoError(t, err)
	assert.Equal(t, int64(500), p.StockPieces)
	assert.True(t, p.StockBaseUnits.Equal(dec("20.83333333")))
	assert.Equal(t, "p1", p.ProductID)
}

func TestReplayer_Counts(t *testing.T) {
	r := inventory.NewReplayer("p1", 24)
	require.NoError(t, r.Apply(mov(entity.MovementInbound, entity.UnitPieces, "10")))
	require.NoError(t, r.Apply(mov(entity.MovementOutbound, entity.UnitPieces, "15")))
	assert.Equal(t, 2, r.Applied())
	assert.Equal(t, 1, r.Warnings())
	assert.Equal(t, int64(0), r.Projection().StockPieces)

	err := r.Apply(mov(entity.MovementInbound, entity.UnitPieces, "0"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
