package inventory

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// BaseUnitScale decimales con que se expresa stock_base_units cuando la división no es exacta.
const BaseUnitScale int32 = 8

// QuantityScale máximo de decimales de una cantidad; es la escala de la columna quantity,
// así el log guarda exactamente la cantidad aplicada.
const QuantityScale int32 = 8

// HasValidScale indica si la cantidad cabe en QuantityScale decimales (ceros finales no cuentan).
func HasValidScale(quantity decimal.Decimal) bool {
	return quantity.Equal(quantity.Truncate(QuantityScale))
}

// ChangeMode distingue un delta de un valor absoluto. Un ajuste nunca se suma.
type ChangeMode int

const (
	ChangeDelta    ChangeMode = iota // Pieces se suma (con signo) al stock actual
	ChangeAbsolute                   // Pieces reemplaza el stock actual
)

func (m ChangeMode) String() string {
	if m == ChangeAbsolute {
		return "absolute"
	}
	return "delta"
}

// StockChange resultado normalizado del motor de conversión, siempre en piezas.
type StockChange struct {
	Mode    ChangeMode
	Pieces  int64           // delta con signo (ChangeDelta) u objetivo (ChangeAbsolute)
	Exact   decimal.Decimal // piezas solicitadas antes de redondear, sin signo
	Rounded bool            // Exact no era entero
}

var maxPieces = decimal.NewFromInt(math.MaxInt64)

// ComputeDelta traduce (tipo, unidad, cantidad) y el factor del producto a un cambio en piezas.
// Función pura: no toca la proyección.
//
// Unidad base: piezas = cantidad * factor, redondeado al entero más cercano (mitades lejos de cero);
// el redondeo se reporta en Rounded. Piezas: la cantidad debe ser entera.
// Más de QuantityScale decimales significativos es ErrInvalidQuantity.
func ComputeDelta(kind entity.MovementKind, unit entity.StockUnit, quantity decimal.Decimal, piecesPerBaseUnit int64) (StockChange, error) {
	if piecesPerBaseUnit < 1 {
		return StockChange{}, domain.ErrInvalidConversionFactor
	}
	if !kind.Valid() {
		return StockChange{}, domain.ErrUnknownKind
	}
	if !unit.Valid() {
		return StockChange{}, domain.ErrUnknownUnit
	}
	if kind == entity.MovementAdjustment {
		if quantity.IsNegative() {
			return StockChange{}, domain.ErrInvalidQuantity
		}
	} else if !quantity.IsPositive() {
		return StockChange{}, domain.ErrInvalidQuantity
	}
	if !HasValidScale(quantity) {
		return StockChange{}, domain.ErrInvalidQuantity
	}

	var exact decimal.Decimal
	switch unit {
	case entity.UnitPieces:
		if !quantity.IsInteger() {
			return StockChange{}, domain.ErrInvalidQuantity
		}
		exact = quantity
	case entity.UnitBaseUnit:
		exact = quantity.Mul(decimal.NewFromInt(piecesPerBaseUnit))
	}

	rounded := exact.Round(0)
	if rounded.GreaterThan(maxPieces) {
		return StockChange{}, domain.ErrInvalidQuantity
	}
	pieces := rounded.IntPart()
	// Una entrada/salida que redondea a 0 piezas sería un movimiento vacío.
	if kind != entity.MovementAdjustment && pieces == 0 {
		return StockChange{}, domain.ErrInvalidQuantity
	}

	change := StockChange{
		Mode:    ChangeDelta,
		Pieces:  pieces,
		Exact:   exact,
		Rounded: !exact.IsInteger(),
	}
	switch kind {
	case entity.MovementOutbound:
		change.Pieces = -pieces
	case entity.MovementAdjustment:
		change.Mode = ChangeAbsolute
	}
	return change, nil
}

// Apply calcula el nuevo conteo de piezas. Un resultado negativo se lleva a 0 y wentNegative=true.
func (c StockChange) Apply(current int64) (next int64, wentNegative bool, err error) {
	switch c.Mode {
	case ChangeAbsolute:
		next = c.Pieces
	default:
		if c.Pieces > 0 && current > math.MaxInt64-c.Pieces {
			return current, false, domain.ErrInvalidQuantity
		}
		next = current + c.Pieces
	}
	if next < 0 {
		return 0, true, nil
	}
	return next, false, nil
}

// BaseUnits deriva stock_base_units de stock_pieces. Nunca se calcula por otro camino.
// Exacto cuando el cociente termina en BaseUnitScale decimales; si no, redondeado a esa escala.
func BaseUnits(pieces, piecesPerBaseUnit int64) decimal.Decimal {
	if piecesPerBaseUnit <= 1 {
		return decimal.NewFromInt(pieces)
	}
	return decimal.NewFromInt(pieces).DivRound(decimal.NewFromInt(piecesPerBaseUnit), BaseUnitScale)
}
