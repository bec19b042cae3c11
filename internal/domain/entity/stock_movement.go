package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de stock.
type MovementKind string

const (
	MovementInbound    MovementKind = "IN"         // entrada
	MovementOutbound   MovementKind = "OUT"        // salida (venta)
	MovementAdjustment MovementKind = "ADJUSTMENT" // ajuste a cantidad absoluta
)

// StockUnit denominación en la que el caller expresó la cantidad.
type StockUnit string

const (
	UnitPieces   StockUnit = "PCS"
	UnitBaseUnit StockUnit = "BASE_UNIT"
)

// ParseMovementKind normaliza el tipo recibido del exterior. ok=false si no se reconoce.
func ParseMovementKind(s string) (MovementKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN", "INBOUND":
		return MovementInbound, true
	case "OUT", "OUTBOUND":
		return MovementOutbound, true
	case "ADJUSTMENT", "ADJUST":
		return MovementAdjustment, true
	}
	return "", false
}

// ParseStockUnit normaliza la unidad recibida del exterior. ok=false si no se reconoce.
// No hay unidad por defecto: la denominación siempre es explícita.
func ParseStockUnit(s string) (StockUnit, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PCS", "PIECE", "PIECES":
		return UnitPieces, true
	case "BASE_UNIT", "BASEUNIT", "BASE":
		return UnitBaseUnit, true
	}
	return "", false
}

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementAdjustment:
		return true
	}
	return false
}

// Valid indica si la unidad es una de las conocidas.
func (u StockUnit) Valid() bool {
	return u == UnitPieces || u == UnitBaseUnit
}

// StockMovement registro inmutable (append-only) de un cambio de stock solicitado.
// Quantity siempre está expresada en Unit; para ADJUSTMENT es la cantidad objetivo absoluta.
type StockMovement struct {
	ID         string
	Seq        int64 // asignado por el almacenamiento; desempate tras RecordedAt
	ProductID  string
	Kind       MovementKind
	Unit       StockUnit
	Quantity   decimal.Decimal
	RecordedAt time.Time
	Reference  string // número de venta, nota de ajuste, etc.
	RecordedBy string // UserID, vacío si no aplica
}
