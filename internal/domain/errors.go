package domain

import "errors"

// Errores de dominio del ledger (sin dependencias externas).
var (
	// Validación: se rechazan antes de cualquier mutación.
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrInvalidQuantity         = errors.New("cantidad inválida")
	ErrInvalidConversionFactor = errors.New("factor de conversión inválido")
	ErrUnknownUnit             = errors.New("unidad desconocida")
	ErrUnknownKind             = errors.New("tipo de movimiento desconocido")

	ErrProductNotFound = errors.New("producto no encontrado")

	// Concurrencia: transitorio, el caller puede reintentar la llamada completa.
	ErrTimeout = errors.New("tiempo de espera agotado para el producto")

	// Persistencia: no se registró el movimiento ni cambió la proyección.
	ErrPersistenceFailed = errors.New("fallo de persistencia")

	// El factor de conversión es inmutable una vez existen movimientos.
	ErrConversionFactorLocked = errors.New("factor de conversión bloqueado: el producto ya tiene movimientos")
)
