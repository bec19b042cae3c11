package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que el movimiento y la proyección se persisten juntos o no se persiste nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductStockRepository,
	) error) error
}

// Locker da exclusión mutua por clave (product_id).
// Lock bloquea hasta obtener la clave o hasta que ctx expire (domain.ErrTimeout).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// MovementPublisher publica movimientos ya confirmados para read-models (reportes). Best-effort.
type MovementPublisher interface {
	PublishMovementRecorded(ctx context.Context, ev MovementRecordedEvent) error
}

// Metrics observa la actividad del ledger.
type Metrics interface {
	MovementRecorded(kind entity.MovementKind, unit entity.StockUnit, elapsed time.Duration)
	MovementRejected(reason string)
	Warning(code entity.WarningCode)
	LockWait(elapsed time.Duration)
	DriftDetected()
}

// MovementRecordedEvent cuerpo del evento publicado tras cada RecordMovement exitoso.
type MovementRecordedEvent struct {
	MovementID string                `json:"movement_id"`
	ProductID  string                `json:"product_id"`
	Kind       entity.MovementKind   `json:"kind"`
	Unit       entity.StockUnit      `json:"unit"`
	Quantity   string                `json:"quantity"`
	Reference  string                `json:"reference,omitempty"`
	RecordedAt time.Time             `json:"recorded_at"`
	Projection entity.Projection     `json:"projection"`
	Warnings   []entity.StockWarning `json:"warnings,omitempty"`
}

type nopPublisher struct{}

func (nopPublisher) PublishMovementRecorded(context.Context, MovementRecordedEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(entity.MovementKind, entity.StockUnit, time.Duration) {}
func (nopMetrics) MovementRejected(string) {}
func (nopMetrics) Warning(entity.WarningCode) {}
func (nopMetrics) LockWait(time.Duration) {}
func (nopMetrics) DriftDetected() {}
