package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// DefaultLockTimeout espera máxima por el lock del producto cuando el caller no fija deadline.
const DefaultLockTimeout = 5 * time.Second

const (
	defaultListLimit = 50
	maxListLimit     = 500
	publishTimeout   = 2 * time.Second
)

// LedgerDeps dependencias del servicio. Publisher, Metrics y Logger son opcionales.
type LedgerDeps struct {
	TxRunner    TxRunner
	Products    repository.ProductStockRepository
	Movements   repository.StockMovementRepository
	Locker      Locker
	Publisher   MovementPublisher
	Metrics     Metrics
	Logger      *zerolog.Logger
	LockTimeout time.Duration
	Now         func() time.Time
}

// LedgerService es el único dueño de la escritura de stock_pieces/stock_base_units y del log de movimientos.
// Serializa por product_id: productos distintos avanzan en paralelo.
type LedgerService struct {
	txRunner    TxRunner
	products    repository.ProductStockRepository
	movements   repository.StockMovementRepository
	locker      Locker
	publisher   MovementPublisher
	metrics     Metrics
	log         zerolog.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

// NewLedgerService construye el servicio.
func NewLedgerService(deps LedgerDeps) *LedgerService {
	s := &LedgerService{
		txRunner:    deps.TxRunner,
		products:    deps.Products,
		movements:   deps.Movements,
		locker:      deps.Locker,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		lockTimeout: deps.LockTimeout,
		now:         deps.Now,
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if deps.Logger != nil {
		s.log = deps.Logger.With().Str("component", "ledger").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = DefaultLockTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetProjection devuelve la proyección confirmada del producto (nunca un movimiento a medio aplicar).
func (s *LedgerService) GetProjection(ctx context.Context, productID string) (entity.Projection, error) {
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
	return product.Projection(), nil
}

// ListMovements lista el log del producto en un rango de fechas (lectura para reportes).
func (s *LedgerService) ListMovements(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	if productID == "" || offset < 0 {
		return nil, domain.ErrInvalidInput
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.ErrInvalidInput
	}
	limit = EffectiveListLimit(limit)
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	list, err := s.movements.ListByProduct(ctx, productID, from, to, limit, offset)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	return list, nil
}

// EffectiveListLimit límite aplicado por ListMovements: default 50, tope 500.
func EffectiveListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// acquire toma el lock del producto. Si el caller no puso deadline se aplica lockTimeout
// sólo a la espera del lock, no a la transacción.
func (s *LedgerService) acquire(ctx context.Context, productID string) (func(), error) {
	lockCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	started := time.Now()
	unlock, err := s.locker.Lock(lockCtx, productID)
	s.metrics.LockWait(time.Since(started))
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) || lockCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrTimeout, productID)
		}
		return nil, fmt.Errorf("%w: lock: %w", domain.ErrPersistenceFailed, err)
	}
	return unlock, nil
}

// classify deja pasar errores de dominio y envuelve el resto como timeout o fallo de persistencia.
func (s *LedgerService) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidQuantity,
		domain.ErrInvalidConversionFactor,
		domain.ErrUnknownUnit,
		domain.ErrUnknownKind,
		domain.ErrProductNotFound,
		domain.ErrTimeout,
		domain.ErrPersistenceFailed,
		domain.ErrConversionFactorLocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// rejectReason etiqueta corta para métricas.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidConversionFactor):
		return "invalid_conversion_factor"
	case errors.Is(err, domain.ErrUnknownUnit):
		return "unknown_unit"
	case errors.Is(err, domain.ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrPersistenceFailed):
		return "persistence_failed"
	}
	return "invalid_input"
}

// timestamp trunca a microsegundos: la precisión de timestamptz.
func (s *LedgerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func isPersistence(err error) bool {
	return errors.Is(err, domain.ErrPersistenceFailed)
}
