// Package memory implementa los puertos del ledger en memoria (tests y modo desarrollo sin PostgreSQL).
// Las transacciones acumulan escrituras y las publican juntas en el commit.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// ErrInjectedCommitFailure error devuelto por FailNextCommits.
var ErrInjectedCommitFailure = errors.New("memory: fallo de commit inyectado")

// Store estado confirmado: productos y log de movimientos.
type Store struct {
	mu        sync.RWMutex
	products  map[string]entity.Product
	movements map[string][]entity.StockMovement // por producto, en orden de commit
	byID      map[string]entity.StockMovement

	seq         atomic.Int64
	failCommits atomic.Int32
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]entity.Product),
		movements: make(map[string][]entity.StockMovement),
		byID:      make(map[string]entity.StockMovement),
	}
}

// PutProduct registra un producto (el catálogo es externo; aquí sólo se siembra).
// Un factor 0 (sin definir) toma 1, igual que el DEFAULT de la columna. Un factor negativo
// se guarda tal cual y el motor lo rechaza con ErrInvalidConversionFactor.
func (s *Store) PutProduct(p entity.Product) {
	if p.PiecesPerBaseUnit == 0 {
		p.PiecesPerBaseUnit = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// FailNextCommits hace fallar los próximos n commits (pruebas de atomicidad).
func (s *Store) FailNextCommits(n int) {
	s.failCommits.Store(int32(n))
}

// Products repositorio sobre el estado confirmado.
func (s *Store) Products() repository.ProductStockRepository {
	return &productRepo{s: s}
}

// Movements repositorio sobre el estado confirmado.
func (s *Store) Movements() repository.StockMovementRepository {
	return &movementRepo{s: s}
}

// Run ejecuta fn con repositorios atados a una transacción y hace commit si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductStockRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &txState{products: make(map[string]entity.Product)}
	if err := fn(&movementRepo{s: s, tx: tx}, &productRepo{s: s, tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommits.Load() > 0 {
		s.failCommits.Add(-1)
		return ErrInjectedCommitFailure
	}
	for id, p := range tx.products {
		s.products[id] = p
	}
	for _, m := range tx.movements {
		s.movements[m.ProductID] = append(s.movements[m.ProductID], m)
		s.byID[m.ID] = m
	}
	return nil
}

type txState struct {
	products  map[string]entity.Product
	movements []entity.StockMovement
}

func (s *Store) product(tx *txState, id string) (*entity.Product, bool) {
	if tx != nil {
		if p, ok := tx.products[id]; ok {
			return &p, true
		}
	}
	s.mu.RLock()
	p, ok := s.products[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &p, true
}

// productMovements copia ordenada (recorded_at, seq) del log confirmado más lo pendiente en tx.
func (s *Store) productMovements(tx *txState, productID string) []entity.StockMovement {
	s.mu.RLock()
	list := append([]entity.StockMovement(nil), s.movements[productID]...)
	s.mu.RUnlock()
	if tx != nil {
		for _, m := range tx.movements {
			if m.ProductID == productID {
				list = append(list, m)
			}
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].RecordedAt.Equal(list[j].RecordedAt) {
			return list[i].RecordedAt.Before(list[j].RecordedAt)
		}
		return list[i].Seq < list[j].Seq
	})
	return list
}

type productRepo struct {
	s  *Store
	tx *txState
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.s.product(r.tx, id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

// GetForUpdate no bloquea filas: la exclusión la da el Locker del ledger.
func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) UpdateStock(_ context.Context, product *entity.Product) error {
	return r.put(product, func(dst *entity.Product) {
		dst.StockPieces = product.StockPieces
		dst.StockBaseUnits = product.StockBaseUnits
		dst.LastMovementAt = product.LastMovementAt
		dst.UpdatedAt = product.UpdatedAt
	})
}

func (r *productRepo) UpdateConversionFactor(_ context.Context, product *entity.Product) error {
	return r.put(product, func(dst *entity.Product) {
		dst.PiecesPerBaseUnit = product.PiecesPerBaseUnit
		dst.StockBaseUnits = product.StockBaseUnits
		dst.UpdatedAt = product.UpdatedAt
	})
}

func (r *productRepo) put(product *entity.Product, apply func(*entity.Product)) error {
	current, ok := r.s.product(r.tx, product.ID)
	if !ok {
		return errors.New("memory: update product: no existe " + product.ID)
	}
	apply(current)
	if r.tx != nil {
		r.tx.products[product.ID] = *current
		return nil
	}
	r.s.mu.Lock()
	r.s.products[product.ID] = *current
	r.s.mu.Unlock()
	return nil
}

type movementRepo struct {
	s  *Store
	tx *txState
}

func (r *movementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	movement.Seq = r.s.seq.Add(1)
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, *movement)
		return nil
	}
	return r.s.commit(&txState{movements: []entity.StockMovement{*movement}})
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ID == id {
				return &m, nil
			}
		}
	}
	r.s.mu.RLock()
	m, ok := r.s.byID[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *movementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	all := r.s.productMovements(r.tx, productID)
	var list []*entity.StockMovement
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if from != nil && m.RecordedAt.Before(*from) {
			continue
		}
		if to != nil && m.RecordedAt.After(*to) {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(list) >= limit {
			break
		}
		list = append(list, &m)
	}
	return list, nil
}

func (r *movementRepo) ForEachByProduct(ctx context.Context, productID string, fn func(*entity.StockMovement) error) error {
	for _, m := range r.s.productMovements(r.tx, productID) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
	}
	return nil
}

func (r *movementRepo) ExistsForProduct(_ context.Context, productID string) (bool, error) {
	return len(r.s.productMovements(r.tx, productID)) > 0, nil
}
