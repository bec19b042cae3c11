// Package lock implementa exclusión mutua por product_id para el ledger.
package lock

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var _ inventory.Locker = (*KeyedLocker)(nil)

// KeyedLocker lock en proceso por clave. Claves distintas nunca se bloquean entre sí.
// Cada clave es un semáforo de capacidad 1 para poder abandonar la espera cuando ctx expira.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedLocker crea el locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry)}
}

// Lock espera la clave hasta que ctx expire; en ese caso devuelve domain.ErrTimeout sin haber tomado nada.
func (l *KeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.ref(key)
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, domain.ErrTimeout
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(key)
		})
	}, nil
}

// Len claves con lock tomado o en espera.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *KeyedLocker) ref(key string) *keyedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *KeyedLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
