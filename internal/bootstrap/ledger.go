// Package bootstrap arma el LedgerService desde la configuración; lo comparten cmd/api y cmd/ledgerctl.
package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/events"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Ledger servicio armado más los recursos que hay que cerrar al apagar.
type Ledger struct {
	Service *inventory.LedgerService
	Metrics *metrics.Registry
	closers []func()
}

// Close libera conexiones en orden inverso de apertura.
func (l *Ledger) Close() {
	for i := len(l.closers) - 1; i >= 0; i-- {
		l.closers[i]()
	}
}

// Options ajustes por binario.
type Options struct {
	// Publish deshabilitado en el CLI: reparar no genera eventos de movimiento.
	Publish bool
}

// BuildLedger conecta store, lock, publicador y métricas según cfg.
func BuildLedger(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*Ledger, error) {
	out := &Ledger{Metrics: metrics.NewRegistry()}
	deps := inventory.LedgerDeps{
		Metrics:     out.Metrics,
		Logger:      &log,
		LockTimeout: cfg.Ledger.LockTimeout,
	}

	switch cfg.Ledger.Store {
	case config.StoreMemory:
		store := memory.NewStore()
		seeded, err := SeedMemory(store, cfg.Ledger.MemorySeed)
		if err != nil {
			return nil, err
		}
		log.Warn().Int("products", seeded).Msg("store en memoria: los datos se pierden al reiniciar")
		deps.TxRunner, deps.Products, deps.Movements = store, store.Products(), store.Movements()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		out.closers = append(out.closers, pool.Close)
		deps.TxRunner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		deps.Products = postgres.NewProductRepository(pool)
		deps.Movements = postgres.NewStockMovementRepository(pool)
	}

	switch cfg.Ledger.LockBackend {
	case config.LockRedis:
		client, err := lock.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.closers = append(out.closers, func() { _ = client.Close() })
		deps.Locker = lock.NewRedisLocker(client, cfg.Redis.LockTTL, log)
	default:
		deps.Locker = lock.NewKeyedLocker()
	}

	if opts.Publish && cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, log)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.closers = append(out.closers, func() { _ = nc.Drain() })
		deps.Publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
	}

	out.Service = inventory.NewLedgerService(deps)
	return out, nil
}

// SeedMemory siembra productos en el store en memoria desde "id[:factor],...".
func SeedMemory(store *memory.Store, seed string) (int, error) {
	n := 0
	for _, item := range strings.Split(seed, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, rawFactor, hasFactor := strings.Cut(item, ":")
		factor := int64(1)
		if hasFactor {
			f, err := strconv.ParseInt(rawFactor, 10, 64)
			if err != nil || f < 1 {
				return n, fmt.Errorf("LEDGER_MEMORY_SEED: factor inválido en %q", item)
			}
			factor = f
		}
		store.PutProduct(entity.Product{ID: id, Name: id, PiecesPerBaseUnit: factor})
		n++
	}
	return n, nil
}
