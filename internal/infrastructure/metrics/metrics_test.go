package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
)

func TestRegistry_Counters(t *testing.T) {
	r := metrics.NewRegistry()
	r.MovementRecorded(entity.MovementInbound, entity.UnitBaseUnit, 3*time.Millisecond)
	r.MovementRecorded(entity.MovementInbound, entity.UnitBaseUnit, time.Millisecond)
	r.MovementRejected("timeout")
	r.Warning(entity.WarningStockWentNegative)
	r.DriftDetected()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.MovementsTotal.WithLabelValues("IN", "BASE_UNIT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RejectedTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.WarningsTotal.WithLabelValues("STOCK_WENT_NEGATIVE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DriftTotal))
}

func TestRegistry_Handler(t *testing.T) {
	r := metrics.NewRegistry()
	r.LockWait(time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ledger_lock_wait_seconds_count 1")
}
