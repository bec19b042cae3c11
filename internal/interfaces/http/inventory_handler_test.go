package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

type ledgerApp struct {
	app   *fiber.App
	store *memory.Store
}

func buildLedgerApp(t *testing.T) *ledgerApp {
	t.Helper()
	store := memory.NewStore()
	store.PutProduct(entity.Product{ID: "cable", Name: "Cable UTP", PiecesPerBaseUnit: 24})
	store.PutProduct(entity.Product{ID: "tornillo", Name: "Tornillo"})

	ledger := inventory.NewLedgerService(inventory.LedgerDeps{
		TxRunner:  store,
		Products:  store.Products(),
		Movements: store.Movements(),
		Locker:    lock.NewKeyedLocker(),
	})
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:         ledger,
		JWTSecret:      testJWTSecret,
		MetricsHandler: metrics.NewRegistry().Handler(),
	})
	return &ledgerApp{app: app, store: store}
}

func (a *ledgerApp) do(t *testing.T, method, path, role, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRecordMovement_InboundBaseUnits(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"cable","kind":"IN","unit":"BASE_UNIT","quantity":"10","reference":"OC-1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[dto.RecordMovementResponse](t, resp)
	assert.Equal(t, int64(240), body.Projection.StockPieces)
	assert.True(t, decimal.NewFromInt(10).Equal(body.Projection.StockBaseUnits))
	assert.Equal(t, "IN", body.Movement.Kind)
	assert.Equal(t, "BASE_UNIT", body.Movement.Unit)
	assert.Equal(t, testUserID, body.Movement.RecordedBy)
	assert.NotNil(t, body.Warnings)
	assert.Empty(t, body.Warnings)
}

func TestRecordMovement_OutboundBelowZeroReturnsWarning(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"tornillo","kind":"OUT","unit":"PCS","quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[dto.RecordMovementResponse](t, resp)
	assert.Equal(t, int64(0), body.Projection.StockPieces)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, string(entity.WarningStockWentNegative), body.Warnings[0].Code)
}

func TestRecordMovement_ValidationErrors(t *testing.T) {
	a := buildLedgerApp(t)

	cases := []struct {
		name string
		body string
	}{
		{"unidad desconocida", `{"product_id":"cable","kind":"IN","unit":"BOX","quantity":"1"}`},
		{"tipo desconocido", `{"product_id":"cable","kind":"TRANSFER","unit":"PCS","quantity":"1"}`},
		{"cantidad cero", `{"product_id":"cable","kind":"IN","unit":"PCS","quantity":"0"}`},
		{"piezas fraccionarias", `{"product_id":"cable","kind":"IN","unit":"PCS","quantity":"1.5"}`},
		{"sin producto", `{"kind":"IN","unit":"PCS","quantity":"1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[dto.ErrorResponse](t, resp)
			assert.Equal(t, "VALIDATION", body.Code)
		})
	}

	p, err := a.store.Products().GetByID(context.Background(), "cable")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.StockPieces)
	exists, err := a.store.Movements().ExistsForProduct(context.Background(), "cable")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRecordMovement_InvalidBody(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator, `{"product_id":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decode[dto.ErrorResponse](t, resp).Code)
}

func TestRecordMovement_UnknownProduct(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"no-existe","kind":"IN","unit":"PCS","quantity":"1"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

func TestRecordMovement_PersistenceFailure(t *testing.T) {
	a := buildLedgerApp(t)
	a.store.FailNextCommits(1)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"cable","kind":"IN","unit":"PCS","quantity":"3"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "PERSISTENCE", decode[dto.ErrorResponse](t, resp).Code)
}

func TestRecordMovement_RequiresToken(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPost, "/api/inventory/movements", "",
		`{"product_id":"cable","kind":"IN","unit":"PCS","quantity":"3"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProjectionAndMovements(t *testing.T) {
	a := buildLedgerApp(t)
	for _, body := range []string{
		`{"product_id":"cable","kind":"IN","unit":"PCS","quantity":"48"}`,
		`{"product_id":"cable","kind":"OUT","unit":"BASE_UNIT","quantity":"0.5"}`,
		`{"product_id":"cable","kind":"ADJUSTMENT","unit":"PCS","quantity":"30"}`,
	} {
		resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator, body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := a.do(t, http.MethodGet, "/api/inventory/products/cable/projection", pkgjwt.RoleOperator, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	proj := decode[dto.ProjectionDTO](t, resp)
	assert.Equal(t, int64(30), proj.StockPieces)
	assert.Equal(t, "1.25", proj.StockBaseUnits.String())

	resp = a.do(t, http.MethodGet, "/api/inventory/products/cable/movements?limit=2", pkgjwt.RoleOperator, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.MovementListResponse](t, resp)
	require.Len(t, list.Movements, 2)
	assert.Equal(t, "ADJUSTMENT", list.Movements[0].Kind)
	assert.Equal(t, "OUT", list.Movements[1].Kind)
	assert.Equal(t, 2, list.Page.Limit)

	resp = a.do(t, http.MethodGet, "/api/inventory/products/cable/replay", pkgjwt.RoleOperator, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replayed := decode[dto.ProjectionDTO](t, resp)
	assert.Equal(t, proj.StockPieces, replayed.StockPieces)
	assert.True(t, proj.StockBaseUnits.Equal(replayed.StockBaseUnits))
}

func TestListMovements_InvalidRange(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodGet, "/api/inventory/products/cable/movements?from=ayer", pkgjwt.RoleOperator, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet,
		"/api/inventory/products/cable/movements?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", pkgjwt.RoleOperator, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDriftAndRepair(t *testing.T) {
	a := buildLedgerApp(t)
	resp := a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"tornillo","kind":"IN","unit":"PCS","quantity":"10"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// proyección corrompida por fuera del ledger
	ctx := context.Background()
	p, err := a.store.Products().GetByID(ctx, "tornillo")
	require.NoError(t, err)
	p.StockPieces = 7
	p.StockBaseUnits = decimal.NewFromInt(7)
	require.NoError(t, a.store.Products().UpdateStock(ctx, p))

	resp = a.do(t, http.MethodGet, "/api/inventory/products/tornillo/drift", pkgjwt.RoleOperator, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[dto.DriftReportDTO](t, resp)
	assert.True(t, report.Drifted)
	assert.False(t, report.Repaired)
	assert.Equal(t, int64(7), report.Live.StockPieces)
	assert.Equal(t, int64(10), report.Replayed.StockPieces)

	resp = a.do(t, http.MethodPost, "/api/inventory/products/tornillo/repair", pkgjwt.RoleOperator, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/inventory/products/tornillo/repair", pkgjwt.RoleAdmin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report = decode[dto.DriftReportDTO](t, resp)
	assert.True(t, report.Repaired)

	resp = a.do(t, http.MethodGet, "/api/inventory/products/tornillo/projection", pkgjwt.RoleOperator, "")
	assert.Equal(t, int64(10), decode[dto.ProjectionDTO](t, resp).StockPieces)
}

func TestSetConversionFactor(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodPut, "/api/inventory/products/tornillo/conversion", pkgjwt.RoleAdmin, `{"pieces_per_base_unit":100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(100), decode[dto.ProjectionDTO](t, resp).PiecesPerBaseUnit)

	resp = a.do(t, http.MethodPut, "/api/inventory/products/tornillo/conversion", pkgjwt.RoleAdmin, `{"pieces_per_base_unit":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPost, "/api/inventory/movements", pkgjwt.RoleOperator,
		`{"product_id":"tornillo","kind":"IN","unit":"BASE_UNIT","quantity":"1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodPut, "/api/inventory/products/tornillo/conversion", pkgjwt.RoleAdmin, `{"pieces_per_base_unit":50}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", decode[dto.ErrorResponse](t, resp).Code)

	resp = a.do(t, http.MethodPut, "/api/inventory/products/tornillo/conversion", pkgjwt.RoleOperator, `{"pieces_per_base_unit":50}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	a := buildLedgerApp(t)

	resp := a.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = a.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
