package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/engine"
	"vaultScope/internal/impact"
	"vaultScope/internal/liquidity"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/tickmath"
	"vaultScope/internal/valuation"
)

type fakeService struct {
	err        error
	gotTicks   int
	gotCenter  *int
	gotTick    int
	gotPrice   decimal.Decimal
	impactCall string
	gotRange   [2]int
}

func (f *fakeService) PoolSnapshot(context.Context) (engine.Snapshot, error) {
	if f.err != nil {
		return engine.Snapshot{}, f.err
	}
	return engine.Snapshot{
		Slot0:       model.Slot0{SqrtPriceX96: big.NewInt(79228162514264337), Tick: 30},
		Liquidity:   big.NewInt(1000),
		TickSpacing: 60,
	}, nil
}

func (f *fakeService) TicksData(_ context.Context, ticksToRead int, center *int) ([]model.TickData, error) {
	f.gotTicks, f.gotCenter = ticksToRead, center
	if f.err != nil {
		return nil, f.err
	}
	return []model.TickData{{Tick: 0, LiquidityGross: big.NewInt(1), LiquidityNet: big.NewInt(1)}}, nil
}

func (f *fakeService) ComputeLiquidityCurve(_ context.Context, steps int) (liquidity.Curve, error) {
	f.gotTicks = steps
	if f.err != nil {
		return liquidity.Curve{}, f.err
	}
	return liquidity.Curve{}, nil
}

func (f *fakeService) ValuateTicks(_ context.Context, steps int) ([]valuation.TickEntry, error) {
	f.gotTicks = steps
	if f.err != nil {
		return nil, f.err
	}
	return []valuation.TickEntry{{TickIdx: 0}}, nil
}

func (f *fakeService) ValuateTick(_ context.Context, tick int) (valuation.TickEntry, string, error) {
	f.gotTick = tick
	if f.err != nil {
		return valuation.TickEntry{}, "", f.err
	}
	return valuation.TickEntry{TickIdx: tick}, "WETH Locked: 1", nil
}

func (f *fakeService) SimulatePriceImpact(_ context.Context, expectedTick int) (impact.Result, error) {
	f.impactCall = "tick"
	f.gotTick = expectedTick
	if f.err != nil {
		return impact.Result{}, f.err
	}
	if expectedTick == 30 {
		return impact.Result{Status: impact.StatusNoop, Message: impact.MessageAlreadyAtTarget}, nil
	}
	return impact.Result{Status: impact.StatusOK, ExpectedTick: expectedTick, TokenToBuy: "WETH"}, nil
}

func (f *fakeService) SimulatePriceImpactAtPrice(_ context.Context, price decimal.Decimal) (impact.Result, error) {
	f.impactCall = "price"
	f.gotPrice = price
	if f.err != nil {
		return impact.Result{}, f.err
	}
	return impact.Result{Status: impact.StatusOK, ExpectedTick: -90}, nil
}

func (f *fakeService) VaultState(context.Context) (model.VaultState, error) {
	if f.err != nil {
		return model.VaultState{}, f.err
	}
	return model.VaultState{Address: "0xcccccccccccccccccccccccccccccccccccccccc", BaseLower: -1200, BaseUpper: 1200}, nil
}

func (f *fakeService) VaultBalances(context.Context) (model.VaultAmounts, error) {
	return f.vaultAmounts()
}

func (f *fakeService) VaultTotalAmounts(context.Context) (model.VaultAmounts, error) {
	return f.vaultAmounts()
}

func (f *fakeService) VaultPositionAmounts(_ context.Context, tickLower, tickUpper int) (model.VaultAmounts, error) {
	f.gotRange = [2]int{tickLower, tickUpper}
	return f.vaultAmounts()
}

func (f *fakeService) vaultAmounts() (model.VaultAmounts, error) {
	if f.err != nil {
		return model.VaultAmounts{}, f.err
	}
	return model.VaultAmounts{Token0: "WETH", Token1: "USDC", Amount0: decimal.RequireFromString("1.5"), Amount1: decimal.NewFromInt(2500)}, nil
}

type memoryRequestLog struct {
	mu      sync.Mutex
	entries []*model.RequestLog
	err     error
}

func (m *memoryRequestLog) InsertLog(_ context.Context, entry *model.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return m.err
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndSlot0(t *testing.T) {
	srv := NewServer(Config{}, &fakeService{})

	rec := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, srv.Handler(), http.MethodGet, "/slot0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "60", string(snap["tickSpacing"]))
}

func TestTicksQueryParams(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(Config{}, svc)

	rec := do(t, srv.Handler(), http.MethodGet, "/ticks?ticksToRead=5&tickCurrent=-120", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.gotTicks)
	require.NotNil(t, svc.gotCenter)
	assert.Equal(t, -120, *svc.gotCenter)

	rec = do(t, srv.Handler(), http.MethodGet, "/ticks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.gotTicks)
	assert.Nil(t, svc.gotCenter)

	rec = do(t, srv.Handler(), http.MethodGet, "/ticks?ticksToRead=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTVLTick(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(Config{}, svc)

	rec := do(t, srv.Handler(), http.MethodGet, "/tvl/-60", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -60, svc.gotTick)

	var body tickTVLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "WETH Locked: 1", body.Description)

	rec = do(t, srv.Handler(), http.MethodGet, "/tvl/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"out of bounds", fmt.Errorf("tick 900000: %w", tickmath.ErrTickOutOfBounds), http.StatusBadRequest, impact.MessageOutOfBounds},
		{"invalid input", fmt.Errorf("%w: too many ticks", engine.ErrInvalidInput), http.StatusBadRequest, "Invalid request"},
		{"not in window", impact.ErrTickNotInWindow, http.StatusBadRequest, "Tick is not in the computed window"},
		{"upstream", fmt.Errorf("%w: slot0: %w", engine.ErrUpstream, errors.New("dial tcp")), http.StatusBadGateway, "Failed to read pool state"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "Request timed out"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Config{}, &fakeService{err: tt.err})
			rec := do(t, srv.Handler(), http.MethodGet, "/tvl", "")
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestPriceImpactByTick(t *testing.T) {
	svc := &fakeService{}
	requests := &memoryRequestLog{}
	srv := NewServer(Config{}, svc, WithRequestLogger(requests))

	rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", `{"expectedTick":150}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tick", svc.impactCall)
	assert.Equal(t, 150, svc.gotTick)

	requestID := rec.Header().Get("X-Request-ID")
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	require.Len(t, requests.entries, 1)
	entry := requests.entries[0]
	assert.Equal(t, requestID, entry.ID)
	assert.Equal(t, "price-impact", entry.Source)
	assert.Equal(t, "ok", entry.Log)
	assert.JSONEq(t, `{"expectedTick":150}`, string(entry.Input))
	assert.JSONEq(t, rec.Body.String(), string(entry.Data))
}

func TestPriceImpactByPrice(t *testing.T) {
	svc := &fakeService{}
	srv := NewServer(Config{}, svc)

	rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", `{"expectedPrice":"1850.25"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "price", svc.impactCall)
	assert.Equal(t, "1850.25", svc.gotPrice.String())
}

func TestPriceImpactNoOp(t *testing.T) {
	srv := NewServer(Config{}, &fakeService{})

	rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", `{"expectedTick":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"ExpectedTick is equal to currentTick"}`, rec.Body.String())
}

func TestPriceImpactRejectsBadBodies(t *testing.T) {
	requests := &memoryRequestLog{}
	srv := NewServer(Config{}, &fakeService{}, WithRequestLogger(requests))

	for _, body := range []string{
		`{}`,
		`{"expectedTick":1,"expectedPrice":"2"}`,
		`not json`,
	} {
		rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	require.Len(t, requests.entries, 3)
	for _, entry := range requests.entries {
		assert.True(t, strings.HasPrefix(entry.Log, "error: "))
	}
	assert.Nil(t, requests.entries[2].Input)
}

func TestPriceImpactOutOfBounds(t *testing.T) {
	srv := NewServer(Config{}, &fakeService{err: tickmath.ErrTickOutOfBounds})

	rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", `{"expectedTick":900000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, impact.MessageOutOfBounds, decodeError(t, rec).Message)
}

func TestRequestLogFailureDoesNotChangeResponse(t *testing.T) {
	requests := &memoryRequestLog{err: errors.New("db down")}
	srv := NewServer(Config{}, &fakeService{}, WithRequestLogger(requests))

	rec := do(t, srv.Handler(), http.MethodPost, "/price-impact", `{"expectedTick":150}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := NewServer(Config{}, &fakeService{})

	rec := do(t, srv.Handler(), http.MethodGet, "/price-impact", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	srv := NewServer(Config{}, &fakeService{}, WithMetrics(m))

	do(t, srv.Handler(), http.MethodGet, "/health", "")
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vaultscope_http_requests_total")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("health", "200")))
}
