package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/engine"
	"vaultScope/internal/impact"
	"vaultScope/internal/liquidity"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

// Service is the engine surface the handlers use.
type Service interface {
	PoolSnapshot(ctx context.Context) (engine.Snapshot, error)
	TicksData(ctx context.Context, ticksToRead int, center *int) ([]model.TickData, error)
	ComputeLiquidityCurve(ctx context.Context, steps int) (liquidity.Curve, error)
	ValuateTicks(ctx context.Context, steps int) ([]valuation.TickEntry, error)
	ValuateTick(ctx context.Context, tick int) (valuation.TickEntry, string, error)
	SimulatePriceImpact(ctx context.Context, expectedTick int) (impact.Result, error)
	SimulatePriceImpactAtPrice(ctx context.Context, price decimal.Decimal) (impact.Result, error)
	VaultState(ctx context.Context) (model.VaultState, error)
	VaultBalances(ctx context.Context) (model.VaultAmounts, error)
	VaultTotalAmounts(ctx context.Context) (model.VaultAmounts, error)
	VaultPositionAmounts(ctx context.Context, tickLower, tickUpper int) (model.VaultAmounts, error)
}

// RequestLogger records served simulations.
type RequestLogger interface {
	InsertLog(ctx context.Context, entry *model.RequestLog) error
}

// Config holds HTTP server settings. Zero durations fall back to defaults.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// Server is the REST surface over one pool.
type Server struct {
	svc            Service
	requests       RequestLogger
	metrics        *metrics.Metrics
	logger         *zap.Logger
	requestTimeout time.Duration
	mux            *http.ServeMux
	server         *http.Server
}

// Option configures a Server.
type Option func(*Server)

func WithRequestLogger(l RequestLogger) Option {
	return func(s *Server) {
		s.requests = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config, svc Service, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:            svc,
		logger:         zap.NewNop(),
		requestTimeout: cfg.RequestTimeout,
		mux:            mux,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.handle("GET /health", "health", s.handleHealth)
	s.handle("GET /slot0", "slot0", s.handleSlot0)
	s.handle("GET /ticks", "ticks", s.handleTicks)
	s.handle("GET /curve", "curve", s.handleCurve)
	s.handle("GET /tvl", "tvl", s.handleTVL)
	s.handle("GET /tvl/{tick}", "tvl_tick", s.handleTVLTick)
	s.handle("POST /price-impact", "price_impact", s.handlePriceImpact)
	s.handle("GET /vault", "vault", s.handleVault)
	s.handle("GET /vault/balances", "vault_balances", s.handleVaultBalances)
	s.handle("GET /vault/total-amounts", "vault_total_amounts", s.handleVaultTotalAmounts)
	s.handle("GET /vault/positions", "vault_positions", s.handleVaultPositions)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle wraps a route with the request timeout, metrics and access logging.
func (s *Server) handle(pattern, route string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		if s.requestTimeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
			defer cancel()
			r = r.WithContext(ctx)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)

		s.metrics.ObserveRequest(route, rec.status, started)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}
