package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vaultScope/internal/impact"
	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

const maxBodyBytes = 1 << 16

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSlot0(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.PoolSnapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	ticksToRead, err := queryInt(r, "ticksToRead")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var center *int
	if raw := r.URL.Query().Get("tickCurrent"); raw != "" {
		tick, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: tickCurrent: %w", errBadRequest, err))
			return
		}
		center = &tick
	}

	data, err := s.svc.TicksData(r.Context(), ticksToRead, center)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	steps, err := queryInt(r, "ticksToRead")
	if err != nil {
		s.writeError(w, err)
		return
	}
	curve, err := s.svc.ComputeLiquidityCurve(r.Context(), steps)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, curve)
}

func (s *Server) handleTVL(w http.ResponseWriter, r *http.Request) {
	steps, err := queryInt(r, "ticksToRead")
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries, err := s.svc.ValuateTicks(r.Context(), steps)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

type tickTVLResponse struct {
	Entry       valuation.TickEntry `json:"entry"`
	Description string              `json:"description"`
}

func (s *Server) handleTVLTick(w http.ResponseWriter, r *http.Request) {
	tick, err := strconv.Atoi(r.PathValue("tick"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: tick: %w", errBadRequest, err))
		return
	}
	entry, description, err := s.svc.ValuateTick(r.Context(), tick)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tickTVLResponse{Entry: entry, Description: description})
}

type priceImpactRequest struct {
	ExpectedTick  *int             `json:"expectedTick"`
	ExpectedPrice *decimal.Decimal `json:"expectedPrice"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handlePriceImpact(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: read body: %w", errBadRequest, err))
		return
	}

	var req priceImpactRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondImpact(w, r, requestID, body, impact.Result{}, fmt.Errorf("%w: decode body: %w", errBadRequest, err))
		return
	}

	var result impact.Result
	switch {
	case req.ExpectedTick != nil && req.ExpectedPrice != nil:
		err = fmt.Errorf("%w: expectedTick and expectedPrice are mutually exclusive", errBadRequest)
	case req.ExpectedTick != nil:
		result, err = s.svc.SimulatePriceImpact(r.Context(), *req.ExpectedTick)
	case req.ExpectedPrice != nil:
		result, err = s.svc.SimulatePriceImpactAtPrice(r.Context(), *req.ExpectedPrice)
	default:
		err = fmt.Errorf("%w: expectedTick or expectedPrice is required", errBadRequest)
	}
	s.respondImpact(w, r, requestID, body, result, err)
}

// respondImpact writes the simulation response and appends it to the
// request log. A failing log write never changes the response.
func (s *Server) respondImpact(w http.ResponseWriter, r *http.Request, requestID string, input []byte, result impact.Result, err error) {
	entry := &model.RequestLog{
		ID:        requestID,
		Source:    "price-impact",
		Timestamp: time.Now().UTC(),
	}
	if json.Valid(input) {
		entry.Input = input
	}

	var status int
	var payload interface{}
	switch {
	case err != nil:
		code, message := classify(err)
		status, payload = code, errorBody{Message: message, Error: err.Error()}
		entry.Log = "error: " + err.Error()
	case result.Status == impact.StatusNoop:
		status, payload = http.StatusOK, messageResponse{Message: result.Message}
		entry.Log = string(impact.StatusNoop)
	default:
		status, payload = http.StatusOK, result
		entry.Log = string(impact.StatusOK)
	}
	if data, mErr := json.Marshal(payload); mErr == nil {
		entry.Data = data
	}

	if s.requests != nil {
		if logErr := s.requests.InsertLog(r.Context(), entry); logErr != nil {
			s.logger.Warn("request log write failed", zap.String("request_id", requestID), zap.Error(logErr))
		}
	}
	if err != nil {
		s.logFailure(status, err)
	}
	s.writeJSON(w, status, payload)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := classify(err)
	s.logFailure(status, err)
	s.writeJSON(w, status, errorBody{Message: message, Error: err.Error()})
}

func (s *Server) logFailure(status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		return
	}
	s.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadRequest, key, err)
	}
	return v, nil
}
