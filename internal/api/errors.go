package api

import (
	"context"
	"errors"
	"net/http"

	"vaultScope/internal/engine"
	"vaultScope/internal/impact"
	"vaultScope/internal/tickmath"
	"vaultScope/internal/valuation"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classify maps an error to its HTTP status and public message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tickmath.ErrTickOutOfBounds):
		return http.StatusBadRequest, impact.MessageOutOfBounds
	case errors.Is(err, impact.ErrTickNotInWindow),
		errors.Is(err, valuation.ErrTickNotInCurve):
		return http.StatusBadRequest, "Tick is not in the computed window"
	case errors.Is(err, errBadRequest),
		errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, tickmath.ErrInvalidPrice):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, engine.ErrNoVault):
		return http.StatusNotFound, "Vault is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, engine.ErrUpstream):
		return http.StatusBadGateway, "Failed to read pool state"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
