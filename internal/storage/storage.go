package storage

import (
	"context"
	"errors"

	"vaultScope/internal/model"
)

// EventSink persists decoded pool events.
type EventSink interface {
	PutEvents(ctx context.Context, events []model.PoolEvent) error
}

// MultiSink fans a batch out to several sinks. Every sink is attempted;
// the returned error joins all failures.
type MultiSink []EventSink

func (m MultiSink) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEvents(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
