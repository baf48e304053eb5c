// Package service implements the BestReads use cases on top of the store.
//
// Each mutating operation runs in one store.Update transaction. Activities
// produced by the operation are written in that transaction and broadcast
// only after it commits.
package service

import (
	"context"
	"errors"

	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/store"
	"github.com/bestreads/bestreads-server/internal/validation"
)

// validate is the shared request validator.
var validate = validation.New()

// Broadcaster pushes committed events to live subscribers. sse.Manager implements it.
type Broadcaster interface {
	Emit(event any)
}

// Metrics receives activity pipeline counters. metrics.Collector implements it.
type Metrics interface {
	ActivityRecorded(activityType string, updated bool)
	CompletionTransition()
}

// NoopBroadcaster drops every event.
type NoopBroadcaster struct{}

// Emit is a no-op.
func (NoopBroadcaster) Emit(any) {}

// NoopMetrics discards every counter.
type NoopMetrics struct{}

// ActivityRecorded is a no-op.
func (NoopMetrics) ActivityRecorded(string, bool) {}

// CompletionTransition is a no-op.
func (NoopMetrics) CompletionTransition() {}

// translate maps store sentinels and context errors onto coded domain errors.
// Domain errors and already-coded store failures pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainerrors.Canceled("request canceled", err)
	case errors.Is(err, store.ErrUserNotFound):
		return domainerrors.NotFound("user not found").WithCause(err)
	case errors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFound("book not found").WithCause(err)
	case errors.Is(err, store.ErrActivityNotFound):
		return domainerrors.NotFound("activity not found").WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("not found").WithCause(err)
	case errors.Is(err, store.ErrEmailExists):
		return domainerrors.AlreadyExists("email already in use").WithCause(err)
	case errors.Is(err, store.ErrUsernameExists):
		return domainerrors.AlreadyExists("username already taken").WithCause(err)
	case errors.Is(err, store.ErrISBNExists):
		return domainerrors.AlreadyExists("a book with this ISBN already exists").WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists("already exists").WithCause(err)
	default:
		return err
	}
}
