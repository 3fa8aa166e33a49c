package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Failure kinds. Callers branch on these with errors.Is; the wrapping
// OperationError only adds context.
var (
	ErrExtractionUnavailable = errors.New("receipt extraction unavailable")
	ErrRecordNotFound        = errors.New("supply record not found")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrStoreUnavailable      = errors.New("catalog store unavailable")
	ErrInvalidLineItem       = errors.New("invalid line item")
	ErrScanNotFound          = errors.New("receipt scan not found")
	ErrLineNotFound          = errors.New("receipt line not found")
	ErrLineAlreadyProcessed  = errors.New("receipt line already processed")
	ErrScanExpired           = errors.New("receipt scan expired")
)

// OperationError names the operation and the item it was working on.
type OperationError struct {
	Action string
	Item   string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Action, e.Item, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func opError(action, item string, err error) error {
	var oe *OperationError
	if errors.As(err, &oe) {
		return err
	}
	return &OperationError{Action: action, Item: item, Err: err}
}

// storeGuard bounds every catalog store round trip and translates driver
// errors into the service's failure kinds. Nothing is retried here.
type storeGuard struct {
	timeout time.Duration
}

func newStoreGuard(timeout time.Duration) storeGuard {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return storeGuard{timeout: timeout}
}

func (g storeGuard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return mapStoreError(fn(ctx))
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		log.Error().Err(err).Msg("catalog store call failed")
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
