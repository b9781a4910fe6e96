package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorKind classifies engine errors for handlers and retry decisions
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not-found"
	KindConflict      ErrorKind = "conflict"
	KindStore         ErrorKind = "store"
)

// Stable error codes returned to callers
const (
	CodeValidation      = "validation_error"
	CodeUnauthenticated = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeStoreFailure    = "store_unavailable"
)

// EngineError carries a kind, a stable code and a caller-safe message.
// Err holds internal detail and is never rendered to callers.
type EngineError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches another EngineError of the same kind
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || t.Code == e.Code)
}

// Retryable reports whether the failed operation may be retried.
// Only store failures on read paths qualify; writers never retry.
func (e *EngineError) Retryable() bool {
	return e.Kind == KindStore
}

// Sentinels for errors.Is checks
var (
	ErrValidation    = &EngineError{Kind: KindValidation}
	ErrAuthorization = &EngineError{Kind: KindAuthorization}
	ErrNotFound      = &EngineError{Kind: KindNotFound}
	ErrConflict      = &EngineError{Kind: KindConflict}
	ErrStore         = &EngineError{Kind: KindStore}
)

func NewValidationError(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindAuthorization, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// NewUnauthenticatedError is an authorization failure caused by a missing or bad identity
func NewUnauthenticatedError(message string) *EngineError {
	return &EngineError{Kind: KindAuthorization, Code: CodeUnauthenticated, Message: message}
}

func NewNotFoundError(entity, id string) *EngineError {
	return &EngineError{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func NewConflictError(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindConflict, Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// NewStoreError wraps a store failure; the cause stays internal
func NewStoreError(op string, err error) *EngineError {
	return &EngineError{Kind: KindStore, Code: CodeStoreFailure, Message: op + " failed", Err: err}
}

// KindOf returns the kind of an engine error, or KindStore for anything else
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindStore
}

// IsKind reports whether err is an engine error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Kind == kind
}

// AsEngineError converts any error into an EngineError, treating unknown
// failures as store errors
func AsEngineError(op string, err error) *EngineError {
	if err == nil {
		return nil
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return NewStoreError(op, err)
}

const (
	defaultReadAttempts = 3
	readRetryBackoff    = 50 * time.Millisecond
)

// retryRead runs a read against the store, retrying store failures with a
// linear backoff. Record-not-found is returned as-is for the caller to map.
func retryRead(ctx context.Context, logger *zap.Logger, metrics *EngineMetrics, attempts int, op string, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		metrics.storeRetried(op)
		logger.Warn("Store read failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return NewStoreError(op, ctx.Err())
		case <-time.After(time.Duration(attempt) * readRetryBackoff):
		}
	}
	return NewStoreError(op, err)
}
