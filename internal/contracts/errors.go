package contracts

import (
	"context"
	"errors"
	"fmt"
)

// FailureClass classifies why a live quote was not accepted
type FailureClass string

const (
	FailureNetwork    FailureClass = "network_error"
	FailureAuth       FailureClass = "auth_error"
	FailureRateLimit  FailureClass = "rate_limited"
	FailureMalformed  FailureClass = "malformed_response"
	FailureValidation FailureClass = "validation_failed"
	FailureBudget     FailureClass = "budget_exceeded"
)

// FetchError is returned by quote sources for any failed fetch
type FetchError struct {
	Provider string
	Symbol   string
	Class    FailureClass
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch %s: %s: %v", e.Provider, e.Symbol, e.Class, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with its classification
func NewFetchError(provider, symbol string, class FailureClass, err error) *FetchError {
	return &FetchError{Provider: provider, Symbol: symbol, Class: class, Err: err}
}

// ClassOf extracts the failure class of a fetch error.
// 분류되지 않은 오류와 타임아웃은 network_error 로 간주
func ClassOf(err error) FailureClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return FailureNetwork
}

// ErrConfiguration matches every ConfigurationError via errors.Is
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is the only error that leaves the briefing core.
// 재시도로 해결되지 않으므로 스케줄러도 재시도하지 않음
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError builds a ConfigurationError
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// RunExpired reports whether the run context is past its budget
func RunExpired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled)
}
