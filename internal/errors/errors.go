package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure surfaced by the backtester.
type Kind string

const (
	// KindData covers malformed or insufficient bar input: missing warm-up
	// history, non-monotonic dates, non-positive prices.
	KindData Kind = "DATA"
	// KindConfig covers invalid rule or engine configuration.
	KindConfig Kind = "CONFIG"
	// KindCompute marks an internal invariant violation inside a run.
	KindCompute Kind = "COMPUTE"
)

// BacktestError is a categorized error with the component and operation that
// raised it.
type BacktestError struct {
	Kind       Kind
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Component, e.Operation, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsFatal reports whether the error must abort the current run. Every kind
// aborts; compute errors additionally indicate an engine bug.
func (e *BacktestError) IsFatal() bool {
	return true
}

// IsBug reports whether the error is an internal invariant violation.
func (e *BacktestError) IsBug() bool {
	return e.Kind == KindCompute
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a categorized error.
func New(kind Kind, component, operation, message string) *BacktestError {
	return &BacktestError{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// Wrap attaches a kind to an existing error. Wrapping nil returns nil.
func Wrap(err error, kind Kind, component, operation, message string) *BacktestError {
	if err == nil {
		return nil
	}
	return &BacktestError{
		Kind:       kind,
		Component:  component,
		Operation:  operation,
		Message:    message,
		Underlying: err,
	}
}

func NewDataError(component, operation, message string) *BacktestError {
	return New(KindData, component, operation, message)
}

func NewConfigError(component, operation, message string) *BacktestError {
	return New(KindConfig, component, operation, message)
}

func NewComputeError(component, operation, message string) *BacktestError {
	return New(KindCompute, component, operation, message)
}

// DataErrorf formats a data error message.
func DataErrorf(component, operation, format string, args ...interface{}) *BacktestError {
	return New(KindData, component, operation, fmt.Sprintf(format, args...))
}

// ConfigErrorf formats a config error message.
func ConfigErrorf(component, operation, format string, args ...interface{}) *BacktestError {
	return New(KindConfig, component, operation, fmt.Sprintf(format, args...))
}

// ComputeErrorf formats a compute error message.
func ComputeErrorf(component, operation, format string, args ...interface{}) *BacktestError {
	return New(KindCompute, component, operation, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first BacktestError in err's chain.
func KindOf(err error) (Kind, bool) {
	var be *BacktestError
	if stderrors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
