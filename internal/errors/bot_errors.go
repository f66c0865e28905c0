package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrorCategory represents the handling class of an error
type ErrorCategory string

const (
	// Recoverable conditions: logged, the cycle continues
	ErrorCategoryTransient   ErrorCategory = "TRANSIENT"
	ErrorCategoryTimeout     ErrorCategory = "TIMEOUT"
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"
	ErrorCategoryOrder       ErrorCategory = "ORDER"

	// Conditions that terminate the run
	ErrorCategoryOrderAnomaly     ErrorCategory = "ORDER_ANOMALY"
	ErrorCategoryUnprofitableFill ErrorCategory = "UNPROFITABLE_FILL"
	ErrorCategoryConfiguration    ErrorCategory = "CONFIG"
	ErrorCategoryFatal            ErrorCategory = "FATAL"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error should stop the bot
func (e *BotError) IsFatal() bool {
	return isFatalCategory(e.Category)
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithMessage sets the error message
func (e *BotError) WithMessage(message string) *BotError {
	e.Message = message
	return e
}

// WithRetryable sets whether the error is retryable
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryTransient, ErrorCategoryTimeout:
		return true
	default:
		return false
	}
}

func isFatalCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryOrderAnomaly, ErrorCategoryUnprofitableFill, ErrorCategoryConfiguration, ErrorCategoryFatal:
		return true
	default:
		return false
	}
}

// AsBotError extracts a BotError from an error chain
func AsBotError(err error) (*BotError, bool) {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr, true
	}
	return nil, false
}

// IsFatal reports whether err must terminate the run. Context cancellation is
// not fatal: it is a requested shutdown.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if botErr, ok := AsBotError(err); ok {
		return botErr.IsFatal()
	}
	return false
}

// CategoryOf returns the category of err, or TRANSIENT for uncategorized errors
func CategoryOf(err error) ErrorCategory {
	if botErr, ok := AsBotError(err); ok {
		return botErr.Category
	}
	return ErrorCategoryTransient
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	if botErr, ok := AsBotError(err); ok {
		return botErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "timeout") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "insufficient") || strings.Contains(errMsg, "invalid") {
		return WrapError(err, ErrorCategoryOrder, component, operation)
	}

	return WrapError(err, ErrorCategoryTransient, component, operation)
}

// Common error constructors
func NewTransientError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTransient, component, operation)
}

func NewTimeoutError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryTimeout, component, operation, message)
}

func NewOrderError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryOrder, component, operation)
}

func NewOrderAnomaly(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryOrderAnomaly, component, operation, message)
}

func NewUnprofitableFill(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryUnprofitableFill, component, operation, message)
}

func NewPersistenceError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryPersistence, component, operation)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewFatalError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryFatal, component, operation, message)
}

// RecoveryAction is what the cycle boundary does with an error
type RecoveryAction string

const (
	RecoveryActionRetry    RecoveryAction = "RETRY"
	RecoveryActionContinue RecoveryAction = "CONTINUE"
	RecoveryActionStop     RecoveryAction = "STOP"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *BotError) GetRecoveryAction() RecoveryAction {
	switch {
	case e.IsFatal():
		return RecoveryActionStop
	case e.Retryable:
		return RecoveryActionRetry
	default:
		return RecoveryActionContinue
	}
}

// ErrorStats tracks error statistics; safe for concurrent use
type ErrorStats struct {
	mu               sync.Mutex
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// Total returns the number of errors recorded
func (es *ErrorStats) Total() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.TotalErrors
}

// Categories returns the categories seen so far, sorted
func (es *ErrorStats) Categories() []ErrorCategory {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]ErrorCategory, 0, len(es.ErrorsByCategory))
	for c := range es.ErrorsByCategory {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetErrorRate returns the error rate for a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
