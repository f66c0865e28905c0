package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotError_FatalCategories(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		fatal    bool
	}{
		{ErrorCategoryTransient, false},
		{ErrorCategoryTimeout, false},
		{ErrorCategoryPersistence, false},
		{ErrorCategoryOrder, false},
		{ErrorCategoryOrderAnomaly, true},
		{ErrorCategoryUnprofitableFill, true},
		{ErrorCategoryConfiguration, true},
		{ErrorCategoryFatal, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := NewBotError(tt.category, "engine", "cycle", "boom")
			assert.Equal(t, tt.fatal, err.IsFatal())
			assert.Equal(t, tt.fatal, IsFatal(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestIsFatal_PlainErrors(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(context.Canceled))
}

func TestWrapError_PreservesChain(t *testing.T) {
	root := stderrors.New("connection reset")
	err := NewTransientError("exchange", "get_order", root)

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, root))
	assert.True(t, err.Retryable)
	assert.Equal(t, RecoveryActionRetry, err.GetRecoveryAction())
	assert.Nil(t, WrapError(nil, ErrorCategoryTransient, "x", "y"))
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, ErrorCategoryTimeout, CategorizeError(context.DeadlineExceeded, "c", "o").Category)
	assert.Equal(t, ErrorCategoryOrder, CategorizeError(stderrors.New("Insufficient funds"), "c", "o").Category)
	assert.Equal(t, ErrorCategoryTransient, CategorizeError(stderrors.New("eof"), "c", "o").Category)

	anomaly := NewOrderAnomaly("orders", "poll", "done without fill")
	assert.Same(t, anomaly, CategorizeError(fmt.Errorf("ctx: %w", anomaly), "c", "o"))
}

func TestBotError_Context(t *testing.T) {
	err := NewOrderAnomaly("orders", "cancel", "echo mismatch").
		WithContext("order_id", "abc").
		WithContext("echoed_id", "def")

	assert.Equal(t, "abc", err.Context["order_id"])
	assert.Equal(t, RecoveryActionStop, err.GetRecoveryAction())
	assert.Contains(t, err.Error(), "ORDER_ANOMALY")
	assert.Equal(t, ErrorCategoryOrderAnomaly, CategoryOf(err))
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewTransientError("a", "b", stderrors.New("1")))
	stats.RecordError(NewTransientError("a", "b", stderrors.New("2")))
	stats.RecordError(NewPersistenceError("a", "b", stderrors.New("3")))

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(ErrorCategoryTransient), 1e-9)
	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, []ErrorCategory{ErrorCategoryPersistence, ErrorCategoryTransient}, stats.Categories())
}

func TestNewTimeoutError_RetriesCycle(t *testing.T) {
	err := NewTimeoutError("engine", "execute", "order not filled").WithContext("polls", 3)

	assert.False(t, IsFatal(err))
	assert.True(t, err.Retryable)
	assert.Equal(t, RecoveryActionRetry, err.GetRecoveryAction())
	assert.Same(t, err, CategorizeError(err, "engine", "cycle"))
}
