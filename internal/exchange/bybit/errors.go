package bybit

import (
	"encoding/json"
	"fmt"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *BybitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeInvalidAPIKey       = 10003
	ErrCodeInvalidSignature    = 10004
	ErrCodeRateLimitExceeded   = 10006
	ErrCodeOrderNotFound       = 110001
	ErrCodeInsufficientBalance = 110007
	ErrCodeSpotOrderNotFound   = 170213
	ErrCodeSpotInsufficient    = 170131
)

// toExchangeError maps a Bybit error code onto the shared error vocabulary
func toExchangeError(operation string, e *BybitError) *exchange.ExchangeError {
	exErr := &exchange.ExchangeError{
		Code:    fmt.Sprintf("BYBIT_%d", e.Code),
		Message: operation + ": " + e.Message,
		Details: e.Error(),
	}
	switch e.Code {
	case ErrCodeOrderNotFound, ErrCodeSpotOrderNotFound:
		exErr.Code = exchange.ErrOrderNotFound.Code
	case ErrCodeInsufficientBalance, ErrCodeSpotInsufficient:
		exErr.Code = exchange.ErrInsufficientBalance.Code
	case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature:
		exErr.Code = exchange.ErrAuthenticationFailed.Code
	case ErrCodeRateLimitExceeded:
		exErr.Code = exchange.ErrRateLimitExceeded.Code
		exErr.IsRetryable = true
	}
	return exErr
}

// decodeResult checks retCode and decodes the result payload into out
func decodeResult(operation string, resp *bybit_api.ServerResponse, out interface{}) error {
	if resp == nil {
		return &exchange.ExchangeError{Code: "EMPTY_RESPONSE", Message: operation + ": empty response"}
	}
	if resp.RetCode != 0 {
		return toExchangeError(operation, &BybitError{Code: resp.RetCode, Message: resp.RetMsg})
	}
	if out == nil {
		return nil
	}

	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal result: %w", operation, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal result: %w", operation, err)
	}
	return nil
}

func transportError(operation string, err error) error {
	return &exchange.ExchangeError{
		Code:        exchange.ErrConnectionFailed.Code,
		Message:     operation + " failed",
		Details:     err.Error(),
		IsRetryable: true,
	}
}
