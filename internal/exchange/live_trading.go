package exchange

import (
	"context"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderManager places and supervises limit orders
type OrderManager interface {
	PlaceOrder(ctx context.Context, params OrderParams) (*PlacedOrder, error)
	GetOrder(ctx context.Context, orderID string) (*OrderDetails, error)
	// CancelOrder returns the id the venue reports as cancelled
	CancelOrder(ctx context.Context, orderID string) (string, error)
}

// AccountReader reads balances and fee tiers
type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetAccounts(ctx context.Context) ([]Account, error)
	GetFees(ctx context.Context) (*Fees, error)
}

// FundsTransferer moves funds between profiles of the same owner
type FundsTransferer interface {
	TransferFunds(ctx context.Context, params TransferParams) (*TransferResult, error)
}

// Catalog lists the static metadata needed at startup
type Catalog interface {
	GetProducts(ctx context.Context) ([]Product, error)
	GetProfiles(ctx context.Context) ([]Profile, error)
}

// Client is the full capability set of a trading venue
type Client interface {
	OrderManager
	AccountReader
	FundsTransferer
	Catalog

	GetName() string
	// Refresh re-establishes the authenticated session. Callers invoke it
	// before each order so a stale session never blocks a trigger.
	Refresh(ctx context.Context) error
}

// TickerFeed streams price updates for one product until ctx is done,
// reconnecting on its own after connectivity loss
type TickerFeed interface {
	Run(ctx context.Context, productID string, onTick func(types.Ticker)) error
}

// OrderSide represents buy or sell side
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// TimeInForce controls how long a limit order rests on the book
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// OrderParams represents parameters for placing a limit order
type OrderParams struct {
	ProductID     string          `json:"product_id"`
	Side          OrderSide       `json:"side"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
	TimeInForce   TimeInForce     `json:"time_in_force,omitempty"`
	ClientOrderID string          `json:"client_oid,omitempty"`
}

// PlacedOrder is the acknowledgement of an accepted order
type PlacedOrder struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Order status values as reported by the venue
const (
	OrderStatusOpen    = "open"
	OrderStatusPending = "pending"
	OrderStatusActive  = "active"
	OrderStatusDone    = "done"
)

// Done reasons for a finished order
const (
	DoneReasonFilled   = "filled"
	DoneReasonCanceled = "canceled"
	DoneReasonRejected = "rejected"
)

// OrderDetails represents the current state of an order
type OrderDetails struct {
	ID            string          `json:"id"`
	Side          OrderSide       `json:"side"`
	Status        string          `json:"status"`
	DoneReason    string          `json:"done_reason,omitempty"`
	ExecutedValue decimal.Decimal `json:"executed_value"`
	FillFees      decimal.Decimal `json:"fill_fees"`
	FilledSize    decimal.Decimal `json:"filled_size"`
}

// IsDone reports whether the order reached a terminal status
func (o *OrderDetails) IsDone() bool {
	return o.Status == OrderStatusDone
}

// IsFilled reports whether the order finished by execution
func (o *OrderDetails) IsFilled() bool {
	return o.IsDone() && o.DoneReason == DoneReasonFilled
}

// Account is one currency wallet within a profile
type Account struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
	ProfileID string          `json:"profile_id,omitempty"`
}

// Fees is the account's current fee tier
type Fees struct {
	MakerFeeRate decimal.Decimal `json:"maker_fee_rate"`
	TakerFeeRate decimal.Decimal `json:"taker_fee_rate"`
}

// Highest returns the larger of the maker and taker rates
func (f Fees) Highest() decimal.Decimal {
	return decimal.Max(f.MakerFeeRate, f.TakerFeeRate)
}

// Product is a tradable pair and its increments
type Product struct {
	ID             string `json:"id"`
	BaseCurrency   string `json:"base_currency"`
	QuoteCurrency  string `json:"quote_currency"`
	BaseIncrement  string `json:"base_increment"`
	QuoteIncrement string `json:"quote_increment"`
}

// Profile is a sub-account segregating funds
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// TransferParams moves an amount of currency between profiles
type TransferParams struct {
	FromProfileID string          `json:"from"`
	ToProfileID   string          `json:"to"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
}

// TransferResult is the venue's acknowledgement of a transfer
type TransferResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
}

// ProductID joins base and quote into the venue-neutral BASE-QUOTE form
func ProductID(base, quote string) string {
	return base + "-" + quote
}

// ExchangeError represents standardized errors from exchanges
type ExchangeError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
}

func (e *ExchangeError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Is matches exchange errors by code so wrapped sentinels compare equal
func (e *ExchangeError) Is(target error) bool {
	t, ok := target.(*ExchangeError)
	return ok && t.Code == e.Code
}

// Common error types
var (
	ErrInsufficientBalance = &ExchangeError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "Insufficient balance for trade",
	}

	ErrOrderNotFound = &ExchangeError{
		Code:    "ORDER_NOT_FOUND",
		Message: "Order not found",
	}

	ErrRateLimitExceeded = &ExchangeError{
		Code:        "RATE_LIMIT_EXCEEDED",
		Message:     "API rate limit exceeded",
		IsRetryable: true,
	}

	ErrConnectionFailed = &ExchangeError{
		Code:        "CONNECTION_FAILED",
		Message:     "Failed to connect to exchange",
		IsRetryable: true,
	}

	ErrAuthenticationFailed = &ExchangeError{
		Code:    "AUTHENTICATION_FAILED",
		Message: "API authentication failed",
	}

	ErrUnsupported = &ExchangeError{
		Code:    "UNSUPPORTED",
		Message: "Operation not supported by this venue",
	}
)
