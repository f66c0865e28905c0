package allocation

import (
	"context"
	"fmt"

	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const component = "allocator"

// Config controls profit routing
type Config struct {
	Enabled bool
	// ShareFraction of each realized profit sent to the deposit profile, in [0,1]
	ShareFraction decimal.Decimal
}

// Validate checks the share bounds
func (c Config) Validate() error {
	if c.ShareFraction.IsNegative() || c.ShareFraction.GreaterThan(one) {
		return fmt.Errorf("deposit share fraction must be in [0,1], got %s", c.ShareFraction)
	}
	return nil
}

// Route names the two profiles and the currency profit moves in
type Route struct {
	FromProfileID  string
	ToProfileID    string
	Currency       string
	QuotePrecision int32
}

// Allocation describes what happened to one profit
type Allocation struct {
	Profit     decimal.Decimal
	Amount     decimal.Decimal
	TransferID string
	Skipped    bool
	Reason     string
}

// Allocator transfers a share of profit between profiles
type Allocator struct {
	client exchange.FundsTransferer
	cfg    Config
	route  Route
	log    *logrus.Entry
}

// NewAllocator creates an allocator
func NewAllocator(client exchange.FundsTransferer, cfg Config, route Route, log *logrus.Entry) *Allocator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Allocator{client: client, cfg: cfg, route: route, log: log.WithField("component", component)}
}

// Amount is profit×share rounded to the quote precision
func (a *Allocator) Amount(profit decimal.Decimal) decimal.Decimal {
	return profit.Mul(a.cfg.ShareFraction).Round(a.route.QuotePrecision)
}

// Allocate transfers the configured share of profit. A failed transfer is
// returned as a non-fatal error; the sale it came from stays committed.
func (a *Allocator) Allocate(ctx context.Context, profit decimal.Decimal) (*Allocation, error) {
	result := &Allocation{Profit: profit}

	switch {
	case !a.cfg.Enabled:
		result.Skipped, result.Reason = true, "depositing disabled"
		return result, nil
	case !profit.IsPositive():
		result.Skipped, result.Reason = true, "no profit"
		return result, nil
	}

	result.Amount = a.Amount(profit)
	if !result.Amount.IsPositive() {
		result.Skipped, result.Reason = true, "amount rounds to zero"
		return result, nil
	}

	transfer, err := a.client.TransferFunds(ctx, exchange.TransferParams{
		FromProfileID: a.route.FromProfileID,
		ToProfileID:   a.route.ToProfileID,
		Currency:      a.route.Currency,
		Amount:        result.Amount,
	})
	if err != nil {
		return result, boterrors.NewTransientError(component, "transfer_funds", err).
			WithRetryable(false).
			WithContext("amount", result.Amount.String()).
			WithContext("currency", a.route.Currency)
	}

	result.TransferID = transfer.ID
	a.log.WithFields(logrus.Fields{
		"amount":      result.Amount.String(),
		"currency":    a.route.Currency,
		"transfer_id": transfer.ID,
	}).Info("profit share transferred")
	return result, nil
}
