// Package orders drives a single limit order from placement to a terminal outcome.
package orders

import (
	"context"
	"time"

	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const component = "order_supervisor"

// Defaults for the poll budget
const (
	DefaultPollAttempts = 100
	DefaultPollInterval = 6 * time.Second
	shutdownGrace       = 10 * time.Second
)

// Sleeper pauses between polls; tests inject one that returns immediately
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep waits d or until ctx is done
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config bounds the poll loop
type Config struct {
	PollAttempts int
	// PollInterval of zero polls back to back, as the replay driver does
	PollInterval time.Duration
	ReadRetry    exchange.RetryConfig
	TimeInForce  exchange.TimeInForce
}

func (c *Config) setDefaults() {
	if c.PollAttempts <= 0 {
		c.PollAttempts = DefaultPollAttempts
	}
	if c.PollInterval < 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReadRetry.MaxAttempts <= 0 {
		c.ReadRetry = exchange.DefaultReadRetry
	}
}

// Outcome is how a supervised order ended without error
type Outcome int

const (
	// OutcomeFilled means the order executed completely
	OutcomeFilled Outcome = iota
	// OutcomeTimedOut means the budget ran out and the order was cancelled
	OutcomeTimedOut
)

func (o Outcome) String() string {
	if o == OutcomeFilled {
		return "filled"
	}
	return "timed_out"
}

// Fill is the execution summary of a filled order
type Fill struct {
	OrderID       string
	Side          exchange.OrderSide
	ExecutedValue decimal.Decimal
	Fees          decimal.Decimal
	FilledSize    decimal.Decimal
}

// AveragePrice is executed value per unit filled
func (f Fill) AveragePrice() decimal.Decimal {
	if f.FilledSize.IsZero() {
		return decimal.Zero
	}
	return f.ExecutedValue.Div(f.FilledSize)
}

// Result reports a supervised order
type Result struct {
	OrderID string
	Outcome Outcome
	Fill    *Fill
	Polls   int
}

// Supervisor places an order once and polls it to completion
type Supervisor struct {
	client exchange.OrderManager
	cfg    Config
	sleep  Sleeper
	log    *logrus.Entry
}

// NewSupervisor creates a supervisor; a nil sleeper uses ContextSleep
func NewSupervisor(client exchange.OrderManager, cfg Config, sleep Sleeper, log *logrus.Entry) *Supervisor {
	cfg.setDefaults()
	if sleep == nil {
		sleep = ContextSleep
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Supervisor{client: client, cfg: cfg, sleep: sleep, log: log.WithField("component", component)}
}

// Execute places params and waits for a terminal state.
//
// A placement failure is a non-fatal ORDER error. A done order that did not
// fill, or a cancel that echoes a different id, is a fatal ORDER_ANOMALY.
// Status read failures are logged and polling continues.
func (s *Supervisor) Execute(ctx context.Context, params exchange.OrderParams) (*Result, error) {
	if params.TimeInForce == "" {
		params.TimeInForce = s.cfg.TimeInForce
	}

	placed, err := s.client.PlaceOrder(ctx, params)
	if err != nil {
		return nil, boterrors.NewOrderError(component, "place_order", err).
			WithContext("side", string(params.Side)).
			WithContext("price", params.Price.String()).
			WithContext("size", params.Size.String())
	}
	log := s.log.WithFields(logrus.Fields{"order_id": placed.ID, "side": params.Side})
	log.Debug("order placed, polling for fill")

	for attempt := 1; attempt <= s.cfg.PollAttempts; attempt++ {
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return s.abandon(ctx, placed.ID, params.Side, attempt-1, err)
		}

		details, err := exchange.RetryRead(ctx, s.cfg.ReadRetry, func(ctx context.Context) (*exchange.OrderDetails, error) {
			return s.client.GetOrder(ctx, placed.ID)
		})
		if err != nil {
			if ctx.Err() != nil {
				return s.abandon(ctx, placed.ID, params.Side, attempt, ctx.Err())
			}
			log.WithError(err).WithField("attempt", attempt).Warn("order status query failed, continuing")
			continue
		}
		if !details.IsDone() {
			continue
		}
		if details.IsFilled() {
			return filledResult(placed.ID, params.Side, details, attempt), nil
		}
		return nil, boterrors.NewOrderAnomaly(component, "poll_order", "order finished without being filled").
			WithContext("order_id", placed.ID).
			WithContext("done_reason", details.DoneReason)
	}

	log.WithField("attempts", s.cfg.PollAttempts).Info("order not filled within budget, cancelling")
	return s.cancel(ctx, placed.ID, params.Side, s.cfg.PollAttempts)
}

// cancel issues exactly one cancel. If the cancel call itself fails, one final
// status read decides between a fill and an anomaly.
func (s *Supervisor) cancel(ctx context.Context, orderID string, side exchange.OrderSide, polls int) (*Result, error) {
	echoed, err := s.client.CancelOrder(ctx, orderID)
	if err != nil {
		details, getErr := exchange.RetryRead(ctx, s.cfg.ReadRetry, func(ctx context.Context) (*exchange.OrderDetails, error) {
			return s.client.GetOrder(ctx, orderID)
		})
		if getErr == nil && details.IsFilled() {
			s.log.WithField("order_id", orderID).Info("cancel failed but order had filled")
			return filledResult(orderID, side, details, polls), nil
		}
		anomaly := boterrors.NewOrderAnomaly(component, "cancel_order", "cancel failed and order is not filled").
			WithContext("order_id", orderID).
			WithContext("cancel_error", err.Error())
		if getErr != nil {
			anomaly.WithContext("status_error", getErr.Error())
		}
		return nil, anomaly
	}
	if echoed != orderID {
		return nil, boterrors.NewOrderAnomaly(component, "cancel_order", "cancel echoed a different order id").
			WithContext("order_id", orderID).
			WithContext("echoed_id", echoed)
	}
	return &Result{OrderID: orderID, Outcome: OutcomeTimedOut, Polls: polls}, nil
}

// abandon cancels an in-flight order on shutdown so nothing is left resting.
// A fill discovered while doing so is still reported.
func (s *Supervisor) abandon(ctx context.Context, orderID string, side exchange.OrderSide, polls int, cause error) (*Result, error) {
	cleanup, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancelFn()

	s.log.WithField("order_id", orderID).Warn("shutdown while order in flight, cancelling")
	details, err := s.client.GetOrder(cleanup, orderID)
	if err == nil && details.IsFilled() {
		return filledResult(orderID, side, details, polls), nil
	}
	if err == nil && details.IsDone() {
		return nil, cause
	}
	res, err := s.cancel(cleanup, orderID, side, polls)
	if err != nil {
		return nil, err
	}
	if res.Outcome == OutcomeFilled {
		return res, nil
	}
	return nil, cause
}

func filledResult(orderID string, side exchange.OrderSide, details *exchange.OrderDetails, polls int) *Result {
	if details.Side != "" {
		side = details.Side
	}
	return &Result{
		OrderID: orderID,
		Outcome: OutcomeFilled,
		Polls:   polls,
		Fill: &Fill{
			OrderID:       orderID,
			Side:          side,
			ExecutedValue: details.ExecutedValue,
			Fees:          details.FillFees,
			FilledSize:    details.FilledSize,
		},
	}
}
