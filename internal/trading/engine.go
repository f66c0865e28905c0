// Package trading runs the momentum cycle: watch a swing, trade it, commit
// the position, repeat.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/allocation"
	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/feed"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/momentum"
	"github.com/ducminhle1904/momentum-trader/internal/monitoring"
	"github.com/ducminhle1904/momentum-trader/internal/notifications"
	"github.com/ducminhle1904/momentum-trader/internal/orders"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/shopspring/decimal"
)

const component = "engine"

// DefaultErrorBackoff is the pause after a cycle aborts on a recoverable error
const DefaultErrorBackoff = 5 * time.Second

// settleTimeout bounds the bookkeeping after a fill, which runs even when
// the run context is already cancelled
const settleTimeout = 10 * time.Second

// Config is immutable for a run
type Config struct {
	BuyDelta        decimal.Decimal
	SellDelta       decimal.Decimal
	OrderPriceDelta decimal.Decimal
	MinProfitDelta  decimal.Decimal
	// BalanceMinimum of quote currency is left untouched by every buy
	BalanceMinimum decimal.Decimal
	// ErrorBackoff of zero retries a failed cycle immediately
	ErrorBackoff time.Duration
}

// Validate checks the thresholds
func (c Config) Validate() error {
	for name, d := range map[string]decimal.Decimal{
		"buy delta":         c.BuyDelta,
		"sell delta":        c.SellDelta,
		"order price delta": c.OrderPriceDelta,
		"min profit delta":  c.MinProfitDelta,
	} {
		if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be in [0,1), got %s", name, d)
		}
	}
	if c.BalanceMinimum.IsNegative() {
		return fmt.Errorf("balance minimum must not be negative, got %s", c.BalanceMinimum)
	}
	return nil
}

// PriceSource yields the price to evaluate on each loop iteration
type PriceSource interface {
	Next(ctx context.Context) (decimal.Decimal, error)
}

// State is the position state machine
type State int

const (
	StateFlat State = iota
	StateAcquiring
	StateHeld
	StateDisposing
)

func (s State) String() string {
	switch s {
	case StateAcquiring:
		return "ACQUIRING"
	case StateHeld:
		return "HELD"
	case StateDisposing:
		return "DISPOSING"
	default:
		return "FLAT"
	}
}

// Deps are the collaborators of an engine. Client, Supervisor, Allocator
// and Store are required; the rest default to no-ops.
type Deps struct {
	Client     exchange.Client
	Supervisor *orders.Supervisor
	Allocator  *allocation.Allocator
	Store      state.Store
	Journal    journal.Journal
	Recorder   monitoring.Recorder
	Notifier   notifications.Notifier
	Logger     *logger.Logger
	// Sleep paces the error backoff; nil uses orders.ContextSleep
	Sleep orders.Sleeper
}

// Engine trades one product
type Engine struct {
	cfg    Config
	market Market
	deps   Deps
	log    *logger.Logger

	errStats *boterrors.ErrorStats

	mu       sync.RWMutex
	position state.Position
	state    State
	feeRate  decimal.Decimal
}

// NewEngine creates an engine starting from the loaded position
func NewEngine(cfg Config, market Market, position state.Position, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, boterrors.NewConfigurationError(component, "new_engine", err.Error())
	}
	if err := position.Validate(); err != nil {
		return nil, boterrors.NewConfigurationError(component, "new_engine", err.Error())
	}
	if deps.Client == nil || deps.Supervisor == nil || deps.Allocator == nil || deps.Store == nil {
		return nil, boterrors.NewConfigurationError(component, "new_engine", "client, supervisor, allocator and store are required")
	}
	if deps.Journal == nil {
		deps.Journal = journal.NopJournal{}
	}
	if deps.Recorder == nil {
		deps.Recorder = monitoring.NopRecorder{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Sleep == nil {
		deps.Sleep = orders.ContextSleep
	}

	e := &Engine{
		cfg:      cfg,
		market:   market,
		deps:     deps,
		log:      deps.Logger.WithField("component", component),
		errStats: boterrors.NewErrorStats(20),
		position: position,
		state:    StateFlat,
	}
	if position.Exists {
		e.state = StateHeld
	}
	deps.Recorder.SetPositionOpen(market.ProductID(), position.Exists)
	return e, nil
}

// Position returns the committed position
func (e *Engine) Position() state.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// State returns the current state machine state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Errors returns the errors recorded since the engine was created
func (e *Engine) Errors() *boterrors.ErrorStats {
	return e.errStats
}

// FeeRate returns the fee rate of the current cycle
func (e *Engine) FeeRate() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feeRate
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	prev := e.state
	e.state = s
	e.mu.Unlock()
	if prev != s {
		e.log.Debug("state %s -> %s", prev, s)
	}
}

// Run alternates accumulation and distribution cycles until the source is
// exhausted, ctx is done, or a fatal error occurs. Recoverable errors abort
// only the current cycle.
func (e *Engine) Run(ctx context.Context, src PriceSource) error {
	e.log.Info("engine started in state %s with position %s", e.State(), e.Position())
	defer e.logErrorSummary()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		if e.Position().Exists {
			err = e.distribute(ctx, src)
		} else {
			err = e.accumulate(ctx, src)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, feed.ErrSourceExhausted):
			e.log.Info("price source exhausted, stopping")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}

		classified := e.recordError(err)
		action := classified.GetRecoveryAction()
		if action == boterrors.RecoveryActionStop {
			e.notify(notifications.LevelError, fmt.Sprintf("%s bot stopped: %v", e.market.ProductID(), err))
			return err
		}

		e.log.WithField("category", string(classified.Category)).
			WithField("recovery", string(action)).
			Warning("cycle aborted, restarting: %v", err)
		if err := e.deps.Sleep(ctx, e.cfg.ErrorBackoff); err != nil {
			return err
		}
	}
}

// accumulate watches for a rise off the most recent low and buys it
func (e *Engine) accumulate(ctx context.Context, src PriceSource) error {
	fee, err := e.refreshFee(ctx)
	if err != nil {
		return err
	}

	account, err := e.readAccount(ctx, e.market.QuoteAccountID)
	if err != nil {
		return err
	}
	balance := account.Available.Sub(e.cfg.BalanceMinimum)
	if !balance.IsPositive() {
		return boterrors.NewFatalError(component, "accumulate",
			fmt.Sprintf("no %s balance available for use", e.market.Product.QuoteCurrency)).
			WithContext("available", account.Available.String()).
			WithContext("balance_minimum", e.cfg.BalanceMinimum.String())
	}

	price, err := src.Next(ctx)
	if err != nil {
		return err
	}
	tracker := momentum.NewTracker(momentum.Accumulate, price)
	e.setState(StateFlat)
	e.log.LogCycleStart(momentum.Accumulate.String(), price, balance, fee)

	for {
		price, err := src.Next(ctx)
		if err != nil {
			return err
		}
		sig := tracker.Observe(price)
		x := tracker.Extremes()
		e.deps.Recorder.ObservePrice(e.market.ProductID(), price)
		e.deps.Recorder.ObserveExtremes(e.market.ProductID(), x.Peak, x.Valley)

		if sig == momentum.NewPeak && x.RiseReached(e.cfg.BuyDelta) {
			e.log.Status("rise from %s to %s reached the buy threshold", x.Valley, x.Peak)
			return e.buy(ctx, balance, fee, x.Peak)
		}
	}
}

// distribute watches for a fall off the most recent high and sells into it
// when the sale clears the profit floor
func (e *Engine) distribute(ctx context.Context, src PriceSource) error {
	fee, err := e.refreshFee(ctx)
	if err != nil {
		return err
	}

	account, err := e.readAccount(ctx, e.market.BaseAccountID)
	if err != nil {
		return err
	}
	size := account.Available.Truncate(e.market.BasePrecision)
	if !size.IsPositive() {
		return boterrors.NewFatalError(component, "distribute",
			fmt.Sprintf("no %s balance available for use", e.market.Product.BaseCurrency)).
			WithContext("available", account.Available.String())
	}

	price, err := src.Next(ctx)
	if err != nil {
		return err
	}
	tracker := momentum.NewTracker(momentum.Distribute, price)
	e.setState(StateHeld)
	e.log.LogCycleStart(momentum.Distribute.String(), price, size, fee)

	pos := e.Position()
	for {
		price, err := src.Next(ctx)
		if err != nil {
			return err
		}
		sig := tracker.Observe(price)
		x := tracker.Extremes()
		e.deps.Recorder.ObservePrice(e.market.ProductID(), price)
		e.deps.Recorder.ObserveExtremes(e.market.ProductID(), x.Peak, x.Valley)

		if sig != momentum.NewValley || !x.FallReached(e.cfg.SellDelta) {
			continue
		}
		if !allocation.ClearsProfitFloor(x.Valley, e.cfg.OrderPriceDelta, size, fee, pos.AcquiredCost, e.cfg.MinProfitDelta) {
			e.log.Debug("fall to %s reached the sell threshold but not the profit floor", x.Valley)
			continue
		}
		e.log.Status("fall from %s to %s reached the sell threshold", x.Peak, x.Valley)
		return e.sell(ctx, size, x.Valley)
	}
}

func (e *Engine) buy(ctx context.Context, balance, fee, peak decimal.Decimal) error {
	spend := balance.Sub(balance.Mul(fee))
	limit := peak.Mul(decimal.NewFromInt(1).Add(e.cfg.OrderPriceDelta)).Round(e.market.QuotePrecision)
	size := spend.Div(limit).Truncate(e.market.BasePrecision)
	if !size.IsPositive() {
		return boterrors.NewBotError(boterrors.ErrorCategoryOrder, component, "buy",
			"order size rounds to zero").
			WithContext("spend", spend.String()).
			WithContext("limit", limit.String())
	}

	e.setState(StateAcquiring)
	result, err := e.execute(ctx, exchange.OrderSideBuy, limit, size)
	if err != nil || result.Outcome != orders.OutcomeFilled {
		e.setState(StateFlat)
		return err
	}

	ctx, cancel := settleContext(ctx)
	defer cancel()

	fill := result.Fill
	pos := state.Held(fill.AveragePrice(), allocation.AcquisitionCost(fill.ExecutedValue, fill.Fees))
	e.commit(ctx, pos, StateHeld)
	e.log.Trade("bought %s %s at %s, cost %s %s", fill.FilledSize, e.market.Product.BaseCurrency,
		pos.AcquiredPrice, pos.AcquiredCost, e.market.Product.QuoteCurrency)

	e.recordTrade(ctx, journal.TradeRecord{
		ProductID:     e.market.ProductID(),
		Side:          string(exchange.OrderSideBuy),
		OrderID:       fill.OrderID,
		Price:         pos.AcquiredPrice,
		Size:          fill.FilledSize,
		ExecutedValue: fill.ExecutedValue,
		Fees:          fill.Fees,
	})
	e.notify(notifications.LevelInfo, fmt.Sprintf("Bought %s %s at %s %s",
		fill.FilledSize, e.market.Product.BaseCurrency, pos.AcquiredPrice, e.market.Product.QuoteCurrency))
	return nil
}

func (e *Engine) sell(ctx context.Context, size, valley decimal.Decimal) error {
	limit := valley.Mul(decimal.NewFromInt(1).Sub(e.cfg.OrderPriceDelta)).Round(e.market.QuotePrecision)
	acquired := e.Position()

	e.setState(StateDisposing)
	result, err := e.execute(ctx, exchange.OrderSideSell, limit, size)
	if err != nil || result.Outcome != orders.OutcomeFilled {
		e.setState(StateHeld)
		return err
	}

	ctx, cancel := settleContext(ctx)
	defer cancel()

	fill := result.Fill
	profit := allocation.RealizedProfit(fill.ExecutedValue, fill.Fees, acquired.AcquiredCost)

	// The sale is final on the venue; record it before judging the profit.
	e.commit(ctx, state.Flat(), StateFlat)
	e.deps.Recorder.RecordProfit(e.market.ProductID(), profit)
	e.log.Trade("sold %s %s at %s, profit %s %s", fill.FilledSize, e.market.Product.BaseCurrency,
		fill.AveragePrice(), profit, e.market.Product.QuoteCurrency)

	rec := journal.TradeRecord{
		ProductID:     e.market.ProductID(),
		Side:          string(exchange.OrderSideSell),
		OrderID:       fill.OrderID,
		Price:         fill.AveragePrice(),
		Size:          fill.FilledSize,
		ExecutedValue: fill.ExecutedValue,
		Fees:          fill.Fees,
		Profit:        profit,
	}

	if !profit.IsPositive() {
		e.recordTrade(ctx, rec)
		return boterrors.NewUnprofitableFill(component, "sell",
			"sell filled without a positive profit").
			WithContext("order_id", fill.OrderID).
			WithContext("profit", profit.String()).
			WithContext("acquired_cost", acquired.AcquiredCost.String()).
			WithContext("executed_value", fill.ExecutedValue.String()).
			WithContext("fees", fill.Fees.String())
	}

	alloc, err := e.deps.Allocator.Allocate(ctx, profit)
	switch {
	case err != nil:
		e.deps.Recorder.RecordTransfer(e.market.ProductID(), "failed")
		e.recordError(err)
		e.log.WithField("error", err.Error()).Error("profit transfer failed; the sale stands")
	case alloc.Skipped:
		e.deps.Recorder.RecordTransfer(e.market.ProductID(), "skipped")
		e.log.Debug("profit transfer skipped: %s", alloc.Reason)
	default:
		e.deps.Recorder.RecordTransfer(e.market.ProductID(), "ok")
		rec.Transferred = alloc.Amount
		e.log.Trade("transferred %s %s to the deposit profile", alloc.Amount, e.market.Product.QuoteCurrency)
	}

	e.recordTrade(ctx, rec)
	e.notify(notifications.LevelSuccess, fmt.Sprintf("Sold %s %s for a profit of %s %s",
		fill.FilledSize, e.market.Product.BaseCurrency, profit, e.market.Product.QuoteCurrency))
	return nil
}

// execute refreshes the session and supervises one order. A timeout is
// returned as a result, not an error.
func (e *Engine) execute(ctx context.Context, side exchange.OrderSide, price, size decimal.Decimal) (*orders.Result, error) {
	product := e.market.ProductID()

	if err := e.deps.Client.Refresh(ctx); err != nil {
		return nil, boterrors.NewTransientError(component, "refresh_session", err)
	}

	e.log.Trade("placing %s order for %s at %s", side, size, price)
	result, err := e.deps.Supervisor.Execute(ctx, exchange.OrderParams{
		ProductID: product,
		Side:      side,
		Price:     price,
		Size:      size,
	})
	if err != nil {
		outcome := "error"
		if boterrors.IsFatal(err) {
			outcome = "anomaly"
		}
		e.deps.Recorder.RecordOrder(product, string(side), outcome)
		return nil, err
	}

	e.deps.Recorder.RecordOrder(product, string(side), result.Outcome.String())
	if result.Outcome == orders.OutcomeTimedOut {
		e.recordError(boterrors.NewTimeoutError(component, "execute", "order not filled within the poll budget").
			WithContext("order_id", result.OrderID).
			WithContext("polls", result.Polls))
		e.log.Warning("%s order %s not filled after %d polls, cancelled", side, result.OrderID, result.Polls)
		return result, nil
	}

	fill := result.Fill
	e.deps.Recorder.RecordFill(product, string(side))
	e.log.LogFill(string(side), fill.OrderID, fill.ExecutedValue, fill.Fees, fill.FilledSize)
	return result, nil
}

// commit swaps the in-memory position and checkpoints it. A failed save is
// logged; trading continues on the in-memory position.
func (e *Engine) commit(ctx context.Context, pos state.Position, next State) {
	e.mu.Lock()
	e.position = pos
	e.state = next
	e.mu.Unlock()
	e.deps.Recorder.SetPositionOpen(e.market.ProductID(), pos.Exists)

	if err := e.deps.Store.Save(ctx, pos); err != nil {
		perr := boterrors.NewPersistenceError(component, "save_checkpoint", err).
			WithContext("position", pos.String())
		e.recordError(perr)
		e.log.WithField("error", err.Error()).Error("failed to save checkpoint, continuing in memory")
	}
}

func (e *Engine) refreshFee(ctx context.Context) (decimal.Decimal, error) {
	fees, err := exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Fees, error) {
		return e.deps.Client.GetFees(ctx)
	})
	if err != nil {
		return decimal.Zero, boterrors.CategorizeError(err, component, "get_fees")
	}
	rate := fees.Highest()
	e.mu.Lock()
	e.feeRate = rate
	e.mu.Unlock()
	e.deps.Recorder.ObserveFeeRate(e.market.ProductID(), rate)
	return rate, nil
}

func (e *Engine) readAccount(ctx context.Context, accountID string) (*exchange.Account, error) {
	account, err := exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) (*exchange.Account, error) {
		return e.deps.Client.GetAccount(ctx, accountID)
	})
	if err != nil {
		return nil, boterrors.CategorizeError(err, component, "get_account").
			WithContext("account_id", accountID)
	}
	return account, nil
}

func (e *Engine) recordTrade(ctx context.Context, rec journal.TradeRecord) {
	if err := e.deps.Journal.Record(ctx, rec); err != nil {
		e.log.WithField("error", err.Error()).Warning("failed to journal %s fill %s", rec.Side, rec.OrderID)
	}
}

// recordError classifies err, counts it and returns the classification
func (e *Engine) recordError(err error) *boterrors.BotError {
	classified := boterrors.CategorizeError(err, component, "cycle")
	e.errStats.RecordError(classified)
	e.deps.Recorder.RecordError(e.market.ProductID(), string(classified.Category))
	return classified
}

func (e *Engine) logErrorSummary() {
	total := e.errStats.Total()
	if total == 0 {
		return
	}
	entry := e.log.WithField("total", total)
	for _, c := range e.errStats.Categories() {
		entry = entry.WithField(strings.ToLower(string(c)), fmt.Sprintf("%.0f%%", e.errStats.GetErrorRate(c)*100))
	}
	entry.Info("errors recorded during run")
}

// settleContext keeps the values of ctx but not its cancellation, so a fill
// found during shutdown is still checkpointed, journaled and allocated
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func (e *Engine) notify(level, message string) {
	if err := e.deps.Notifier.SendAlert(level, message); err != nil {
		e.log.WithField("error", err.Error()).Warning("failed to send %s alert", level)
	}
}
