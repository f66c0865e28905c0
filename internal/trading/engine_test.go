package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/allocation"
	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/paper"
	"github.com/ducminhle1904/momentum-trader/internal/feed"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/ducminhle1904/momentum-trader/internal/monitoring"
	"github.com/ducminhle1904/momentum-trader/internal/orders"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func prices(vals ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = d(v)
	}
	return out
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type harness struct {
	venue    *paper.Venue
	client   exchange.Client
	market   *Market
	store    *state.MemoryStore
	journal  *journal.MemoryJournal
	recorder *countingRecorder
	deposit  allocation.Config
	route    *allocation.Route
	// checkContext makes the store and journal refuse a cancelled context
	checkContext bool
	engine       *Engine
}

type harnessOption func(*harness)

func withClient(wrap func(*paper.Venue) exchange.Client) harnessOption {
	return func(h *harness) { h.client = wrap(h.venue) }
}

func withDeposit(share string) harnessOption {
	return func(h *harness) { h.deposit = allocation.Config{Enabled: true, ShareFraction: d(share)} }
}

func withRoute(r allocation.Route) harnessOption {
	return func(h *harness) { h.route = &r }
}

func withContextChecks() harnessOption {
	return func(h *harness) { h.checkContext = true }
}

// strictStore fails saves on a done context, as network backed stores do
type strictStore struct {
	*state.MemoryStore
}

func (s strictStore) Save(ctx context.Context, p state.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, p)
}

type strictJournal struct {
	*journal.MemoryJournal
}

func (j strictJournal) Record(ctx context.Context, rec journal.TradeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.MemoryJournal.Record(ctx, rec)
}

func newHarness(t *testing.T, cfg Config, fee string, balances map[string]string, pos state.Position, opts ...harnessOption) *harness {
	t.Helper()
	v, err := paper.NewVenue("BTC-USD", exchange.PaperConfig{
		Balances: balances,
		FeeRate:  fee,
		Profiles: []string{"default", "savings"},
	})
	require.NoError(t, err)

	h := &harness{
		venue:    v,
		client:   v,
		store:    state.NewMemoryStore(),
		journal:  journal.NewMemoryJournal(),
		recorder: &countingRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}

	h.market, err = ResolveMarket(context.Background(), h.client, MarketConfig{
		BaseCurrency:   "BTC",
		QuoteCurrency:  "USD",
		TradingProfile: "default",
		DepositProfile: "savings",
		DepositEnabled: h.deposit.Enabled,
	})
	require.NoError(t, err)

	route := allocation.Route{
		FromProfileID:  h.market.TradingProfileID,
		ToProfileID:    h.market.DepositProfileID,
		Currency:       "USD",
		QuotePrecision: h.market.QuotePrecision,
	}
	if h.route != nil {
		route = *h.route
	}

	var store state.Store = h.store
	var trades journal.Journal = h.journal
	if h.checkContext {
		store = strictStore{h.store}
		trades = strictJournal{h.journal}
	}

	h.engine, err = NewEngine(cfg, *h.market, pos, Deps{
		Client:     h.client,
		Supervisor: orders.NewSupervisor(h.client, orders.Config{PollAttempts: 3}, noSleep, nil),
		Allocator:  allocation.NewAllocator(h.client, h.deposit, route, nil),
		Store:      store,
		Journal:    trades,
		Recorder:   h.recorder,
		Sleep:      noSleep,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) run(t *testing.T, series ...string) error {
	t.Helper()
	src := feed.NewReplaySource(prices(series...))
	src.OnPrice = h.venue.SetPrice
	return h.engine.Run(context.Background(), src)
}

type countingRecorder struct {
	monitoring.NopRecorder
	mu        sync.Mutex
	orders    map[string]int
	transfers map[string]int
	errors    map[string]int
}

func (r *countingRecorder) RecordOrder(_, side, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orders == nil {
		r.orders = map[string]int{}
	}
	r.orders[side+"/"+outcome]++
}

func (r *countingRecorder) RecordTransfer(_, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transfers == nil {
		r.transfers = map[string]int{}
	}
	r.transfers[result]++
}

func (r *countingRecorder) RecordError(_, category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		r.errors = map[string]int{}
	}
	r.errors[category]++
}

func buyOnly() Config {
	return Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.5"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
}

func TestEngine_BuyTriggersOnceAtThreshold(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat())

	require.NoError(t, h.run(t, "100", "100.5", "101", "101.5", "102", "103"))

	records := h.journal.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "buy", records[0].Side)
	assert.True(t, records[0].Price.Equal(d("101")), "bought at %s", records[0].Price)
	assert.True(t, records[0].Size.Equal(d("9.90099009")))

	pos := h.engine.Position()
	assert.True(t, pos.Exists)
	assert.True(t, pos.AcquiredPrice.Equal(d("101")))
	assert.Equal(t, StateHeld, h.engine.State())

	saves := h.store.Saves()
	require.Len(t, saves, 1)
	assert.True(t, saves[0].Equal(pos))
	assert.Equal(t, 1, h.recorder.orders["buy/filled"])
}

func TestEngine_NoBuyWhilePriceFalls(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat())

	require.NoError(t, h.run(t, "100", "99", "98"))

	assert.Empty(t, h.journal.Records())
	assert.False(t, h.engine.Position().Exists)
	assert.Equal(t, StateFlat, h.engine.State())
}

func TestEngine_RiseMeasuredFromLatestLow(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat())

	// 100.9 is 1% above 99.9 but not above the starting 100 by enough
	require.NoError(t, h.run(t, "100", "99.9", "100.5", "100.8", "100.9"))

	records := h.journal.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Price.Equal(d("100.9")))
}

func TestEngine_SellScenarioClearsFloor(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0.01"),
	}
	held := state.Held(d("100"), d("100.5"))
	h := newHarness(t, cfg, "0.005", map[string]string{"BTC": "1", "USD": "10"}, held)
	assert.Equal(t, StateHeld, h.engine.State())

	require.NoError(t, h.run(t, "105", "110", "108.5", "107.8"))

	records := h.journal.Records()
	require.Len(t, records, 1)
	sale := records[0]
	assert.Equal(t, "sell", sale.Side)
	assert.True(t, sale.ExecutedValue.Equal(d("107.8")))
	assert.True(t, sale.Fees.Equal(d("0.539")))
	assert.True(t, sale.Profit.Equal(d("6.761")), "profit %s", sale.Profit)
	assert.True(t, sale.Transferred.IsZero())

	assert.False(t, h.engine.Position().Exists)
	saves := h.store.Saves()
	require.NotEmpty(t, saves)
	assert.False(t, saves[len(saves)-1].Exists)
	assert.Equal(t, 1, h.recorder.transfers["skipped"])
}

func TestEngine_ProfitFloorBlocksSell(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0.01"),
	}
	// 107.8×0.995 = 107.261 does not beat 106×1.02 = 108.12
	held := state.Held(d("105"), d("106"))
	h := newHarness(t, cfg, "0.005", map[string]string{"BTC": "1", "USD": "10"}, held)

	require.NoError(t, h.run(t, "105", "110", "107.8", "105", "104"))

	assert.Empty(t, h.journal.Records())
	assert.True(t, h.engine.Position().Equal(held))
	assert.Empty(t, h.store.Saves())
}

func TestEngine_RoundTripAllocatesProfitShare(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0.01"),
	}
	h := newHarness(t, cfg, "0.005", map[string]string{"USD": "1000"}, state.Flat(), withDeposit("0.5"))

	require.NoError(t, h.run(t, "100", "101", "110", "107.8", "107"))

	records := h.journal.Records()
	require.Len(t, records, 2)
	buy, sale := records[0], records[1]
	assert.Equal(t, "buy", buy.Side)
	assert.Equal(t, "sell", sale.Side)
	assert.True(t, buy.Size.Equal(sale.Size))
	require.True(t, sale.Profit.IsPositive())

	share := sale.Profit.Mul(d("0.5")).Round(2)
	assert.True(t, sale.Transferred.Equal(share), "transferred %s, want %s", sale.Transferred, share)
	assert.True(t, h.venue.Balance("savings", "USD").Equal(share))
	assert.Equal(t, 1, h.recorder.transfers["ok"])

	saves := h.store.Saves()
	require.Len(t, saves, 2)
	assert.True(t, saves[0].Exists)
	assert.False(t, saves[1].Exists)
}

func TestEngine_TransferFailureKeepsSale(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
	held := state.Held(d("100"), d("100.5"))
	h := newHarness(t, cfg, "0.005", map[string]string{"BTC": "1", "USD": "10"}, held,
		withDeposit("0.5"),
		withRoute(allocation.Route{FromProfileID: "paper-1", ToProfileID: "missing", Currency: "USD", QuotePrecision: 2}))

	require.NoError(t, h.run(t, "110", "107.8"))

	records := h.journal.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Transferred.IsZero())
	assert.False(t, h.engine.Position().Exists)
	assert.Equal(t, 1, h.recorder.transfers["failed"])
	assert.Equal(t, 1, h.recorder.errors[string(boterrors.ErrorCategoryTransient)])
}

// shortSeller reports every sell fill at a fixed executed value
type shortSeller struct {
	*paper.Venue
	executed decimal.Decimal
}

func (s *shortSeller) GetOrder(ctx context.Context, id string) (*exchange.OrderDetails, error) {
	details, err := s.Venue.GetOrder(ctx, id)
	if err == nil && details.Side == exchange.OrderSideSell && details.IsFilled() {
		details.ExecutedValue = s.executed
	}
	return details, err
}

func TestEngine_UnprofitableFillIsFatalAfterCheckpoint(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
	held := state.Held(d("100"), d("100.5"))
	h := newHarness(t, cfg, "0.005", map[string]string{"BTC": "1", "USD": "10"}, held,
		withDeposit("0.5"),
		withClient(func(v *paper.Venue) exchange.Client { return &shortSeller{Venue: v, executed: d("100")} }))

	err := h.run(t, "110", "107.8", "107")
	require.Error(t, err)
	assert.True(t, boterrors.IsFatal(err))
	assert.Equal(t, boterrors.ErrorCategoryUnprofitableFill, boterrors.CategoryOf(err))

	saves := h.store.Saves()
	require.Len(t, saves, 1)
	assert.False(t, saves[0].Exists)
	assert.False(t, h.engine.Position().Exists)
	assert.True(t, h.venue.Balance("savings", "USD").IsZero())

	records := h.journal.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Profit.IsNegative())
}

// stuckVenue accepts orders that never leave the book
type stuckVenue struct {
	*paper.Venue
	mu      sync.Mutex
	placed  int
	cancels []string
}

func (s *stuckVenue) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed++
	return &exchange.PlacedOrder{ID: "stuck-1", Status: exchange.OrderStatusPending}, nil
}

func (s *stuckVenue) GetOrder(ctx context.Context, id string) (*exchange.OrderDetails, error) {
	return &exchange.OrderDetails{ID: id, Status: exchange.OrderStatusOpen}, nil
}

func (s *stuckVenue) CancelOrder(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, id)
	return id, nil
}

func TestEngine_BuyTimeoutRevertsToFlat(t *testing.T) {
	stuck := &stuckVenue{}
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat(),
		withClient(func(v *paper.Venue) exchange.Client {
			stuck.Venue = v
			return stuck
		}))

	// the cycle restarts at 101.5 after the timeout, so 102 is not a new crossing
	require.NoError(t, h.run(t, "100", "101", "101.5", "102"))

	assert.Equal(t, 1, stuck.placed)
	assert.Equal(t, []string{"stuck-1"}, stuck.cancels)
	assert.Equal(t, StateFlat, h.engine.State())
	assert.False(t, h.engine.Position().Exists)
	assert.Empty(t, h.store.Saves())
	assert.Empty(t, h.journal.Records())
	assert.Equal(t, 1, h.recorder.orders["buy/timed_out"])
	assert.Equal(t, 1, h.recorder.errors[string(boterrors.ErrorCategoryTimeout)])
}

func TestEngine_SellTimeoutKeepsPosition(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
	held := state.Held(d("100"), d("100.5"))
	stuck := &stuckVenue{}
	h := newHarness(t, cfg, "0", map[string]string{"BTC": "1", "USD": "10"}, held,
		withClient(func(v *paper.Venue) exchange.Client {
			stuck.Venue = v
			return stuck
		}))

	// the next cycle starts at 107.5; 107 is not a 2% fall from it
	require.NoError(t, h.run(t, "110", "107.8", "107.5", "107"))

	assert.Equal(t, 1, stuck.placed)
	assert.Equal(t, []string{"stuck-1"}, stuck.cancels)
	assert.Equal(t, StateHeld, h.engine.State())
	assert.True(t, h.engine.Position().Exists)
	assert.True(t, h.engine.Position().Equal(held))
	assert.Empty(t, h.store.Saves())
	assert.Empty(t, h.journal.Records())
	assert.Equal(t, 1, h.recorder.orders["sell/timed_out"])
}

func TestEngine_SellTimeoutAllowsNextSell(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
	held := state.Held(d("100"), d("100.5"))
	stuck := &stuckVenue{}
	h := newHarness(t, cfg, "0", map[string]string{"BTC": "1", "USD": "10"}, held,
		withClient(func(v *paper.Venue) exchange.Client {
			stuck.Venue = v
			return stuck
		}))

	// 105 is a fresh 2% fall from the 108 that starts the second cycle
	require.NoError(t, h.run(t, "110", "107.8", "108", "105"))

	assert.Equal(t, 2, stuck.placed)
	assert.Len(t, stuck.cancels, 2)
	assert.Equal(t, StateHeld, h.engine.State())
	assert.Equal(t, 2, h.recorder.orders["sell/timed_out"])
}

// lateFill leaves the order open on the first poll while cancelling the run,
// then reports it filled to the shutdown status check
type lateFill struct {
	*paper.Venue
	stop   context.CancelFunc
	mu     sync.Mutex
	polls  int
	params exchange.OrderParams
}

func (l *lateFill) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params = params
	return &exchange.PlacedOrder{ID: "late-1", Status: exchange.OrderStatusPending}, nil
}

func (l *lateFill) GetOrder(ctx context.Context, id string) (*exchange.OrderDetails, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls++
	if l.polls == 1 {
		l.stop()
		return &exchange.OrderDetails{ID: id, Status: exchange.OrderStatusOpen}, nil
	}
	return &exchange.OrderDetails{
		ID:            id,
		Side:          l.params.Side,
		Status:        exchange.OrderStatusDone,
		DoneReason:    exchange.DoneReasonFilled,
		ExecutedValue: l.params.Price.Mul(l.params.Size),
		FillFees:      decimal.Zero,
		FilledSize:    l.params.Size,
	}, nil
}

func TestEngine_FillDuringShutdownIsCheckpointed(t *testing.T) {
	cfg := Config{
		BuyDelta:        d("0.01"),
		SellDelta:       d("0.02"),
		OrderPriceDelta: d("0"),
		MinProfitDelta:  d("0"),
	}
	tests := []struct {
		name     string
		balances map[string]string
		position state.Position
		series   []string
		side     string
		wantHeld bool
	}{
		{
			name:     "buy",
			balances: map[string]string{"USD": "1000"},
			position: state.Flat(),
			series:   []string{"100", "101", "102"},
			side:     "buy",
			wantHeld: true,
		},
		{
			name:     "sell",
			balances: map[string]string{"BTC": "1", "USD": "10"},
			position: state.Held(d("100"), d("100.5")),
			series:   []string{"110", "107.8", "107"},
			side:     "sell",
			wantHeld: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			late := &lateFill{stop: cancel}
			h := newHarness(t, cfg, "0", tt.balances, tt.position, withContextChecks(),
				withClient(func(v *paper.Venue) exchange.Client {
					late.Venue = v
					return late
				}))

			src := feed.NewReplaySource(prices(tt.series...))
			src.OnPrice = h.venue.SetPrice
			err := h.engine.Run(ctx, src)
			assert.ErrorIs(t, err, context.Canceled)

			assert.Equal(t, tt.wantHeld, h.engine.Position().Exists)
			saves := h.store.Saves()
			require.Len(t, saves, 1, "the fill must reach the checkpoint")
			assert.True(t, saves[0].Equal(h.engine.Position()))

			records := h.journal.Records()
			require.Len(t, records, 1)
			assert.Equal(t, tt.side, records[0].Side)
			assert.Equal(t, "late-1", records[0].OrderID)
		})
	}
}

func TestEngine_CheckpointFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat())
	h.store.FailSaves = errors.New("disk full")

	require.NoError(t, h.run(t, "100", "101", "102"))

	assert.True(t, h.engine.Position().Exists)
	assert.Empty(t, h.store.Saves())
	assert.Equal(t, 1, h.recorder.errors[string(boterrors.ErrorCategoryPersistence)])
}

func TestEngine_NoBalanceIsFatal(t *testing.T) {
	cfg := buyOnly()
	cfg.BalanceMinimum = d("0.06")
	h := newHarness(t, cfg, "0", map[string]string{"USD": "0.05"}, state.Flat())

	err := h.run(t, "100", "101")
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrorCategoryFatal, boterrors.CategoryOf(err))
	assert.Empty(t, h.journal.Records())
}

func TestEngine_PlacementFailureRestartsCycle(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat(),
		withClient(func(v *paper.Venue) exchange.Client { return &rejectingVenue{Venue: v} }))

	require.NoError(t, h.run(t, "100", "101", "101", "103"))

	assert.Equal(t, StateFlat, h.engine.State())
	assert.Empty(t, h.journal.Records())
	assert.Equal(t, 2, h.recorder.orders["buy/error"])
	assert.Equal(t, 2, h.recorder.errors[string(boterrors.ErrorCategoryOrder)])
	assert.Equal(t, 2, h.engine.Errors().Total())
	assert.InDelta(t, 1.0, h.engine.Errors().GetErrorRate(boterrors.ErrorCategoryOrder), 1e-9)
}

type rejectingVenue struct {
	*paper.Venue
}

func (r *rejectingVenue) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	return nil, exchange.ErrInsufficientBalance
}

func TestEngine_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, buyOnly(), "0", map[string]string{"USD": "1000"}, state.Flat())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.engine.Run(ctx, feed.NewLiveSource(&feed.PriceCell{}, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"negative buy delta", func(c *Config) { c.BuyDelta = d("-0.1") }, true},
		{"sell delta of one", func(c *Config) { c.SellDelta = d("1") }, true},
		{"negative minimum", func(c *Config) { c.BalanceMinimum = d("-1") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buyOnly()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEngine_RejectsInvalidInput(t *testing.T) {
	_, err := NewEngine(buyOnly(), Market{}, state.Flat(), Deps{})
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrorCategoryConfiguration, boterrors.CategoryOf(err))
}
