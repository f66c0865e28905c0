// Package paper is an in-memory venue used for dry runs and replay.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseIncrement  = "0.00000001"
	DefaultQuoteIncrement = "0.01"
	DefaultProfile        = "default"
)

type order struct {
	details exchange.OrderDetails
	price   decimal.Decimal
	size    decimal.Decimal
	tif     exchange.TimeInForce
	// reserved funds released on fill or cancel
	holdCurrency string
	hold         decimal.Decimal
}

// Venue simulates one product on an exchange with profile-segregated wallets.
// Limit orders fill at their limit price once the market price crosses it.
type Venue struct {
	mu       sync.Mutex
	product  exchange.Product
	feeRate  decimal.Decimal
	profiles []exchange.Profile
	// profile id -> currency -> balance
	wallets map[string]map[string]decimal.Decimal
	holds   map[string]map[string]decimal.Decimal
	orders  map[string]*order
	seq     int
	price   decimal.Decimal
	now     func() time.Time
}

// NewVenue creates a venue for productID seeded from cfg. The first configured
// profile is the trading profile and receives the seeded balances.
func NewVenue(productID string, cfg exchange.PaperConfig) (*Venue, error) {
	base, quote, ok := strings.Cut(productID, "-")
	if !ok || base == "" || quote == "" {
		return nil, fmt.Errorf("invalid product id %q", productID)
	}

	v := &Venue{
		product: exchange.Product{
			ID:             productID,
			BaseCurrency:   base,
			QuoteCurrency:  quote,
			BaseIncrement:  orDefault(cfg.BaseIncrement, DefaultBaseIncrement),
			QuoteIncrement: orDefault(cfg.QuoteIncrement, DefaultQuoteIncrement),
		},
		wallets: make(map[string]map[string]decimal.Decimal),
		holds:   make(map[string]map[string]decimal.Decimal),
		orders:  make(map[string]*order),
		now:     time.Now,
	}

	if cfg.FeeRate != "" {
		rate, err := decimal.NewFromString(cfg.FeeRate)
		if err != nil {
			return nil, fmt.Errorf("invalid fee rate %q: %w", cfg.FeeRate, err)
		}
		v.feeRate = rate
	}

	names := cfg.Profiles
	if len(names) == 0 {
		names = []string{DefaultProfile}
	}
	for i, name := range names {
		id := "paper-" + strconv.Itoa(i+1)
		v.profiles = append(v.profiles, exchange.Profile{ID: id, Name: name, Active: true})
		v.wallets[id] = map[string]decimal.Decimal{base: decimal.Zero, quote: decimal.Zero}
		v.holds[id] = make(map[string]decimal.Decimal)
	}

	trading := v.profiles[0].ID
	for currency, amount := range cfg.Balances {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid %s balance %q: %w", currency, amount, err)
		}
		v.wallets[trading][strings.ToUpper(currency)] = d
	}
	return v, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (v *Venue) tradingProfile() string {
	return v.profiles[0].ID
}

// GetName returns the venue name
func (v *Venue) GetName() string {
	return exchange.VenuePaper
}

// Refresh is a no-op; there is no session to renew
func (v *Venue) Refresh(ctx context.Context) error {
	return nil
}

// SetPrice moves the simulated market and fills any resting orders it crosses
func (v *Venue) SetPrice(price decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.price = price
	for _, o := range v.orders {
		if !o.details.IsDone() && v.crosses(o) {
			v.fill(o)
		}
	}
}

func (v *Venue) crosses(o *order) bool {
	if v.price.IsZero() {
		return false
	}
	if o.details.Side == exchange.OrderSideBuy {
		return v.price.LessThanOrEqual(o.price)
	}
	return v.price.GreaterThanOrEqual(o.price)
}

// PlaceOrder reserves funds and fills immediately when the limit crosses the market
func (v *Venue) PlaceOrder(ctx context.Context, params exchange.OrderParams) (*exchange.PlacedOrder, error) {
	if params.ProductID != v.product.ID {
		return nil, &exchange.ExchangeError{Code: "UNKNOWN_PRODUCT", Message: "unknown product", Details: params.ProductID}
	}
	if !params.Price.IsPositive() || !params.Size.IsPositive() {
		return nil, &exchange.ExchangeError{Code: "INVALID_ORDER", Message: "price and size must be positive"}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	o := &order{price: params.Price, size: params.Size, tif: params.TimeInForce}
	profile := v.tradingProfile()
	if params.Side == exchange.OrderSideBuy {
		o.holdCurrency = v.product.QuoteCurrency
		notional := params.Price.Mul(params.Size)
		o.hold = notional.Add(notional.Mul(v.feeRate))
	} else {
		o.holdCurrency = v.product.BaseCurrency
		o.hold = params.Size
	}
	if v.available(profile, o.holdCurrency).LessThan(o.hold) {
		return nil, exchange.ErrInsufficientBalance
	}
	v.holds[profile][o.holdCurrency] = v.holds[profile][o.holdCurrency].Add(o.hold)

	v.seq++
	o.details = exchange.OrderDetails{
		ID:     fmt.Sprintf("paper-order-%d", v.seq),
		Side:   params.Side,
		Status: exchange.OrderStatusOpen,
	}
	v.orders[o.details.ID] = o

	switch {
	case v.crosses(o):
		v.fill(o)
	case o.tif == exchange.TimeInForceFOK || o.tif == exchange.TimeInForceIOC:
		v.release(o, exchange.DoneReasonCanceled)
	}

	return &exchange.PlacedOrder{ID: o.details.ID, Status: exchange.OrderStatusPending, CreatedAt: v.now()}, nil
}

func (v *Venue) fill(o *order) {
	profile := v.tradingProfile()
	wallet := v.wallets[profile]
	executed := o.price.Mul(o.size)
	fees := executed.Mul(v.feeRate)

	v.holds[profile][o.holdCurrency] = v.holds[profile][o.holdCurrency].Sub(o.hold)
	if o.details.Side == exchange.OrderSideBuy {
		wallet[v.product.QuoteCurrency] = wallet[v.product.QuoteCurrency].Sub(executed).Sub(fees)
		wallet[v.product.BaseCurrency] = wallet[v.product.BaseCurrency].Add(o.size)
	} else {
		wallet[v.product.BaseCurrency] = wallet[v.product.BaseCurrency].Sub(o.size)
		wallet[v.product.QuoteCurrency] = wallet[v.product.QuoteCurrency].Add(executed).Sub(fees)
	}

	o.details.Status = exchange.OrderStatusDone
	o.details.DoneReason = exchange.DoneReasonFilled
	o.details.ExecutedValue = executed
	o.details.FillFees = fees
	o.details.FilledSize = o.size
}

func (v *Venue) release(o *order, reason string) {
	profile := v.tradingProfile()
	v.holds[profile][o.holdCurrency] = v.holds[profile][o.holdCurrency].Sub(o.hold)
	o.details.Status = exchange.OrderStatusDone
	o.details.DoneReason = reason
}

// GetOrder returns a snapshot of the order
func (v *Venue) GetOrder(ctx context.Context, orderID string) (*exchange.OrderDetails, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.orders[orderID]
	if !ok {
		return nil, exchange.ErrOrderNotFound
	}
	details := o.details
	return &details, nil
}

// CancelOrder cancels an open order. Finished orders cannot be cancelled.
func (v *Venue) CancelOrder(ctx context.Context, orderID string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	o, ok := v.orders[orderID]
	if !ok {
		return "", exchange.ErrOrderNotFound
	}
	if o.details.IsDone() {
		return "", &exchange.ExchangeError{Code: "ORDER_DONE", Message: "order already done", Details: orderID}
	}
	v.release(o, exchange.DoneReasonCanceled)
	return orderID, nil
}

func (v *Venue) available(profile, currency string) decimal.Decimal {
	return v.wallets[profile][currency].Sub(v.holds[profile][currency])
}

func accountID(profile, currency string) string {
	return profile + ":" + currency
}

func (v *Venue) account(profile, currency string) exchange.Account {
	return exchange.Account{
		ID:        accountID(profile, currency),
		Currency:  currency,
		Balance:   v.wallets[profile][currency],
		Available: v.available(profile, currency),
		Hold:      v.holds[profile][currency],
		ProfileID: profile,
	}
}

// GetAccounts lists the trading profile's wallets
func (v *Venue) GetAccounts(ctx context.Context) ([]exchange.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	profile := v.tradingProfile()
	return []exchange.Account{
		v.account(profile, v.product.BaseCurrency),
		v.account(profile, v.product.QuoteCurrency),
	}, nil
}

// GetAccount returns one wallet by account id
func (v *Venue) GetAccount(ctx context.Context, id string) (*exchange.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	profile, currency, ok := strings.Cut(id, ":")
	if !ok {
		return nil, &exchange.ExchangeError{Code: "ACCOUNT_NOT_FOUND", Message: "unknown account", Details: id}
	}
	if _, exists := v.wallets[profile][currency]; !exists {
		return nil, &exchange.ExchangeError{Code: "ACCOUNT_NOT_FOUND", Message: "unknown account", Details: id}
	}
	acc := v.account(profile, currency)
	return &acc, nil
}

// GetFees returns the flat fee rate for both legs
func (v *Venue) GetFees(ctx context.Context) (*exchange.Fees, error) {
	return &exchange.Fees{MakerFeeRate: v.feeRate, TakerFeeRate: v.feeRate}, nil
}

// GetProducts returns the single simulated product
func (v *Venue) GetProducts(ctx context.Context) ([]exchange.Product, error) {
	return []exchange.Product{v.product}, nil
}

// GetProfiles lists the configured profiles
func (v *Venue) GetProfiles(ctx context.Context) ([]exchange.Profile, error) {
	out := make([]exchange.Profile, len(v.profiles))
	copy(out, v.profiles)
	return out, nil
}

// TransferFunds moves available funds between two profiles
func (v *Venue) TransferFunds(ctx context.Context, params exchange.TransferParams) (*exchange.TransferResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	from, okFrom := v.wallets[params.FromProfileID]
	to, okTo := v.wallets[params.ToProfileID]
	if !okFrom || !okTo {
		return nil, &exchange.ExchangeError{Code: "PROFILE_NOT_FOUND", Message: "unknown profile"}
	}
	if !params.Amount.IsPositive() {
		return nil, &exchange.ExchangeError{Code: "INVALID_AMOUNT", Message: "transfer amount must be positive"}
	}
	if v.available(params.FromProfileID, params.Currency).LessThan(params.Amount) {
		return nil, exchange.ErrInsufficientBalance
	}
	from[params.Currency] = from[params.Currency].Sub(params.Amount)
	to[params.Currency] = to[params.Currency].Add(params.Amount)

	v.seq++
	return &exchange.TransferResult{ID: fmt.Sprintf("paper-transfer-%d", v.seq), Status: "completed"}, nil
}

// Balance returns a wallet balance by profile name, for reports
func (v *Venue) Balance(profileName, currency string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.profiles {
		if p.Name == profileName {
			return v.wallets[p.ID][currency]
		}
	}
	return decimal.Zero
}

// Product returns the simulated product
func (v *Venue) Product() exchange.Product {
	return v.product
}

var _ exchange.Client = (*Venue)(nil)
