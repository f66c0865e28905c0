package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/shopspring/decimal"
)

const bootstrapComponent = "bootstrap"

// MarketConfig names what has to be resolved against the venue before trading
type MarketConfig struct {
	BaseCurrency   string
	QuoteCurrency  string
	TradingProfile string
	DepositProfile string
	DepositEnabled bool
}

// Market is the resolved static context of one trading pair
type Market struct {
	Product          exchange.Product
	BasePrecision    int32
	QuotePrecision   int32
	BaseAccountID    string
	QuoteAccountID   string
	TradingProfileID string
	DepositProfileID string
}

// ProductID returns the venue-neutral pair id
func (m *Market) ProductID() string {
	return m.Product.ID
}

// Precision converts an increment such as "0.01000000" into the number of
// decimal places it allows. Increments of one or more give zero.
func Precision(increment string) (int32, error) {
	inc, err := decimal.NewFromString(strings.TrimSpace(increment))
	if err != nil {
		return 0, fmt.Errorf("invalid increment %q: %w", increment, err)
	}
	if !inc.IsPositive() {
		return 0, fmt.Errorf("increment must be positive, got %q", increment)
	}
	if inc.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return 0, nil
	}

	_, frac, _ := strings.Cut(strings.TrimSpace(increment), ".")
	var places int32
	for _, c := range frac {
		places++
		if c != '0' {
			break
		}
	}
	return places, nil
}

// ResolveMarket finds the product, its precisions, the two currency
// accounts and the profile ids. Anything missing is a fatal CONFIG error.
func ResolveMarket(ctx context.Context, client exchange.Client, cfg MarketConfig) (*Market, error) {
	productID := exchange.ProductID(cfg.BaseCurrency, cfg.QuoteCurrency)

	products, err := exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Product, error) {
		return client.GetProducts(ctx)
	})
	if err != nil {
		return nil, boterrors.NewTransientError(bootstrapComponent, "get_products", err)
	}

	m := &Market{}
	found := false
	for _, p := range products {
		if p.ID == productID {
			m.Product, found = p, true
			break
		}
	}
	if !found {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_product",
			fmt.Sprintf("could not find product pair %q, verify the currency names", productID))
	}

	if m.QuotePrecision, err = Precision(m.Product.QuoteIncrement); err != nil {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_product", err.Error())
	}
	if m.BasePrecision, err = Precision(m.Product.BaseIncrement); err != nil {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_product", err.Error())
	}

	accounts, err := exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Account, error) {
		return client.GetAccounts(ctx)
	})
	if err != nil {
		return nil, boterrors.NewTransientError(bootstrapComponent, "get_accounts", err)
	}
	for _, a := range accounts {
		switch a.Currency {
		case cfg.BaseCurrency:
			m.BaseAccountID = a.ID
		case cfg.QuoteCurrency:
			m.QuoteAccountID = a.ID
		}
	}
	if m.BaseAccountID == "" || m.QuoteAccountID == "" {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_accounts",
			fmt.Sprintf("missing %s or %s account in the trading profile", cfg.BaseCurrency, cfg.QuoteCurrency))
	}

	profiles, err := exchange.RetryRead(ctx, exchange.DefaultReadRetry, func(ctx context.Context) ([]exchange.Profile, error) {
		return client.GetProfiles(ctx)
	})
	if err != nil {
		return nil, boterrors.NewTransientError(bootstrapComponent, "get_profiles", err)
	}
	for _, p := range profiles {
		if p.Name == cfg.TradingProfile {
			m.TradingProfileID = p.ID
		}
		if p.Name == cfg.DepositProfile {
			m.DepositProfileID = p.ID
		}
	}
	if m.TradingProfileID == "" {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_profiles",
			fmt.Sprintf("could not find the trading profile %q", cfg.TradingProfile)).
			WithContext("profile", cfg.TradingProfile)
	}
	if cfg.DepositEnabled && m.DepositProfileID == "" {
		return nil, boterrors.NewConfigurationError(bootstrapComponent, "resolve_profiles",
			fmt.Sprintf("could not find the deposit profile %q", cfg.DepositProfile)).
			WithContext("profile", cfg.DepositProfile)
	}

	return m, nil
}

// LoadPosition reads the checkpoint. A missing checkpoint starts flat. Any
// other failure also starts flat unless strict is set.
func LoadPosition(ctx context.Context, store state.Store, strict bool, log *logger.Logger) (state.Position, error) {
	pos, err := store.Load(ctx)
	switch {
	case err == nil:
		log.Info("found checkpoint, starting with position %s", pos)
		return pos, nil
	case errors.Is(err, state.ErrNotFound):
		log.Info("no checkpoint found, starting with no existing position")
		return state.Flat(), nil
	case strict:
		return state.Position{}, boterrors.WrapError(err, boterrors.ErrorCategoryFatal, bootstrapComponent, "load_checkpoint").
			WithMessage("checkpoint unreadable and strict loading is enabled")
	default:
		log.WithField("error", err.Error()).
			Error("failed to read checkpoint, continuing flat; an open position may be untracked")
		return state.Flat(), nil
	}
}
