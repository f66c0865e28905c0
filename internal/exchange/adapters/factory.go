package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/bybit"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/coinbase"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/paper"
	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/sirupsen/logrus"
)

// Venue bundles the trading client with the matching price feed
type Venue struct {
	Client exchange.Client
	Feed   exchange.TickerFeed
	// Paper is set when the client is the in-memory venue
	Paper *paper.Venue
}

// Factory creates venue clients based on configuration
type Factory struct {
	validator *exchange.ExchangeFactory
	log       *logrus.Entry
}

// NewFactory creates a new exchange factory instance
func NewFactory(log *logrus.Entry) *Factory {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Factory{validator: exchange.NewExchangeFactory(), log: log}
}

// CreateVenue validates config and builds the client and feed for productID
func (f *Factory) CreateVenue(config exchange.ExchangeConfig, productID string) (*Venue, error) {
	if err := f.validator.ValidateConfig(config); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(config.Name)) {
	case exchange.VenueCoinbase:
		return f.createCoinbase(config.Coinbase)
	case exchange.VenueBybit:
		return f.createBybit(config.Bybit, productID)
	case exchange.VenuePaper:
		return f.createPaper(config.Paper, config.Coinbase, productID)
	default:
		return nil, &exchange.ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
		}
	}
}

func (f *Factory) createCoinbase(cfg *exchange.CoinbaseConfig) (*Venue, error) {
	client, err := coinbase.NewClient(*cfg, f.log)
	if err != nil {
		return nil, &exchange.ExchangeError{
			Code:    "ADAPTER_CREATION_FAILED",
			Message: "Failed to create Coinbase client",
			Details: err.Error(),
		}
	}
	return &Venue{
		Client: client,
		Feed:   coinbase.NewTickerFeed(client.WebsocketURL(), f.log),
	}, nil
}

func (f *Factory) createBybit(cfg *exchange.BybitConfig, productID string) (*Venue, error) {
	client := bybit.NewClient(*cfg, f.log).WithProduct(productID)
	return &Venue{
		Client: client,
		Feed:   bybit.NewTickerFeed(bybit.StreamURL(cfg.Testnet), f.log),
	}, nil
}

// createPaper pairs the in-memory venue with the public Coinbase ticker so a
// dry run trades against live prices
func (f *Factory) createPaper(cfg *exchange.PaperConfig, public *exchange.CoinbaseConfig, productID string) (*Venue, error) {
	if cfg == nil {
		cfg = &exchange.PaperConfig{}
	}
	venue, err := paper.NewVenue(productID, *cfg)
	if err != nil {
		return nil, &exchange.ExchangeError{
			Code:    "ADAPTER_CREATION_FAILED",
			Message: "Failed to create paper venue",
			Details: err.Error(),
		}
	}

	wsURL := coinbase.ProductionWebsocketURL
	if public != nil {
		wsURL = coinbase.WebsocketURLFor(*public)
	}
	return &Venue{
		Client: venue,
		Feed:   &PricingFeed{Feed: coinbase.NewTickerFeed(wsURL, f.log), Venue: venue},
		Paper:  venue,
	}, nil
}

// PricingFeed forwards ticks to the paper venue before the consumer sees them,
// so resting paper orders fill against the same prices the engine trades on
type PricingFeed struct {
	Feed  exchange.TickerFeed
	Venue *paper.Venue
}

// Run implements exchange.TickerFeed
func (p *PricingFeed) Run(ctx context.Context, productID string, onTick func(types.Ticker)) error {
	return p.Feed.Run(ctx, productID, func(t types.Ticker) {
		p.Venue.SetPrice(t.Price)
		onTick(t)
	})
}

// GetSupportedExchanges returns a list of supported exchange names
func (f *Factory) GetSupportedExchanges() []string {
	return f.validator.GetSupportedExchanges()
}
