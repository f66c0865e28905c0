package bybit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Public spot streams
const (
	MainnetSpotStream = "wss://stream.bybit.com/v5/public/spot"
	TestnetSpotStream = "wss://stream-testnet.bybit.com/v5/public/spot"
)

type tickerFrame struct {
	Topic string `json:"topic"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
}

type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// TickerFeed streams spot tickers
type TickerFeed struct {
	url    string
	log    *logrus.Entry
	stream exchange.StreamConfig
}

// NewTickerFeed creates a feed for the given stream URL
func NewTickerFeed(url string, log *logrus.Entry) *TickerFeed {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	// Bybit drops idle connections after 10 minutes without a ping
	return &TickerFeed{
		url:    url,
		log:    log.WithField("feed", "bybit"),
		stream: exchange.StreamConfig{PingInterval: 20 * time.Second},
	}
}

// StreamURL picks the public stream matching the REST environment
func StreamURL(testnet bool) string {
	if testnet {
		return TestnetSpotStream
	}
	return MainnetSpotStream
}

// Run subscribes to productID tickers until ctx is done
func (f *TickerFeed) Run(ctx context.Context, productID string, onTick func(types.Ticker)) error {
	symbol := Symbol(productID)
	cfg := f.stream
	cfg.URL = f.url
	cfg.Subscribe = subscribeRequest{Op: "subscribe", Args: []string{"tickers." + symbol}}

	return exchange.NewWebSocketStream(cfg, f.log).Run(ctx, func(raw []byte) error {
		tick, ok := parseTickerFrame(raw, symbol)
		if ok {
			tick.ProductID = productID
			onTick(tick)
		}
		return nil
	})
}

func parseTickerFrame(raw []byte, symbol string) (types.Ticker, bool) {
	var frame tickerFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return types.Ticker{}, false
	}
	if !strings.HasPrefix(frame.Topic, "tickers.") || frame.Data.Symbol != symbol {
		return types.Ticker{}, false
	}
	price, err := decimal.NewFromString(frame.Data.LastPrice)
	if err != nil || !price.IsPositive() {
		return types.Ticker{}, false
	}
	return types.Ticker{Price: price, Timestamp: time.UnixMilli(frame.Ts)}, true
}
