package coinbase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TickerFeed streams the public ticker channel
type TickerFeed struct {
	url    string
	log    *logrus.Entry
	stream exchange.StreamConfig
}

// NewTickerFeed creates a feed for the given websocket URL
func NewTickerFeed(wsURL string, log *logrus.Entry) *TickerFeed {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TickerFeed{url: wsURL, log: log.WithField("feed", "coinbase")}
}

// WithStreamConfig overrides timing knobs of the underlying stream
func (f *TickerFeed) WithStreamConfig(cfg exchange.StreamConfig) *TickerFeed {
	f.stream = cfg
	return f
}

// Run subscribes to productID tickers and calls onTick for each price until ctx is done
func (f *TickerFeed) Run(ctx context.Context, productID string, onTick func(types.Ticker)) error {
	cfg := f.stream
	cfg.URL = f.url
	cfg.Subscribe = subscribeMessage{
		Type:       "subscribe",
		ProductIDs: []string{productID},
		Channels:   []string{"ticker"},
	}

	stream := exchange.NewWebSocketStream(cfg, f.log)
	return stream.Run(ctx, func(raw []byte) error {
		var msg feedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			f.log.WithError(err).Debug("skipping undecodable frame")
			return nil
		}

		switch msg.Type {
		case "ticker":
			if msg.ProductID != "" && msg.ProductID != productID {
				return nil
			}
			price, err := decimal.NewFromString(msg.Price)
			if err != nil || !price.IsPositive() {
				return nil
			}
			onTick(types.Ticker{
				ProductID: msg.ProductID,
				Price:     price,
				Sequence:  msg.Sequence,
				Timestamp: msg.Time,
			})
		case "error":
			return fmt.Errorf("feed error: %s %s", msg.Message, msg.Reason)
		}
		return nil
	})
}
