// Package bybit adapts the Bybit v5 unified trading API to the venue capability set.
package bybit

import (
	"context"
	"strings"
	"sync"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/sirupsen/logrus"
)

const (
	demoURL = "https://api-demo.bybit.com"

	categorySpot       = "spot"
	accountTypeUnified = "UNIFIED"
)

// Client wraps the Bybit API client
type Client struct {
	cfg exchange.BybitConfig
	log *logrus.Entry

	mu         sync.RWMutex
	httpClient *bybit_api.Client
	// product fee and instrument lookups are scoped to, BASE-QUOTE
	productID string
	// symbols of orders placed by this process, needed by the cancel endpoint
	symbols map[string]string
}

// NewClient creates a new Bybit client
func NewClient(cfg exchange.BybitConfig, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Client{
		cfg:     cfg,
		log:     log.WithField("exchange", exchange.VenueBybit),
		symbols: make(map[string]string),
	}
	c.httpClient = c.newHTTPClient()
	return c
}

func (c *Client) newHTTPClient() *bybit_api.Client {
	return bybit_api.NewBybitHttpClient(
		c.cfg.APIKey,
		c.cfg.APISecret,
		bybit_api.WithBaseURL(c.baseURL()),
	)
}

func (c *Client) baseURL() string {
	switch {
	case c.cfg.Demo:
		return demoURL
	case c.cfg.Testnet:
		return bybit_api.TESTNET
	default:
		return bybit_api.MAINNET
	}
}

func (c *Client) api() *bybit_api.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.httpClient
}

// WithProduct scopes fee and instrument lookups to one pair
func (c *Client) WithProduct(productID string) *Client {
	c.productID = productID
	return c
}

// GetName returns the venue name
func (c *Client) GetName() string {
	return exchange.VenueBybit
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	switch {
	case c.cfg.Demo:
		return "demo"
	case c.cfg.Testnet:
		return "testnet"
	default:
		return "mainnet"
	}
}

// Refresh replaces the underlying HTTP client
func (c *Client) Refresh(ctx context.Context) error {
	fresh := c.newHTTPClient()
	c.mu.Lock()
	c.httpClient = fresh
	c.mu.Unlock()
	return nil
}

// Symbol converts a BASE-QUOTE product id to Bybit's concatenated symbol
func Symbol(productID string) string {
	return strings.ReplaceAll(strings.ToUpper(productID), "-", "")
}

func (c *Client) rememberSymbol(orderID, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols[orderID] = symbol
}

func (c *Client) symbolFor(orderID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	symbol, ok := c.symbols[orderID]
	return symbol, ok
}
