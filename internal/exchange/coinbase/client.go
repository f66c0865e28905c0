// Package coinbase is a Coinbase Exchange REST and websocket adapter.
package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Endpoints
const (
	ProductionRESTURL      = "https://api.exchange.coinbase.com"
	SandboxRESTURL         = "https://api-public.sandbox.exchange.coinbase.com"
	ProductionWebsocketURL = "wss://ws-feed.exchange.coinbase.com"
	SandboxWebsocketURL    = "wss://ws-feed-public.sandbox.exchange.coinbase.com"
)

const requestTimeout = 30 * time.Second

// Client implements exchange.Client against the Coinbase Exchange API
type Client struct {
	cfg    exchange.CoinbaseConfig
	secret []byte
	log    *logrus.Entry
	now    func() time.Time

	mu   sync.RWMutex
	rest *resty.Client
}

// NewClient creates a signed REST client
func NewClient(cfg exchange.CoinbaseConfig, log *logrus.Entry) (*Client, error) {
	secret, err := base64.StdEncoding.DecodeString(cfg.APISecret)
	if err != nil {
		return nil, &exchange.ExchangeError{
			Code:    "INVALID_API_SECRET",
			Message: "API secret must be base64 encoded",
			Details: err.Error(),
		}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Client{
		cfg:    cfg,
		secret: secret,
		log:    log.WithField("exchange", exchange.VenueCoinbase),
		now:    time.Now,
	}
	c.rest = c.newRESTClient()
	return c, nil
}

// RESTURL returns the base URL in use
func (c *Client) RESTURL() string {
	if c.cfg.RESTURL != "" {
		return c.cfg.RESTURL
	}
	if c.cfg.Sandbox {
		return SandboxRESTURL
	}
	return ProductionRESTURL
}

// WebsocketURL returns the feed URL matching the REST environment
func (c *Client) WebsocketURL() string {
	return WebsocketURLFor(c.cfg)
}

// WebsocketURLFor resolves the feed URL for cfg without building a client
func WebsocketURLFor(cfg exchange.CoinbaseConfig) string {
	if cfg.WebsocketURL != "" {
		return cfg.WebsocketURL
	}
	if cfg.Sandbox {
		return SandboxWebsocketURL
	}
	return ProductionWebsocketURL
}

func (c *Client) newRESTClient() *resty.Client {
	// Retries are decided per call: reads go through exchange.RetryRead,
	// mutating calls are never repeated.
	return resty.New().
		SetBaseURL(c.RESTURL()).
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "momentum-trader")
}

// GetName returns the venue name
func (c *Client) GetName() string {
	return exchange.VenueCoinbase
}

// Refresh drops pooled connections by rebuilding the REST client
func (c *Client) Refresh(ctx context.Context) error {
	fresh := c.newRESTClient()

	c.mu.Lock()
	old := c.rest
	c.rest = fresh
	c.mu.Unlock()

	if t, ok := old.GetClient().Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

func (c *Client) client() *resty.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rest
}

// sign produces the CB-ACCESS-SIGN value for a request
func (c *Client) sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// do sends a signed request. requestPath includes any query string.
func (c *Client) do(ctx context.Context, method, requestPath string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, requestPath, err)
		}
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	req := c.client().R().
		SetContext(ctx).
		SetHeader("CB-ACCESS-KEY", c.cfg.APIKey).
		SetHeader("CB-ACCESS-SIGN", c.sign(timestamp, method, requestPath, string(payload))).
		SetHeader("CB-ACCESS-TIMESTAMP", timestamp).
		SetHeader("CB-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, requestPath)
	if err != nil {
		return &exchange.ExchangeError{
			Code:        exchange.ErrConnectionFailed.Code,
			Message:     fmt.Sprintf("%s %s failed", method, requestPath),
			Details:     err.Error(),
			IsRetryable: true,
		}
	}
	if resp.IsError() {
		return apiError(method, requestPath, resp.StatusCode(), resp.Body())
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, requestPath, err)
	}
	return nil
}

func apiError(method, requestPath string, status int, body []byte) error {
	var msg struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &msg)
	if msg.Message == "" {
		msg.Message = http.StatusText(status)
	}

	exErr := &exchange.ExchangeError{
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: fmt.Sprintf("%s %s: %s", method, requestPath, msg.Message),
		Details: strconv.Itoa(status),
	}
	switch {
	case status == http.StatusNotFound:
		exErr.Code = exchange.ErrOrderNotFound.Code
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		exErr.Code = exchange.ErrAuthenticationFailed.Code
	case status == http.StatusTooManyRequests:
		exErr.Code = exchange.ErrRateLimitExceeded.Code
		exErr.IsRetryable = true
	case status >= 500:
		exErr.IsRetryable = true
	case status == http.StatusBadRequest && containsFold(msg.Message, "insufficient funds"):
		exErr.Code = exchange.ErrInsufficientBalance.Code
	}
	return exErr
}
