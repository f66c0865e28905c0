package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StreamConfig describes a subscribe-then-read websocket stream
type StreamConfig struct {
	URL string
	// Subscribe is sent as JSON right after every (re)connect
	Subscribe    interface{}
	PingInterval time.Duration
	ReadTimeout  time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	Dialer       *websocket.Dialer
}

func (c *StreamConfig) setDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 45 * time.Second
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// WebSocketStream keeps a websocket subscription alive across disconnects
type WebSocketStream struct {
	cfg StreamConfig
	log *logrus.Entry
}

// NewWebSocketStream creates a stream; nothing is dialled until Run
func NewWebSocketStream(cfg StreamConfig, log *logrus.Entry) *WebSocketStream {
	cfg.setDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &WebSocketStream{cfg: cfg, log: log.WithField("stream", cfg.URL)}
}

// Run delivers every text frame to handle until ctx is cancelled. A handler
// error drops the connection and triggers a reconnect.
func (s *WebSocketStream) Run(ctx context.Context, handle func([]byte) error) error {
	backoff := s.cfg.MinBackoff
	for {
		connected, err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.cfg.MinBackoff
		}
		s.log.WithError(err).Warnf("stream disconnected, reconnecting in %s", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *WebSocketStream) session(ctx context.Context, handle func([]byte) error) (bool, error) {
	conn, _, err := s.cfg.Dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	defer conn.Close()

	if s.cfg.Subscribe != nil {
		if err := conn.WriteJSON(s.cfg.Subscribe); err != nil {
			return false, fmt.Errorf("failed to send subscribe message: %w", err)
		}
	}
	s.log.Info("stream subscribed")

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// unblock ReadMessage
				_ = conn.Close()
				return
			case <-ticker.C:
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				if err != nil {
					s.log.WithError(err).Debug("ping failed")
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if err := handle(msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return true, err
			}
			return true, fmt.Errorf("stream handler: %w", err)
		}
	}
}
