package coinbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerFeed_DeliversTickers(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan subscribeMessage, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub subscribeMessage
		require.NoError(t, conn.ReadJSON(&sub))
		subscribed <- sub

		frames := []string{
			`{"type":"subscriptions","channels":[{"name":"ticker"}]}`,
			`{"type":"ticker","product_id":"BTC-USD","price":"100.50","sequence":1}`,
			`not json`,
			`{"type":"ticker","product_id":"ETH-USD","price":"9","sequence":2}`,
			`{"type":"ticker","product_id":"BTC-USD","price":"101.25","sequence":3}`,
		}
		for _, f := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
		}
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	feed := NewTickerFeed(wsURL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticks := make(chan types.Ticker, 4)
	done := make(chan error, 1)
	go func() {
		done <- feed.Run(ctx, "BTC-USD", func(tk types.Ticker) { ticks <- tk })
	}()

	sub := <-subscribed
	assert.Equal(t, "subscribe", sub.Type)
	assert.Equal(t, []string{"BTC-USD"}, sub.ProductIDs)
	assert.Equal(t, []string{"ticker"}, sub.Channels)

	first := <-ticks
	second := <-ticks
	assert.Equal(t, "100.5", first.Price.String())
	assert.Equal(t, "101.25", second.Price.String())
	assert.Equal(t, int64(3), second.Sequence)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}
