package main

import (
	"context"
	"testing"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/config"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/monitoring"
	"github.com/ducminhle1904/momentum-trader/internal/notifications"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseDryRun(t *testing.T) {
	cfg, err := config.Load("", useDryRun)
	require.NoError(t, err)

	assert.Equal(t, exchange.VenuePaper, cfg.Exchange.Name)
	assert.Equal(t, exchange.TimeInForceGTC, cfg.SupervisorParams().TimeInForce)
	require.NotNil(t, cfg.Exchange.Paper)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, notifications.NopNotifier{}, newNotifier(cfg))

	cfg.Notifications = &config.NotificationConfig{Enabled: true, TelegramToken: "token"}
	assert.IsType(t, notifications.NopNotifier{}, newNotifier(cfg), "chat id is required")

	cfg.Notifications.TelegramChat = "42"
	assert.IsType(t, &notifications.TelegramNotifier{}, newNotifier(cfg))
}

func TestOpenJournal_WithoutDSN(t *testing.T) {
	j, err := openJournal(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, journal.NopJournal{}, j)
}

func TestServeMonitoring_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveMonitoring(ctx, "127.0.0.1:0", prometheus.NewRegistry(), monitoring.NewHealthChecker(time.Minute), logger.Discard())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitoring server did not stop")
	}
}
