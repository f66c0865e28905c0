package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/allocation"
	"github.com/ducminhle1904/momentum-trader/internal/config"
	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/adapters"
	"github.com/ducminhle1904/momentum-trader/internal/feed"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/monitoring"
	"github.com/ducminhle1904/momentum-trader/internal/notifications"
	"github.com/ducminhle1904/momentum-trader/internal/orders"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/ducminhle1904/momentum-trader/internal/trading"
	"github.com/ducminhle1904/momentum-trader/pkg/reporting"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const component = "bot"

// run wires the process and trades until ctx ends or a fatal error occurs.
// Shutdown by signal returns nil.
func run(ctx context.Context, cfg *config.BotConfig, lg *logger.Logger) error {
	productID := cfg.ProductID()

	venue, err := adapters.NewFactory(lg.Entry()).CreateVenue(cfg.Exchange, productID)
	if err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, component, "create_venue")
	}

	store, err := state.Open(ctx, cfg.Checkpoint, productID)
	if err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryFatal, component, "open_checkpoint")
	}
	defer store.Close()

	trades, err := openJournal(ctx, cfg.Journal.DSN)
	if err != nil {
		return boterrors.WrapError(err, boterrors.ErrorCategoryFatal, component, "open_journal")
	}
	defer trades.Close()

	market, err := trading.ResolveMarket(ctx, venue.Client, cfg.MarketParams())
	if err != nil {
		return err
	}

	position, err := trading.LoadPosition(ctx, store, cfg.Checkpoint.StrictLoad, lg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)
	health := monitoring.NewHealthChecker(cfg.HealthStaleness())

	supervisor := orders.NewSupervisor(venue.Client, cfg.SupervisorParams(), orders.ContextSleep, lg.Entry())
	allocator := allocation.NewAllocator(venue.Client, cfg.DepositParams(), allocation.Route{
		FromProfileID:  market.TradingProfileID,
		ToProfileID:    market.DepositProfileID,
		Currency:       market.Product.QuoteCurrency,
		QuotePrecision: market.QuotePrecision,
	}, lg.Entry())

	notifier := newNotifier(cfg)
	engine, err := trading.NewEngine(cfg.TradingParams(), *market, position, trading.Deps{
		Client:     venue.Client,
		Supervisor: supervisor,
		Allocator:  allocator,
		Store:      store,
		Journal:    trades,
		Recorder:   monitoring.Multi{metrics, health},
		Notifier:   notifier,
		Logger:     lg,
	})
	if err != nil {
		return err
	}

	printStartup(cfg, venue.Client.GetName(), market, position)
	if err := notifier.SendAlert(notifications.LevelInfo, fmt.Sprintf("Momentum bot started on %s (%s)", productID, position)); err != nil {
		lg.Warning("Failed to send startup notification: %v", err)
	}

	cell := &feed.PriceCell{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := venue.Feed.Run(gctx, productID, cell.OnTick); err != nil && gctx.Err() == nil {
			return boterrors.WrapError(err, boterrors.ErrorCategoryFatal, component, "price_feed")
		}
		return nil
	})

	g.Go(func() error {
		err := engine.Run(gctx, feed.NewLiveSource(cell, cfg.TickInterval()))
		if err == nil {
			// the live source never runs dry; stop the feed and server too
			return context.Canceled
		}
		return err
	})

	if addr := cfg.Monitoring.MetricsAddr; addr != "" {
		g.Go(func() error {
			return serveMonitoring(gctx, addr, registry, health, lg)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		lg.Info("Shutdown signal received, position %s", engine.Position())
		return nil
	}
	return err
}

func openJournal(ctx context.Context, dsn string) (journal.Journal, error) {
	if dsn == "" {
		return journal.NopJournal{}, nil
	}
	return journal.OpenPostgres(ctx, dsn)
}

func newNotifier(cfg *config.BotConfig) notifications.Notifier {
	n := cfg.Notifications
	if n == nil || !n.Enabled || n.TelegramToken == "" || n.TelegramChat == "" {
		return notifications.NopNotifier{}
	}
	return notifications.NewTelegramNotifier(n.TelegramToken, n.TelegramChat, "Momentum Bot "+cfg.ProductID())
}

// serveMonitoring exposes /metrics and /health until ctx ends
func serveMonitoring(ctx context.Context, addr string, g prometheus.Gatherer, health *monitoring.HealthChecker, lg *logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler(g))
	mux.Handle("/health", health)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		lg.Info("Metrics server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return boterrors.WrapError(err, boterrors.ErrorCategoryFatal, component, "metrics_server")
	}
}

func printStartup(cfg *config.BotConfig, venue string, market *trading.Market, position state.Position) {
	mode := "sandbox"
	if cfg.IsReal() {
		mode = "real"
	}
	deposit := "disabled"
	if cfg.Deposit.Enabled {
		deposit = fmt.Sprintf("%.0f%% to %q", cfg.Deposit.ShareFraction*100, cfg.Deposit.Profile)
	}

	reporting.PrintStartupTable(os.Stdout, "BOT INITIALIZATION", []reporting.StartupRow{
		{Label: "📊 Product", Value: market.ProductID()},
		{Label: "🏪 Exchange", Value: venue},
		{Label: "🔧 Environment", Value: mode},
		{},
		{Label: "📈 Buy Delta", Value: fmt.Sprintf("%.2f%%", cfg.Trading.BuyDelta*100)},
		{Label: "📉 Sell Delta", Value: fmt.Sprintf("%.2f%%", cfg.Trading.SellDelta*100)},
		{Label: "🎯 Order Delta", Value: fmt.Sprintf("%.2f%%", cfg.Trading.OrderPriceDelta*100)},
		{Label: "💵 Min Profit", Value: fmt.Sprintf("%.2f%%", cfg.Trading.MinProfitDelta*100)},
		{Label: "🏦 Deposit", Value: deposit},
		{},
		{Label: "📏 Precision", Value: fmt.Sprintf("base %d / quote %d", market.BasePrecision, market.QuotePrecision)},
		{Label: "💾 Checkpoint", Value: cfg.Checkpoint.Backend},
		{Label: "🎒 Position", Value: position.String()},
	})
}
