package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ducminhle1904/momentum-trader/cmd/common"
	"github.com/ducminhle1904/momentum-trader/internal/config"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (json, yaml or toml); bare names resolve under configs/")
		envFile    = flag.String("env", ".env", "Environment file path")
		dryRun     = flag.Bool("dry-run", false, "Trade on the in-memory paper venue against live prices")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		common.PrintVersion("momentum-bot")
		return
	}

	if err := config.LoadEnvFiles(*envFile); err != nil {
		log.Printf("Warning: Could not load env file (%v), using process environment", err)
	}

	var overrides []func(*config.BotConfig)
	if *dryRun {
		overrides = append(overrides, useDryRun)
	}

	cfg, err := config.Load(*configFile, overrides...)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.ProductID(), cfg.LoggerParams())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	fmt.Println("🚀 Momentum Bot Starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := 0
	if err := run(ctx, cfg, lg); err != nil {
		lg.LogFatal(err)
		code = 1
	} else {
		fmt.Println("✅ Bot stopped successfully")
	}
	stop()
	lg.Close()
	os.Exit(code)
}

// useDryRun swaps the venue for the paper venue. Resting GTC orders let the
// paper venue fill on later ticks the way a live book would.
func useDryRun(c *config.BotConfig) {
	c.Exchange.Name = exchange.VenuePaper
	c.Orders.TimeInForce = string(exchange.TimeInForceGTC)
}
