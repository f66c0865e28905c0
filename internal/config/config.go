package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/joho/godotenv"
)

// LoadEnvFiles loads KEY=value files into the process environment. Variables
// already set win. With no files, a missing ./.env is not an error.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return godotenv.Load(files...)
}

// ApplyEnv overrides c with any variables set in the environment
func ApplyEnv(c *BotConfig) {
	c.Trading.SellDelta = getEnvFloat("SELL_POSITION_DELTA", c.Trading.SellDelta)
	c.Trading.BuyDelta = getEnvFloat("BUY_POSITION_DELTA", c.Trading.BuyDelta)
	c.Trading.OrderPriceDelta = getEnvFloat("ORDER_PRICE_DELTA", c.Trading.OrderPriceDelta)
	c.Trading.MinProfitDelta = getEnvFloat("MIN_PROFIT_DELTA", c.Trading.MinProfitDelta)
	c.Trading.BalanceMinimum = getEnvFloat("BALANCE_MINIMUM", c.Trading.BalanceMinimum)
	c.Trading.BaseCurrency = getEnv("BASE_CURRENCY_NAME", c.Trading.BaseCurrency)
	c.Trading.QuoteCurrency = getEnv("QUOTE_CURRENCY_NAME", c.Trading.QuoteCurrency)
	c.Trading.TradingProfile = getEnv("TRADING_PROFILE_NAME", c.Trading.TradingProfile)

	c.Deposit.Profile = getEnv("DEPOSIT_PROFILE_NAME", c.Deposit.Profile)
	if v, ok := os.LookupEnv("DEPOSITING_ENABLED"); ok {
		// anything but "false" keeps depositing on
		c.Deposit.Enabled = strings.ToLower(strings.TrimSpace(v)) != "false"
	}
	c.Deposit.ShareFraction = getEnvFloat("DEPOSITING_AMOUNT", c.Deposit.ShareFraction)

	c.Environment = getEnv("TRADING_ENV", c.Environment)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Exchange.Name = getEnv("EXCHANGE", c.Exchange.Name)

	applyCredentials(c)

	c.Checkpoint.Backend = getEnv("CHECKPOINT_BACKEND", c.Checkpoint.Backend)
	c.Checkpoint.Path = getEnv("CHECKPOINT_PATH", c.Checkpoint.Path)
	c.Checkpoint.RedisAddr = getEnv("REDIS_ADDR", c.Checkpoint.RedisAddr)
	c.Checkpoint.RedisPassword = getEnv("REDIS_PASSWORD", c.Checkpoint.RedisPassword)

	c.Journal.DSN = getEnv("JOURNAL_DSN", c.Journal.DSN)
	c.Monitoring.MetricsAddr = getEnv("METRICS_ADDR", c.Monitoring.MetricsAddr)

	token := getEnv("TELEGRAM_BOT_TOKEN", "")
	chat := getEnv("TELEGRAM_CHAT_ID", "")
	if token != "" || chat != "" {
		if c.Notifications == nil {
			c.Notifications = &NotificationConfig{Enabled: true}
		}
		c.Notifications.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", c.Notifications.TelegramToken)
		c.Notifications.TelegramChat = getEnv("TELEGRAM_CHAT_ID", c.Notifications.TelegramChat)
	}
}

// applyCredentials routes API_KEY, API_SECRET and API_PASSPHRASE to the selected venue
func applyCredentials(c *BotConfig) {
	key, secret, pass := os.Getenv("API_KEY"), os.Getenv("API_SECRET"), os.Getenv("API_PASSPHRASE")
	if key == "" && secret == "" && pass == "" {
		return
	}

	switch strings.ToLower(c.Exchange.Name) {
	case exchange.VenueBybit:
		if c.Exchange.Bybit == nil {
			c.Exchange.Bybit = &exchange.BybitConfig{}
		}
		c.Exchange.Bybit.APIKey = getEnv("API_KEY", c.Exchange.Bybit.APIKey)
		c.Exchange.Bybit.APISecret = getEnv("API_SECRET", c.Exchange.Bybit.APISecret)
	default:
		if c.Exchange.Coinbase == nil {
			c.Exchange.Coinbase = &exchange.CoinbaseConfig{}
		}
		c.Exchange.Coinbase.APIKey = getEnv("API_KEY", c.Exchange.Coinbase.APIKey)
		c.Exchange.Coinbase.APISecret = getEnv("API_SECRET", c.Exchange.Coinbase.APISecret)
		c.Exchange.Coinbase.Passphrase = getEnv("API_PASSPHRASE", c.Exchange.Coinbase.Passphrase)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}
