package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log output
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // optional; empty logs to stdout only
	MaxSize    int    // megabytes before rotation
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	JSON       bool
}

// LogLevel tags entries written through the printf helpers
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Logger is the trading log for one product
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// NewLogger builds a logger writing to stdout and, when configured, a rotating file
func NewLogger(product string, cfg Config) (*Logger, error) {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	var closer io.Closer
	if cfg.OutputFile != "" {
		if dir := filepath.Dir(cfg.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.OutputFile,
			MaxSize:    orDefault(cfg.MaxSize, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 7),
			MaxAge:     orDefault(cfg.MaxAge, 30),
			Compress:   cfg.Compress,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	l := New(product, io.MultiWriter(writers...), cfg)
	l.closer = closer
	return l, nil
}

// New builds a logger on an arbitrary writer
func New(product string, out io.Writer, cfg Config) *Logger {
	base := logrus.New()
	base.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if cfg.JSON {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return &Logger{entry: base.WithField("product", product)}
}

// Discard returns a logger that drops everything; used by the replay driver and tests
func Discard() *Logger {
	return New("", io.Discard, Config{Level: "panic"})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// WithField returns a child logger carrying an extra field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value), closer: l.closer}
}

// WithFields returns a child logger carrying extra fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields)), closer: l.closer}
}

// Entry exposes the underlying logrus entry
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e := l.entry.WithField("kind", string(level))
	switch level {
	case LogLevelWarning:
		e.Warn(msg)
	case LogLevelError:
		e.Error(msg)
	default:
		e.Info(msg)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LogLevelError, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.log(LogLevelTrade, format, args...)
}

// Status logs market status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.log(LogLevelStatus, format, args...)
}

// LogCycleStart records the start of an accumulation or distribution cycle
func (l *Logger) LogCycleStart(phase string, price, balance, feeRate fmt.Stringer) {
	l.entry.WithFields(logrus.Fields{
		"kind":     string(LogLevelStatus),
		"phase":    phase,
		"price":    price.String(),
		"balance":  balance.String(),
		"fee_rate": feeRate.String(),
	}).Info("cycle started")
}

// LogOrderPlaced records an order submission
func (l *Logger) LogOrderPlaced(side, orderID string, price, size fmt.Stringer) {
	l.entry.WithFields(logrus.Fields{
		"kind":     string(LogLevelTrade),
		"side":     side,
		"order_id": orderID,
		"price":    price.String(),
		"size":     size.String(),
	}).Info("order placed")
}

// LogFill records a completed order
func (l *Logger) LogFill(side, orderID string, executedValue, fees, filledSize fmt.Stringer) {
	l.entry.WithFields(logrus.Fields{
		"kind":           string(LogLevelTrade),
		"side":           side,
		"order_id":       orderID,
		"executed_value": executedValue.String(),
		"fees":           fees.String(),
		"filled_size":    filledSize.String(),
	}).Info("order filled")
}

// LogFatal writes the structured record for an error that ends the run
func (l *Logger) LogFatal(err error) {
	fields := logrus.Fields{"kind": "FATAL", "category": string(boterrors.CategoryOf(err))}
	if botErr, ok := boterrors.AsBotError(err); ok {
		fields["component"] = botErr.Component
		fields["operation"] = botErr.Operation
		fields["message"] = botErr.Message
		if botErr.Underlying != nil {
			fields["underlying"] = botErr.Underlying.Error()
		}
		for k, v := range botErr.Context {
			fields["ctx_"+k] = v
		}
	}
	l.entry.WithFields(fields).WithError(err).Error("fatal error, terminating")
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
