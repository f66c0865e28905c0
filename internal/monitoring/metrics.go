package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Recorder receives engine events. Implementations must be safe for concurrent use.
type Recorder interface {
	ObservePrice(product string, price decimal.Decimal)
	ObserveExtremes(product string, peak, valley decimal.Decimal)
	ObserveFeeRate(product string, rate decimal.Decimal)
	SetPositionOpen(product string, open bool)
	RecordOrder(product, side, outcome string)
	RecordFill(product, side string)
	RecordProfit(product string, profit decimal.Decimal)
	RecordTransfer(product, result string)
	RecordError(product, category string)
}

// Metrics exports engine events to Prometheus
type Metrics struct {
	ordersTotal    *prometheus.CounterVec
	fillsTotal     *prometheus.CounterVec
	transfersTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	realizedProfit *prometheus.GaugeVec
	currentPrice   *prometheus.GaugeVec
	extremes       *prometheus.GaugeVec
	feeRate        *prometheus.GaugeVec
	positionOpen   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_bot_orders_total",
				Help: "Orders placed, by side and outcome",
			},
			[]string{"product", "side", "outcome"},
		),
		fillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_bot_fills_total",
				Help: "Filled orders by side",
			},
			[]string{"product", "side"},
		),
		transfersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_bot_transfers_total",
				Help: "Profit transfers by result",
			},
			[]string{"product", "result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_bot_errors_total",
				Help: "Errors by category",
			},
			[]string{"product", "category"},
		),
		realizedProfit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentum_bot_realized_profit",
				Help: "Cumulative realized profit in quote currency",
			},
			[]string{"product"},
		),
		currentPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentum_bot_current_price",
				Help: "Latest price observed by the engine",
			},
			[]string{"product"},
		),
		extremes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentum_bot_extreme_price",
				Help: "Current peak and valley of the active cycle",
			},
			[]string{"product", "kind"},
		),
		feeRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentum_bot_fee_rate",
				Help: "Highest of the maker and taker fee rates",
			},
			[]string{"product"},
		),
		positionOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "momentum_bot_position_open",
				Help: "1 while a position is held",
			},
			[]string{"product"},
		),
	}

	reg.MustRegister(
		m.ordersTotal, m.fillsTotal, m.transfersTotal, m.errorsTotal,
		m.realizedProfit, m.currentPrice, m.extremes, m.feeRate, m.positionOpen,
	)
	return m
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePrice(product string, price decimal.Decimal) {
	m.currentPrice.WithLabelValues(product).Set(price.InexactFloat64())
}

func (m *Metrics) ObserveExtremes(product string, peak, valley decimal.Decimal) {
	m.extremes.WithLabelValues(product, "peak").Set(peak.InexactFloat64())
	m.extremes.WithLabelValues(product, "valley").Set(valley.InexactFloat64())
}

func (m *Metrics) ObserveFeeRate(product string, rate decimal.Decimal) {
	m.feeRate.WithLabelValues(product).Set(rate.InexactFloat64())
}

func (m *Metrics) SetPositionOpen(product string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.positionOpen.WithLabelValues(product).Set(v)
}

func (m *Metrics) RecordOrder(product, side, outcome string) {
	m.ordersTotal.WithLabelValues(product, side, outcome).Inc()
}

func (m *Metrics) RecordFill(product, side string) {
	m.fillsTotal.WithLabelValues(product, side).Inc()
}

func (m *Metrics) RecordProfit(product string, profit decimal.Decimal) {
	m.realizedProfit.WithLabelValues(product).Add(profit.InexactFloat64())
}

func (m *Metrics) RecordTransfer(product, result string) {
	m.transfersTotal.WithLabelValues(product, result).Inc()
}

func (m *Metrics) RecordError(product, category string) {
	m.errorsTotal.WithLabelValues(product, category).Inc()
}

// NopRecorder ignores every event
type NopRecorder struct{}

func (NopRecorder) ObservePrice(string, decimal.Decimal)                     {}
func (NopRecorder) ObserveExtremes(string, decimal.Decimal, decimal.Decimal) {}
func (NopRecorder) ObserveFeeRate(string, decimal.Decimal)                   {}
func (NopRecorder) SetPositionOpen(string, bool)                             {}
func (NopRecorder) RecordOrder(string, string, string)                       {}
func (NopRecorder) RecordFill(string, string)                                {}
func (NopRecorder) RecordProfit(string, decimal.Decimal)                     {}
func (NopRecorder) RecordTransfer(string, string)                            {}
func (NopRecorder) RecordError(string, string)                               {}

// Multi fans events out to several recorders
type Multi []Recorder

func (m Multi) ObservePrice(p string, price decimal.Decimal) {
	for _, r := range m {
		r.ObservePrice(p, price)
	}
}

func (m Multi) ObserveExtremes(p string, peak, valley decimal.Decimal) {
	for _, r := range m {
		r.ObserveExtremes(p, peak, valley)
	}
}

func (m Multi) ObserveFeeRate(p string, rate decimal.Decimal) {
	for _, r := range m {
		r.ObserveFeeRate(p, rate)
	}
}

func (m Multi) SetPositionOpen(p string, open bool) {
	for _, r := range m {
		r.SetPositionOpen(p, open)
	}
}

func (m Multi) RecordOrder(p, side, outcome string) {
	for _, r := range m {
		r.RecordOrder(p, side, outcome)
	}
}

func (m Multi) RecordFill(p, side string) {
	for _, r := range m {
		r.RecordFill(p, side)
	}
}

func (m Multi) RecordProfit(p string, profit decimal.Decimal) {
	for _, r := range m {
		r.RecordProfit(p, profit)
	}
}

func (m Multi) RecordTransfer(p, result string) {
	for _, r := range m {
		r.RecordTransfer(p, result)
	}
}

func (m Multi) RecordError(p, category string) {
	for _, r := range m {
		r.RecordError(p, category)
	}
}
