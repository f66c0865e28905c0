package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordOrder("BTC-USD", "buy", "filled")
	m.RecordOrder("BTC-USD", "buy", "filled")
	m.RecordOrder("BTC-USD", "sell", "timed_out")
	m.RecordFill("BTC-USD", "buy")
	m.RecordProfit("BTC-USD", decimal.RequireFromString("2.5"))
	m.RecordProfit("BTC-USD", decimal.RequireFromString("1.5"))
	m.SetPositionOpen("BTC-USD", true)
	m.ObserveExtremes("BTC-USD", decimal.NewFromInt(110), decimal.NewFromInt(105))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersTotal.WithLabelValues("BTC-USD", "buy", "filled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersTotal.WithLabelValues("BTC-USD", "sell", "timed_out")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.realizedProfit.WithLabelValues("BTC-USD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.positionOpen.WithLabelValues("BTC-USD")))
	assert.Equal(t, 105.0, testutil.ToFloat64(m.extremes.WithLabelValues("BTC-USD", "valley")))

	expected := `
# HELP momentum_bot_fills_total Filled orders by side
# TYPE momentum_bot_fills_total counter
momentum_bot_fills_total{product="BTC-USD",side="buy"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "momentum_bot_fills_total"))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObservePrice("BTC-USD", decimal.NewFromInt(42))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `momentum_bot_current_price{product="BTC-USD"} 42`)
}

func TestMulti_FansOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	h := NewHealthChecker(time.Minute)

	var r Recorder = Multi{m, h, NopRecorder{}}
	r.RecordError("BTC-USD", "TRANSIENT")
	r.ObservePrice("BTC-USD", decimal.NewFromInt(1))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("BTC-USD", "TRANSIENT")))
	assert.Len(t, h.Status().Errors, 1)
	assert.Equal(t, "1", h.Status().LastPrice)
}

func TestHealthChecker_Staleness(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHealthChecker(time.Minute)
	h.now = func() time.Time { return now }

	assert.Equal(t, "degraded", h.Status().Status)

	h.ObservePrice("BTC-USD", decimal.NewFromInt(100))
	assert.Equal(t, "healthy", h.Status().Status)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	now = now.Add(2 * time.Minute)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
}
