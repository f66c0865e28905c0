package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// HealthChecker reports whether prices are still arriving
type HealthChecker struct {
	NopRecorder

	mu        sync.RWMutex
	started   time.Time
	lastTick  time.Time
	lastTrade time.Time
	lastPrice decimal.Decimal
	position  bool
	errors    []string
	maxErrors int
	staleness time.Duration
	now       func() time.Time
}

type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastTick     time.Time `json:"last_tick"`
	LastTrade    time.Time `json:"last_trade"`
	LastPrice    string    `json:"last_price"`
	PositionOpen bool      `json:"position_open"`
	Uptime       string    `json:"uptime"`
	Errors       []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded once no price arrived for staleness
func NewHealthChecker(staleness time.Duration) *HealthChecker {
	if staleness <= 0 {
		staleness = time.Minute
	}
	return &HealthChecker{
		started:   time.Now(),
		maxErrors: 10,
		staleness: staleness,
		now:       time.Now,
	}
}

func (h *HealthChecker) ObservePrice(product string, price decimal.Decimal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = h.now()
	h.lastPrice = price
}

func (h *HealthChecker) SetPositionOpen(product string, open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = open
}

func (h *HealthChecker) RecordFill(product, side string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTrade = h.now()
}

func (h *HealthChecker) RecordError(product, category string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, h.now().Format(time.RFC3339)+" "+category)
	if len(h.errors) > h.maxErrors {
		h.errors = h.errors[len(h.errors)-h.maxErrors:]
	}
}

// Status builds the current health report
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status := "healthy"
	if h.lastTick.IsZero() || now.Sub(h.lastTick) > h.staleness {
		status = "degraded"
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)
	return HealthStatus{
		Status:       status,
		Timestamp:    now,
		LastTick:     h.lastTick,
		LastTrade:    h.lastTrade,
		LastPrice:    h.lastPrice.String(),
		PositionOpen: h.position,
		Uptime:       now.Sub(h.started).Round(time.Second).String(),
		Errors:       errs,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()
	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}
