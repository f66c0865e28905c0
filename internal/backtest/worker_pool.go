package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SweepGrid spans the buy and sell deltas to try
type SweepGrid struct {
	BuyDeltas  []decimal.Decimal
	SellDeltas []decimal.Decimal
}

// DefaultSweepGrid is 0.5% to 5% in 0.5% steps on both sides
func DefaultSweepGrid() SweepGrid {
	var steps []decimal.Decimal
	for i := int64(1); i <= 10; i++ {
		steps = append(steps, decimal.New(5*i, -3))
	}
	return SweepGrid{BuyDeltas: steps, SellDeltas: steps}
}

// Size is the number of combinations in the grid
func (g SweepGrid) Size() int {
	return len(g.BuyDeltas) * len(g.SellDeltas)
}

// BacktestJob represents a single backtest task
type BacktestJob struct {
	ID     string
	Config BacktestConfig
}

// BacktestResult represents the result of a backtest job
type BacktestResult struct {
	ID       string
	Report   *Report
	Duration time.Duration
	Error    error
}

// Jobs expands the grid over base
func (g SweepGrid) Jobs(base BacktestConfig) []BacktestJob {
	jobs := make([]BacktestJob, 0, g.Size())
	for _, buy := range g.BuyDeltas {
		for _, sell := range g.SellDeltas {
			cfg := base
			cfg.Trading.BuyDelta = buy
			cfg.Trading.SellDelta = sell
			jobs = append(jobs, BacktestJob{ID: generateJobID(buy, sell), Config: cfg})
		}
	}
	return jobs
}

// Sweep runs every grid combination over the same prices with at most
// workers replays at once, and ranks the results by profit, best first.
// A failing job is reported in its result; the sweep itself fails only on
// context cancellation.
func Sweep(ctx context.Context, base BacktestConfig, grid SweepGrid, prices []decimal.Decimal, workers int, progress *ProgressTracker) ([]BacktestResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := grid.Jobs(base)
	results := make([]BacktestResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = processJob(ctx, job, prices)
			if progress != nil {
				progress.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Rank(results)
	return results, nil
}

// processJob processes a single backtest job
func processJob(ctx context.Context, job BacktestJob, prices []decimal.Decimal) BacktestResult {
	start := time.Now()
	report, err := Run(ctx, job.Config, prices)
	return BacktestResult{
		ID:       job.ID,
		Report:   report,
		Duration: time.Since(start),
		Error:    err,
	}
}

// Rank orders results by realized profit, failures last
func Rank(results []BacktestResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.Report == nil) != (b.Report == nil) {
			return a.Report != nil
		}
		if a.Report == nil {
			return false
		}
		return a.Report.Profit.GreaterThan(b.Report.Profit)
	})
}

// generateJobID generates a readable job id from the deltas
func generateJobID(buy, sell decimal.Decimal) string {
	return fmt.Sprintf("buy_%s_sell_%s", buy.String(), sell.String())
}

// ProgressTracker tracks the progress of batch processing
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}
	return pt.completed, pt.total, progress, elapsed
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
