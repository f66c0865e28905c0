package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// UpdateMetrics derives the summary figures from the trade list and balances
func (r *Report) UpdateMetrics() {
	r.Buys, r.Sells = 0, 0
	r.Profit, r.Transferred = decimal.Zero, decimal.Zero
	r.WinningTrades, r.LosingTrades = 0, 0

	for _, t := range r.Trades {
		switch t.Side {
		case "buy":
			r.Buys++
		case "sell":
			r.Sells++
			r.Profit = r.Profit.Add(t.Profit)
			r.Transferred = r.Transferred.Add(t.Transferred)
			if t.Profit.IsPositive() {
				r.WinningTrades++
			} else {
				r.LosingTrades++
			}
		}
	}

	r.FinalValue = r.FinalQuote.Add(r.FinalBase.Mul(r.LastPrice)).Add(r.Transferred)
	if r.Config.InitialBalance.IsPositive() {
		r.TotalReturn = r.FinalValue.Sub(r.Config.InitialBalance).
			Div(r.Config.InitialBalance).InexactFloat64()
	}
	r.ProfitFactor = r.CalculateProfitFactor()
	r.MaxDrawdown = r.CalculateMaxDrawdown()
}

// CalculateProfitFactor is gross profit over gross loss of the sells
func (r *Report) CalculateProfitFactor() float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, t := range r.Trades {
		if t.Side != "sell" {
			continue
		}
		pnl := t.Profit.InexactFloat64()
		if pnl > 0 {
			totalProfit += pnl
		} else {
			totalLoss += math.Abs(pnl)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// CalculateMaxDrawdown is the largest fall of account value between trades,
// valuing held base at each trade's price, as a fraction of the running peak
func (r *Report) CalculateMaxDrawdown() float64 {
	quote := r.Config.InitialBalance.InexactFloat64()
	base := 0.0
	peak := quote
	maxDD := 0.0

	for _, t := range r.Trades {
		price := t.Price.InexactFloat64()
		size := t.Size.InexactFloat64()
		value := t.ExecutedValue.InexactFloat64()
		fees := t.Fees.InexactFloat64()

		if t.Side == "buy" {
			quote -= value + fees
			base += size
		} else {
			// transferred profit still belongs to the account
			quote += value - fees
			base -= size
		}

		equity := quote + base*price
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// WinRate is the fraction of sells that made money
func (r *Report) WinRate() float64 {
	if r.Sells == 0 {
		return 0
	}
	return float64(r.WinningTrades) / float64(r.Sells)
}
