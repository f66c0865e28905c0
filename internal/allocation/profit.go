// Package allocation holds the fee-aware profit math and routes a share of
// realized profit to the deposit profile.
package allocation

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// RealizedProfit is what a sell returned over what the position cost
func RealizedProfit(executedValue, fees, acquiredCost decimal.Decimal) decimal.Decimal {
	return executedValue.Sub(fees).Sub(acquiredCost)
}

// AcquisitionCost is the quote spent on a buy including its fee
func AcquisitionCost(executedValue, fees decimal.Decimal) decimal.Decimal {
	return executedValue.Add(fees)
}

// ProjectedNetProceeds values size at the conservative sell price
// valley×(1−orderPriceDelta), net of the sell fee
func ProjectedNetProceeds(valley, orderPriceDelta, size, feeRate decimal.Decimal) decimal.Decimal {
	price := valley.Mul(one.Sub(orderPriceDelta))
	return price.Mul(size).Mul(one.Sub(feeRate))
}

// RequiredProceeds is the floor a sale must beat:
// acquiredCost×(1+minProfitDelta+2×feeRate)
func RequiredProceeds(acquiredCost, minProfitDelta, feeRate decimal.Decimal) decimal.Decimal {
	return acquiredCost.Mul(one.Add(minProfitDelta).Add(feeRate.Mul(decimal.NewFromInt(2))))
}

// ClearsProfitFloor reports whether selling size at the conservative price
// strictly exceeds the required proceeds
func ClearsProfitFloor(valley, orderPriceDelta, size, feeRate, acquiredCost, minProfitDelta decimal.Decimal) bool {
	return ProjectedNetProceeds(valley, orderPriceDelta, size, feeRate).
		GreaterThan(RequiredProceeds(acquiredCost, minProfitDelta, feeRate))
}
