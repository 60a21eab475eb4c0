package marketdata

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDICATORS - precomputed technical columns attached to a Bar
// ═══════════════════════════════════════════════════════════════════════════════
//
// Adapted from the teacher's internal/indicators package (RSI/EMA/SMA math),
// retargeted from standalone float64 scoring helpers to populate
// types.Indicators on a window of closing prices.
// ═══════════════════════════════════════════════════════════════════════════════

// ComputeIndicators fills in MA5/MA10/MA20/MA60, RSI14, MACD and Bollinger
// bands for the last bar in closes, given its trailing window (oldest
// first, newest last == the bar being annotated).
func ComputeIndicators(closes []float64) types.Indicators {
	return types.Indicators{
		MA5:           decimalSMA(closes, 5),
		MA10:          decimalSMA(closes, 10),
		MA20:          decimalSMA(closes, 20),
		MA60:          decimalSMA(closes, 60),
		MACDDiff:      decimal.NewFromFloat(macdDiff(closes)),
		MACDSignal:    decimal.NewFromFloat(macdSignal(closes)),
		MACDHistogram: decimal.NewFromFloat(macdHistogram(closes)),
		RSI14:         decimal.NewFromFloat(rsi(closes, 14)),
		BollUpper:     decimalBoll(closes, 20, 2)[0],
		BollMiddle:    decimalBoll(closes, 20, 2)[1],
		BollLower:     decimalBoll(closes, 20, 2)[2],
	}
}

func decimalSMA(prices []float64, period int) decimal.Decimal {
	return decimal.NewFromFloat(sma(prices, period))
}

func sma(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return average(prices)
	}
	return average(prices[len(prices)-period:])
}

func ema(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return average(prices)
	}
	multiplier := 2.0 / float64(period+1)
	e := average(prices[:period])
	for i := period; i < len(prices); i++ {
		e = (prices[i]-e)*multiplier + e
	}
	return e
}

// rsi is the Relative Strength Index over period, Wilder-smoothed. Returns
// 50 (neutral) when there is not enough history.
func rsi(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}
	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}
	if len(gains) < period {
		return 50
	}
	avgGain := average(gains[:period])
	avgLoss := average(losses[:period])
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func macdDiff(prices []float64) float64 {
	return ema(prices, 12) - ema(prices, 26)
}

func macdSignal(prices []float64) float64 {
	return macdDiff(prices) * 0.9
}

func macdHistogram(prices []float64) float64 {
	return macdDiff(prices) - macdSignal(prices)
}

func decimalBoll(prices []float64, period int, numStdDev float64) [3]decimal.Decimal {
	mid := sma(prices, period)
	dev := stdDev(prices, period, mid)
	return [3]decimal.Decimal{
		decimal.NewFromFloat(mid + numStdDev*dev),
		decimal.NewFromFloat(mid),
		decimal.NewFromFloat(mid - numStdDev*dev),
	}
}

func stdDev(prices []float64, period int, mean float64) float64 {
	if len(prices) < period || period == 0 {
		return 0
	}
	window := prices[len(prices)-period:]
	var sumSq float64
	for _, p := range window {
		d := p - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(period))
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
