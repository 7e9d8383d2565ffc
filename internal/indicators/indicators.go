// Package indicators provides the stateless numeric indicators used by the
// signal engine. Every function has a defined fallback for short or empty
// input and never panics mid-evaluation.
package indicators

import "math"

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average over the last period values.
// A series shorter than the period returns its last value; an empty series
// returns 0.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return values[len(values)-1]
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}

	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average with smoothing factor
// k = 2/(period+1), seeded from the first element. Seeding from the first
// sample rather than a period-length SMA biases early-window values toward
// that sample; the bias fades as more data arrives. Empty series returns 0.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 {
		return values[len(values)-1]
	}

	multiplier := 2.0 / float64(period+1)

	ema := values[0]
	for i := 1; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSIPeriod is the default lookback for RSI.
const RSIPeriod = 14

// RSI calculates the Relative Strength Index over the last period deltas.
// Fewer than period+1 points returns the neutral 50; zero average loss
// returns 100 (fully overbought). The result is always in [0, 100].
func RSI(values []float64, period int) float64 {
	if period <= 0 {
		period = RSIPeriod
	}
	if len(values) < period+1 {
		return 50.0 // Neutral RSI
	}

	gains := 0.0
	losses := 0.0

	for i := len(values) - period; i < len(values); i++ {
		change := values[i] - values[i-1]
		if !isFinite(change) {
			return 50.0
		}
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgGain == 0 && avgLoss == 0 {
		return 50.0 // No movement at all
	}
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
