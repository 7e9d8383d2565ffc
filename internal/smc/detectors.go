// Package smc implements the Smart Money Concept market-structure detectors:
// fair value gaps, order blocks, volume surges, liquidity sweeps, mitigation
// and breaker blocks, break of structure and change of character.
//
// Each detector is a pure function over trailing windows of highs, lows,
// closes and volumes. Every detector has a minimum window length and returns
// its no-signal value (false or Neutral) when data is insufficient or
// non-finite. Detectors never raise.
package smc

import "math"

// Direction is the ternary outcome of a directional detector.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// Detector holds the tunable thresholds for structure detection.
type Detector struct {
	minGapPercent   float64 // Minimum fair value gap size (% of price)
	blockDeviation  float64 // Order block deviation from 5-bar mean (%)
	surgeMultiplier float64 // Volume surge vs 10-bar average
	bosThreshold    float64 // Break of structure margin (%)
}

// NewDetector creates a detector with the standard thresholds.
func NewDetector() *Detector {
	return &Detector{
		minGapPercent:   0.5,
		blockDeviation:  1.0,
		surgeMultiplier: 1.5,
		bosThreshold:    0.2,
	}
}

// ============================================================================
// FAIR VALUE GAP
// ============================================================================

// FairValueGap reports whether the latest three bars leave an unfilled gap:
// the newest bar's low sits above the high from two bars back (or its high
// below the low from two bars back) by more than minGapPercent of the
// reference price.
func (d *Detector) FairValueGap(highs, lows []float64) bool {
	n := len(highs)
	if n < 3 || len(lows) < 3 || n != len(lows) {
		return false
	}

	refHigh := highs[n-3]
	refLow := lows[n-3]
	curHigh := highs[n-1]
	curLow := lows[n-1]
	if !finite(refHigh, refLow, curHigh, curLow) || refHigh <= 0 || refLow <= 0 {
		return false
	}

	// Bullish gap: newest low clears the high two bars back
	if curLow > refHigh && ((curLow-refHigh)/refHigh)*100 > d.minGapPercent {
		return true
	}

	// Bearish gap: newest high stays under the low two bars back
	if curHigh < refLow && ((refLow-curHigh)/refLow)*100 > d.minGapPercent {
		return true
	}

	return false
}

// ============================================================================
// ORDER BLOCK
// ============================================================================

// OrderBlock classifies the latest close against the mean of the last 5
// closes: more than blockDeviation percent above is Bullish, below is
// Bearish.
func (d *Detector) OrderBlock(closes []float64) Direction {
	if len(closes) < 5 {
		return Neutral
	}

	sum := 0.0
	for i := len(closes) - 5; i < len(closes); i++ {
		if !finite(closes[i]) {
			return Neutral
		}
		sum += closes[i]
	}
	mean := sum / 5

	if mean <= 0 {
		return Neutral
	}

	latest := closes[len(closes)-1]
	deviation := ((latest - mean) / mean) * 100

	if deviation > d.blockDeviation {
		return Bullish
	}
	if deviation < -d.blockDeviation {
		return Bearish
	}

	return Neutral
}

// ============================================================================
// VOLUME SURGE
// ============================================================================

// VolumeSurge reports whether the latest of the last 10 volumes exceeds
// surgeMultiplier times their average.
func (d *Detector) VolumeSurge(volumes []float64) bool {
	if len(volumes) < 10 {
		return false
	}

	sum := 0.0
	for i := len(volumes) - 10; i < len(volumes); i++ {
		if !finite(volumes[i]) || volumes[i] < 0 {
			return false
		}
		sum += volumes[i]
	}
	avg := sum / 10
	if avg <= 0 {
		return false
	}

	return volumes[len(volumes)-1] > avg*d.surgeMultiplier
}

// ============================================================================
// LIQUIDITY SWEEP
// ============================================================================

// LiquiditySweep detects a stop hunt: the latest bar pokes above the highest
// high of the prior 6 bars but closes back below it (Bearish), or pokes
// below the lowest low of the prior 6 bars and closes back above it
// (Bullish).
func (d *Detector) LiquiditySweep(highs, lows, closes []float64) Direction {
	n := len(closes)
	if n < 7 || len(highs) != n || len(lows) != n {
		return Neutral
	}

	recentHigh := maxOf(highs[n-7 : n-1])
	recentLow := minOf(lows[n-7 : n-1])
	curHigh := highs[n-1]
	curLow := lows[n-1]
	close := closes[n-1]
	if !finite(recentHigh, recentLow, curHigh, curLow, close) {
		return Neutral
	}

	if curHigh > recentHigh && close < recentHigh {
		return Bearish
	}
	if curLow < recentLow && close > recentLow {
		return Bullish
	}

	return Neutral
}

// ============================================================================
// MITIGATION BLOCK
// ============================================================================

// MitigationBlock compares extremes across two adjacent 5-bar windows and
// classifies continuation bias: both the highs and the lows stepping up is
// Bullish continuation, both stepping down is Bearish.
func (d *Detector) MitigationBlock(highs, lows []float64) Direction {
	n := len(highs)
	if n < 10 || len(lows) != n {
		return Neutral
	}

	priorHigh := maxOf(highs[n-10 : n-5])
	priorLow := minOf(lows[n-10 : n-5])
	recentHigh := maxOf(highs[n-5:])
	recentLow := minOf(lows[n-5:])
	if !finite(priorHigh, priorLow, recentHigh, recentLow) {
		return Neutral
	}

	if recentHigh > priorHigh && recentLow > priorLow {
		return Bullish
	}
	if recentHigh < priorHigh && recentLow < priorLow {
		return Bearish
	}

	return Neutral
}

// ============================================================================
// BREAKER BLOCK
// ============================================================================

// BreakerBlock detects a failed break across two adjacent 4-bar windows: the
// recent window trades beyond the prior window's extreme but the latest close
// falls back inside, flipping the bias (reversal).
func (d *Detector) BreakerBlock(highs, lows, closes []float64) Direction {
	n := len(closes)
	if n < 8 || len(highs) != n || len(lows) != n {
		return Neutral
	}

	priorHigh := maxOf(highs[n-8 : n-4])
	priorLow := minOf(lows[n-8 : n-4])
	recentHigh := maxOf(highs[n-4:])
	recentLow := minOf(lows[n-4:])
	close := closes[n-1]
	if !finite(priorHigh, priorLow, recentHigh, recentLow, close) {
		return Neutral
	}

	if recentHigh > priorHigh && close < priorHigh {
		return Bearish
	}
	if recentLow < priorLow && close > priorLow {
		return Bullish
	}

	return Neutral
}

// ============================================================================
// BREAK OF STRUCTURE
// ============================================================================

// BreakOfStructure reports Bullish when the latest high exceeds the high
// three bars back by more than bosThreshold percent, Bearish on the mirrored
// low break. The high side is evaluated first.
func (d *Detector) BreakOfStructure(highs, lows []float64) Direction {
	n := len(highs)
	if n < 4 || len(lows) != n {
		return Neutral
	}

	refHigh := highs[n-4]
	refLow := lows[n-4]
	if !finite(refHigh, refLow, highs[n-1], lows[n-1]) || refHigh <= 0 || refLow <= 0 {
		return Neutral
	}

	if highs[n-1] > refHigh*(1+d.bosThreshold/100) {
		return Bullish
	}
	if lows[n-1] < refLow*(1-d.bosThreshold/100) {
		return Bearish
	}

	return Neutral
}

// ============================================================================
// CHANGE OF CHARACTER
// ============================================================================

// ChangeOfCharacter requires exactly one of a high break or a low break
// relative to the bar three back. Both or neither breaking yields Neutral.
func (d *Detector) ChangeOfCharacter(highs, lows []float64) Direction {
	n := len(highs)
	if n < 4 || len(lows) != n {
		return Neutral
	}

	if !finite(highs[n-4], lows[n-4], highs[n-1], lows[n-1]) {
		return Neutral
	}

	highBreak := highs[n-1] > highs[n-4]
	lowBreak := lows[n-1] < lows[n-4]

	if highBreak && !lowBreak {
		return Bullish
	}
	if lowBreak && !highBreak {
		return Bearish
	}

	return Neutral
}

// Helper functions

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
