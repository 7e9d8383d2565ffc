// Package confluence combines the market-structure detector outputs into a
// single 0-99 structure confidence, a trend bias, and a premium/discount zone
// classification.
package confluence

import (
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/smc"
)

// Zone classifies where price sits within its recent high/low range.
type Zone string

const (
	ZonePremium  Zone = "PREMIUM"  // Above the range midpoint
	ZoneDiscount Zone = "DISCOUNT" // Below the range midpoint
	ZoneUnknown  Zone = "UNKNOWN"  // Not enough range data
)

// Fixed additive weights. Structure breaks contribute most; the zone bonus
// applies only when the range position aligns with the trend bias.
const (
	weightBOS         = 22
	weightCHoCH       = 20
	weightSweep       = 12
	weightVolumeSurge = 10
	weightOrderBlock  = 10
	weightMitigation  = 8
	weightBreaker     = 6
	weightFVG         = 5
	weightZoneBonus   = 10

	maxScore = 99

	zonePeriod = 20
)

// Analysis is the combined structure view for one evaluation.
type Analysis struct {
	Score     int           `json:"score"` // 0..99
	TrendBias smc.Direction `json:"trend_bias"`
	Zone      Zone          `json:"zone"`

	FVG            bool          `json:"fvg"`
	OrderBlock     smc.Direction `json:"order_block"`
	VolumeSurge    bool          `json:"volume_surge"`
	LiquiditySweep smc.Direction `json:"liquidity_sweep"`
	Mitigation     smc.Direction `json:"mitigation"`
	Breaker        smc.Direction `json:"breaker"`
	BOS            smc.Direction `json:"bos"`
	CHoCH          smc.Direction `json:"choch"`

	Reasons []string `json:"reasons"`
}

// Scorer runs the detector family and scores the confluence.
type Scorer struct {
	detector *smc.Detector
}

// NewScorer creates a scorer with the standard detector thresholds.
func NewScorer() *Scorer {
	return &Scorer{detector: smc.NewDetector()}
}

// Analyze runs every detector over the series and produces the combined
// structure analysis. Short or empty series simply leave detectors at their
// no-signal values and score 0.
func (s *Scorer) Analyze(series market.PriceSeries) *Analysis {
	a := &Analysis{
		Zone:    ZoneUnknown,
		Reasons: make([]string, 0, 8),
	}

	a.FVG = s.detector.FairValueGap(series.Highs, series.Lows)
	a.OrderBlock = s.detector.OrderBlock(series.Closes)
	a.VolumeSurge = s.detector.VolumeSurge(series.Volumes)
	a.LiquiditySweep = s.detector.LiquiditySweep(series.Highs, series.Lows, series.Closes)
	a.Mitigation = s.detector.MitigationBlock(series.Highs, series.Lows)
	a.Breaker = s.detector.BreakerBlock(series.Highs, series.Lows, series.Closes)
	a.BOS = s.detector.BreakOfStructure(series.Highs, series.Lows)
	a.CHoCH = s.detector.ChangeOfCharacter(series.Highs, series.Lows)

	a.TrendBias = trendBias(a.BOS, a.CHoCH)
	a.Zone = classifyZone(series)

	score := 0
	if a.BOS != smc.Neutral {
		score += weightBOS
		a.Reasons = append(a.Reasons, "Break of structure: "+string(a.BOS))
	}
	if a.CHoCH != smc.Neutral {
		score += weightCHoCH
		a.Reasons = append(a.Reasons, "Change of character: "+string(a.CHoCH))
	}
	if a.LiquiditySweep != smc.Neutral {
		score += weightSweep
		a.Reasons = append(a.Reasons, "Liquidity sweep: "+string(a.LiquiditySweep))
	}
	if a.VolumeSurge {
		score += weightVolumeSurge
		a.Reasons = append(a.Reasons, "Volume surge")
	}
	if a.OrderBlock != smc.Neutral {
		score += weightOrderBlock
		a.Reasons = append(a.Reasons, "Order block: "+string(a.OrderBlock))
	}
	if a.Mitigation != smc.Neutral {
		score += weightMitigation
		a.Reasons = append(a.Reasons, "Mitigation block: "+string(a.Mitigation))
	}
	if a.Breaker != smc.Neutral {
		score += weightBreaker
		a.Reasons = append(a.Reasons, "Breaker block: "+string(a.Breaker))
	}
	if a.FVG {
		score += weightFVG
		a.Reasons = append(a.Reasons, "Fair value gap")
	}

	if zoneAligned(a.Zone, a.TrendBias) {
		score += weightZoneBonus
		a.Reasons = append(a.Reasons, "Zone aligned with trend bias")
	}

	if score > maxScore {
		score = maxScore
	}
	a.Score = score

	return a
}

// trendBias derives the bias from the structural signals. BOS is checked
// before CHoCH, and when the two disagree BULLISH wins by evaluation order.
// That asymmetry is inherited behavior and kept as an explicit first-match
// tie-break.
func trendBias(bos, choch smc.Direction) smc.Direction {
	if bos == smc.Bullish || choch == smc.Bullish {
		return smc.Bullish
	}
	if bos == smc.Bearish || choch == smc.Bearish {
		return smc.Bearish
	}
	return smc.Neutral
}

// classifyZone places the latest close within its recent high/low range:
// below the midpoint is discount, above is premium.
func classifyZone(series market.PriceSeries) Zone {
	n := len(series.Highs)
	if n == 0 || len(series.Lows) != n || len(series.Closes) == 0 {
		return ZoneUnknown
	}

	period := zonePeriod
	if n < period {
		period = n
	}

	hi := series.Highs[n-period]
	lo := series.Lows[n-period]
	for i := n - period; i < n; i++ {
		if series.Highs[i] > hi {
			hi = series.Highs[i]
		}
		if series.Lows[i] < lo {
			lo = series.Lows[i]
		}
	}

	if hi <= lo {
		return ZoneUnknown
	}

	mid := (hi + lo) / 2
	if series.LastClose() < mid {
		return ZoneDiscount
	}
	return ZonePremium
}

func zoneAligned(zone Zone, bias smc.Direction) bool {
	return (zone == ZoneDiscount && bias == smc.Bullish) ||
		(zone == ZonePremium && bias == smc.Bearish)
}
