// Package signal merges the indicator view with the market-structure view
// into a trading recommendation. Neither signal family can unilaterally
// trigger a trade: a BUY or SELL requires both the indicator gate and the
// structure gate to pass.
package signal

import (
	"fmt"
	"math"
	"strings"

	"smc-signal-engine/internal/confluence"
	"smc-signal-engine/internal/indicators"
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/smc"
)

const (
	// Indicator sub-score parameters
	fullAgreementBonus = 28
	maCrossPoints      = 6
	emaAlignPoints     = 4
	rsiRoomPoints      = 2
	momentumPoints     = 2
	maxIndicatorScore  = 40

	// Decision gates
	indicatorGate = 18
	structureGate = 55
	maxConfidence = 99

	// Blend ratio between the indicator score (scaled to 0-100) and the
	// structure confidence
	indicatorBlend = 0.4
	structureBlend = 0.6
)

// Engine applies the decision rule for one instrument evaluation.
type Engine struct {
	cfg    Config
	scorer *confluence.Scorer
}

// NewEngine creates a decision engine with the given level configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.StopLossPercent <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:    cfg,
		scorer: confluence.NewScorer(),
	}
}

// sideScore is the additive indicator agreement for one trade direction.
type sideScore struct {
	score int
	full  bool
}

// Generate evaluates the series and the current candle into a trading
// recommendation. It never fails: insufficient history degrades to neutral
// indicator reads and a HOLD.
func (e *Engine) Generate(symbol string, series market.PriceSeries, candle market.Candle) *Result {
	analysis := e.scorer.Analyze(series)
	return e.decide(symbol, series, candle, analysis)
}

// GenerateWithAnalysis is Generate with a precomputed structure analysis,
// for callers that already ran the scorer over the same series.
func (e *Engine) GenerateWithAnalysis(symbol string, series market.PriceSeries, candle market.Candle, analysis *confluence.Analysis) *Result {
	return e.decide(symbol, series, candle, analysis)
}

func (e *Engine) decide(symbol string, series market.PriceSeries, candle market.Candle, analysis *confluence.Analysis) *Result {
	price := currentPrice(series, candle)

	snap := IndicatorSnapshot{
		RSI:    indicators.RSI(series.Closes, indicators.RSIPeriod),
		SMA20:  indicators.SMA(series.Closes, 20),
		EMA50:  indicators.EMA(series.Closes, 50),
		EMA200: indicators.EMA(series.Closes, 200),
	}
	change := series.Change()

	buy := scoreBuySide(price, change, snap)
	sell := scoreSellSide(price, change, snap)

	buyStructure := analysis.TrendBias == smc.Bullish ||
		(analysis.Score >= structureGate && (analysis.BOS == smc.Bullish || analysis.CHoCH == smc.Bullish))
	sellStructure := analysis.TrendBias == smc.Bearish ||
		(analysis.Score >= structureGate && (analysis.BOS == smc.Bearish || analysis.CHoCH == smc.Bearish))

	var sig Signal
	var chosen sideScore
	switch {
	case (buy.full || buy.score >= indicatorGate) && buyStructure:
		sig = Buy
		chosen = buy
	case (sell.full || sell.score >= indicatorGate) && sellStructure:
		sig = Sell
		chosen = sell
	default:
		sig = Hold
		chosen = buy
		if sell.score > buy.score {
			chosen = sell
		}
	}
	snap.Score = chosen.score

	confidence := blendConfidence(chosen.score, analysis.Score)

	result := &Result{
		Symbol:      symbol,
		Signal:      sig,
		Confidence:  confidence,
		Explanation: explain(sig, chosen, analysis),
		HitStatus:   HitActive,
		Indicators:  snap,
		Structure:   analysis,
	}

	if sig != Hold && price > 0 {
		result.StopLoss, result.Targets = e.levels(sig, price)
	}

	return result
}

// scoreBuySide scores long-side indicator agreement: price above both moving
// averages, EMA trend alignment, RSI below overbought, positive momentum.
// Full agreement earns the large bonus on top of the partial points.
func scoreBuySide(price, change float64, snap IndicatorSnapshot) sideScore {
	var s sideScore
	if price <= 0 {
		return s
	}

	aboveMAs := price > snap.SMA20 && price > snap.EMA50
	emaAligned := snap.EMA50 > snap.EMA200
	rsiRoom := snap.RSI < 70
	momentum := change > 0

	if aboveMAs {
		s.score += maCrossPoints
	}
	if emaAligned {
		s.score += emaAlignPoints
	}
	if rsiRoom {
		s.score += rsiRoomPoints
	}
	if momentum {
		s.score += momentumPoints
	}

	s.full = aboveMAs && emaAligned && rsiRoom && momentum
	if s.full {
		s.score += fullAgreementBonus
	}
	if s.score > maxIndicatorScore {
		s.score = maxIndicatorScore
	}

	return s
}

// scoreSellSide mirrors scoreBuySide for the short direction.
func scoreSellSide(price, change float64, snap IndicatorSnapshot) sideScore {
	var s sideScore
	if price <= 0 {
		return s
	}

	belowMAs := price < snap.SMA20 && price < snap.EMA50
	emaAligned := snap.EMA50 < snap.EMA200
	rsiRoom := snap.RSI > 30
	momentum := change < 0

	if belowMAs {
		s.score += maCrossPoints
	}
	if emaAligned {
		s.score += emaAlignPoints
	}
	if rsiRoom {
		s.score += rsiRoomPoints
	}
	if momentum {
		s.score += momentumPoints
	}

	s.full = belowMAs && emaAligned && rsiRoom && momentum
	if s.full {
		s.score += fullAgreementBonus
	}
	if s.score > maxIndicatorScore {
		s.score = maxIndicatorScore
	}

	return s
}

// blendConfidence combines the indicator sub-score (scaled to 0-100) with the
// structure confidence at the fixed 40/60 ratio, capped at 99.
func blendConfidence(indicatorScore, structureScore int) int {
	scaled := float64(indicatorScore) / float64(maxIndicatorScore) * 100
	c := int(math.Round(indicatorBlend*scaled + structureBlend*float64(structureScore)))
	if c > maxConfidence {
		c = maxConfidence
	}
	if c < 0 {
		c = 0
	}
	return c
}

// levels derives the stop-loss and profit targets as percentage offsets from
// the current price, targets ordered by ascending distance from entry.
func (e *Engine) levels(sig Signal, price float64) (float64, []float64) {
	targets := make([]float64, 0, len(e.cfg.TargetPercents))
	if sig == Buy {
		for _, pct := range e.cfg.TargetPercents {
			targets = append(targets, price*(1+pct/100))
		}
		return price * (1 - e.cfg.StopLossPercent/100), targets
	}
	for _, pct := range e.cfg.TargetPercents {
		targets = append(targets, price*(1-pct/100))
	}
	return price * (1 + e.cfg.StopLossPercent/100), targets
}

// EvaluateHit checks a produced result against a newer candle and returns a
// copy with the hit status updated. The stop is checked before the first
// target, so a whipsaw candle that touches both counts as stopped out.
func EvaluateHit(r *Result, candle market.Candle) *Result {
	out := *r
	out.HitStatus = HitActive

	if r.Signal == Hold || len(r.Targets) == 0 {
		return &out
	}

	switch r.Signal {
	case Buy:
		if candle.Low <= r.StopLoss {
			out.HitStatus = HitStop
		} else if candle.High >= r.Targets[0] {
			out.HitStatus = HitTarget
		}
	case Sell:
		if candle.High >= r.StopLoss {
			out.HitStatus = HitStop
		} else if candle.Low <= r.Targets[0] {
			out.HitStatus = HitTarget
		}
	}

	return &out
}

func currentPrice(series market.PriceSeries, candle market.Candle) float64 {
	if candle.Close > 0 {
		return candle.Close
	}
	return series.LastClose()
}

func explain(sig Signal, chosen sideScore, analysis *confluence.Analysis) string {
	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("indicator score %d/40", chosen.score))
	if chosen.full {
		parts = append(parts, "full indicator agreement")
	}
	parts = append(parts, fmt.Sprintf("structure %d/99 (%s)", analysis.Score, analysis.TrendBias))
	if len(analysis.Reasons) > 0 {
		parts = append(parts, strings.Join(analysis.Reasons, "; "))
	}
	return fmt.Sprintf("%s: %s", sig, strings.Join(parts, ", "))
}
