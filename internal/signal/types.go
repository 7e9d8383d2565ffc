package signal

import "smc-signal-engine/internal/confluence"

// Signal is the discrete trading recommendation.
type Signal string

const (
	Buy  Signal = "BUY"
	Sell Signal = "SELL"
	Hold Signal = "HOLD"
)

// HitStatus tracks whether a produced signal's levels have been reached.
type HitStatus string

const (
	HitActive HitStatus = "ACTIVE"
	HitTarget HitStatus = "TARGET_HIT"
	HitStop   HitStatus = "STOP_HIT"
)

// IndicatorSnapshot captures the indicator reads behind one evaluation.
type IndicatorSnapshot struct {
	RSI    float64 `json:"rsi"`
	SMA20  float64 `json:"sma20"`
	EMA50  float64 `json:"ema50"`
	EMA200 float64 `json:"ema200"`
	Score  int     `json:"score"` // 0..40, chosen side
}

// Result is the immutable outcome of one evaluation. A new evaluation
// produces a new Result; existing results are never mutated.
type Result struct {
	Symbol      string               `json:"symbol"`
	Signal      Signal               `json:"signal"`
	Confidence  int                  `json:"confidence"` // 0..99
	StopLoss    float64              `json:"stoploss"`
	Targets     []float64            `json:"targets"` // Ascending distance from entry
	Explanation string               `json:"explanation"`
	HitStatus   HitStatus            `json:"hit_status"`
	Indicators  IndicatorSnapshot    `json:"indicators"`
	Structure   *confluence.Analysis `json:"structure"`
}

// Config holds the tunable decision parameters. Stop and target offsets are
// deployment-specific (scalp deployments run tighter stops than swing), so
// they are configuration rather than constants.
type Config struct {
	StopLossPercent float64   `json:"stop_loss_percent"`
	TargetPercents  []float64 `json:"target_percents"`
}

// DefaultConfig returns the standard 1.5% stop with laddered targets.
func DefaultConfig() Config {
	return Config{
		StopLossPercent: 1.5,
		TargetPercents:  []float64{1.5, 3.0, 4.5},
	}
}
