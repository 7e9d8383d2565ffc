// Package engine wires the full evaluation pipeline: indicators and market
// structure into a trading recommendation, the adaptive reward weight over
// its confidence, and the tabular policy's independent view of the same
// inputs. The reward memory and Q-table are the only state the engine holds
// across calls; both are injected so tests and tenants can run isolated
// instances.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smc-signal-engine/internal/adaptive"
	"smc-signal-engine/internal/market"
	"smc-signal-engine/internal/policy"
	"smc-signal-engine/internal/signal"
)

// Config aggregates the engine's tunables.
type Config struct {
	Signal signal.Config `json:"signal"`
	Policy policy.Config `json:"policy"`
}

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		Signal: signal.DefaultConfig(),
		Policy: policy.DefaultConfig(),
	}
}

// Evaluation is the complete output of one pipeline run.
type Evaluation struct {
	ID             string          `json:"id"`
	Result         *signal.Result  `json:"result"` // Adaptive-weighted confidence
	BaseConfidence int             `json:"base_confidence"`
	RewardWeight   float64         `json:"reward_weight"`
	Policy         policy.Response `json:"policy"`
	Context        policy.Context  `json:"context"`
	EvaluatedAt    time.Time       `json:"evaluated_at"`
}

// Engine runs evaluations and feeds realized outcomes back into the two
// learning layers.
type Engine struct {
	decision *signal.Engine
	reward   *adaptive.RewardModel
	policy   *policy.Policy
	trainer  policy.Trainer
	logger   zerolog.Logger
}

// New creates an engine around injected state objects.
func New(cfg Config, reward *adaptive.RewardModel, pol *policy.Policy, logger zerolog.Logger) *Engine {
	log := logger.With().Str("component", "engine").Logger()
	return &Engine{
		decision: signal.NewEngine(cfg.Signal),
		reward:   reward,
		policy:   pol,
		trainer:  policy.NewBatchTrainer(pol, logger),
		logger:   log,
	}
}

// Evaluate runs the full pipeline for one instrument. It never fails: short
// or empty history degrades to neutral reads and a HOLD.
func (e *Engine) Evaluate(symbol string, series market.PriceSeries, candle market.Candle) *Evaluation {
	base := e.decision.Generate(symbol, series, candle)

	ctx := policy.Context{
		RSI:                 base.Indicators.RSI,
		EMA50:               base.Indicators.EMA50,
		EMA200:              base.Indicators.EMA200,
		SMA20:               base.Indicators.SMA20,
		TrendBias:           base.Structure.TrendBias,
		StructureConfidence: base.Structure.Score,
		Signal:              string(base.Signal),
	}

	weight := e.reward.Weight(symbol)
	weighted := *base
	weighted.Confidence = adaptive.ApplyWeight(base.Confidence, weight)
	if weighted.Confidence > 99 {
		weighted.Confidence = 99
	}

	polResp := e.policy.Evaluate(ctx)

	eval := &Evaluation{
		ID:             uuid.NewString(),
		Result:         &weighted,
		BaseConfidence: base.Confidence,
		RewardWeight:   weight,
		Policy:         polResp,
		Context:        ctx,
		EvaluatedAt:    time.Now().UTC(),
	}

	e.logger.Debug().
		Str("symbol", symbol).
		Str("signal", string(weighted.Signal)).
		Int("confidence", weighted.Confidence).
		Float64("reward_weight", weight).
		Str("policy_signal", polResp.Signal).
		Str("state", polResp.StateKey).
		Msg("evaluation complete")

	return eval
}

// RecordOutcome feeds one resolved trade back into both learning layers:
// the reward weight steps on the win/loss sign, and the Q-table row for the
// trade's state absorbs the realized percentage return. Without a true
// sequential transition the next state is the same state.
func (e *Engine) RecordOutcome(symbol string, ctx policy.Context, action string, returnPct float64) error {
	act, ok := policy.ActionFromString(action)
	if !ok {
		return fmt.Errorf("unknown action %q for %s", action, symbol)
	}

	outcome := adaptive.Loss
	if returnPct > 0 {
		outcome = adaptive.Win
	}
	rec := e.reward.Update(symbol, outcome)

	state := policy.EncodeState(ctx)
	e.policy.Update(state, act, returnPct, state)

	e.logger.Info().
		Str("symbol", symbol).
		Str("action", action).
		Float64("return_pct", returnPct).
		Float64("reward_weight", rec.Weight).
		Str("state", state).
		Msg("outcome recorded")

	return nil
}

// TrainBatch replays a set of resolved outcomes through the policy trainer
// in one permissive pass.
func (e *Engine) TrainBatch(samples []policy.OutcomeSample) policy.TrainReport {
	return e.trainer.Train(samples)
}

// TrainPersisted replays outcomes loaded from history through the policy by
// their stored state keys. Reward weights are untouched: they stepped when
// each outcome was first reported.
func (e *Engine) TrainPersisted(samples []policy.StateSample) policy.TrainReport {
	return e.trainer.TrainStates(samples)
}

// Reward exposes the reward model for persistence snapshots.
func (e *Engine) Reward() *adaptive.RewardModel {
	return e.reward
}

// Policy exposes the Q-table policy for persistence snapshots.
func (e *Engine) Policy() *policy.Policy {
	return e.policy
}
