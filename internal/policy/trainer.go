package policy

import (
	"math"

	"github.com/rs/zerolog"
)

// OutcomeSample is one resolved trade used as training signal. Reward is the
// realized percentage return. NextContext is optional: without a true
// sequential transition the trainer reuses the sample's own state, which
// keeps the update a plain one-step bandit-style correction rather than a
// temporal-difference chain.
type OutcomeSample struct {
	Symbol      string   `json:"symbol"`
	Context     Context  `json:"context"`
	Action      string   `json:"action"`
	Reward      float64  `json:"reward"`
	NextContext *Context `json:"next_context,omitempty"`
}

// TrainReport summarizes one training pass.
type TrainReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// StateSample is a persisted outcome replayed by its stored state key.
// Outcome history carries the encoded key rather than the full market
// context, so replay skips the encoding step.
type StateSample struct {
	StateKey string  `json:"state_key"`
	Action   string  `json:"action"`
	Reward   float64 `json:"reward"`
}

// Trainer replays resolved outcomes into a policy. The batch trainer below
// is the default; a sequential trainer with real transition chains can be
// substituted without touching the callers.
type Trainer interface {
	Train(samples []OutcomeSample) TrainReport
	TrainStates(samples []StateSample) TrainReport
}

// BatchTrainer replays a batch of resolved outcomes in one pass. A malformed
// sample is logged and skipped; the pass always runs to completion.
type BatchTrainer struct {
	policy *Policy
	logger zerolog.Logger
}

// NewBatchTrainer creates a trainer bound to the policy.
func NewBatchTrainer(p *Policy, logger zerolog.Logger) *BatchTrainer {
	return &BatchTrainer{
		policy: p,
		logger: logger.With().Str("component", "trainer").Logger(),
	}
}

// Train applies one Q-update per sample.
func (t *BatchTrainer) Train(samples []OutcomeSample) TrainReport {
	var report TrainReport

	for _, sample := range samples {
		action, ok := ActionFromString(sample.Action)
		if !ok {
			t.logger.Warn().Str("symbol", sample.Symbol).Str("action", sample.Action).
				Msg("skipping outcome with unknown action")
			report.Skipped++
			continue
		}
		if math.IsNaN(sample.Reward) || math.IsInf(sample.Reward, 0) {
			t.logger.Warn().Str("symbol", sample.Symbol).Float64("reward", sample.Reward).
				Msg("skipping outcome with non-finite reward")
			report.Skipped++
			continue
		}

		state := EncodeState(sample.Context)
		nextState := state
		if sample.NextContext != nil {
			nextState = EncodeState(*sample.NextContext)
		}

		t.policy.Update(state, action, sample.Reward, nextState)
		report.Processed++
	}

	t.logger.Info().Int("processed", report.Processed).Int("skipped", report.Skipped).
		Msg("training batch complete")

	return report
}

// TrainStates applies one Q-update per persisted sample using its stored
// state key. The skip rules match Train.
func (t *BatchTrainer) TrainStates(samples []StateSample) TrainReport {
	var report TrainReport

	for _, sample := range samples {
		action, ok := ActionFromString(sample.Action)
		if !ok {
			t.logger.Warn().Str("state", sample.StateKey).Str("action", sample.Action).
				Msg("skipping outcome with unknown action")
			report.Skipped++
			continue
		}
		if math.IsNaN(sample.Reward) || math.IsInf(sample.Reward, 0) {
			t.logger.Warn().Str("state", sample.StateKey).Float64("reward", sample.Reward).
				Msg("skipping outcome with non-finite reward")
			report.Skipped++
			continue
		}

		t.policy.Update(sample.StateKey, action, sample.Reward, sample.StateKey)
		report.Processed++
	}

	t.logger.Info().Int("processed", report.Processed).Int("skipped", report.Skipped).
		Msg("replay batch complete")

	return report
}
