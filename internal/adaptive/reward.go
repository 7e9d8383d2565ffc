// Package adaptive maintains the per-instrument reward memory: a win/loss
// record and a multiplicative confidence weight reflecting how well past
// signals for that instrument worked out.
package adaptive

import (
	"math"
	"sync"
)

// Outcome is the realized result of a resolved trade.
type Outcome string

const (
	Win  Outcome = "WIN"
	Loss Outcome = "LOSS"
)

// Reward weight bounds and the per-event step. Drift is monotonic per event;
// the weight is a reputation score, not a statistical estimator.
const (
	minWeight     = 0.5
	maxWeight     = 2.0
	neutralWeight = 1.0
	weightStep    = 0.05
)

// Memory is the per-instrument record.
type Memory struct {
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Weight float64 `json:"weight"` // in [0.5, 2.0]
}

// RewardModel owns the reward memories for all instruments. Updates to the
// same instrument must be serialized; the model guards its map with a single
// RWMutex.
type RewardModel struct {
	mu     sync.RWMutex
	memory map[string]*Memory
}

// NewRewardModel creates an empty reward model.
func NewRewardModel() *RewardModel {
	return &RewardModel{memory: make(map[string]*Memory)}
}

// Update records a realized outcome for the instrument, creating a neutral
// record on first sight. WIN steps the weight up toward 2.0, LOSS steps it
// down toward 0.5.
func (m *RewardModel) Update(symbol string, outcome Outcome) Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.memory[symbol]
	if !ok {
		rec = &Memory{Weight: neutralWeight}
		m.memory[symbol] = rec
	}

	switch outcome {
	case Win:
		rec.Wins++
		rec.Weight += weightStep
		if rec.Weight > maxWeight {
			rec.Weight = maxWeight
		}
	case Loss:
		rec.Losses++
		rec.Weight -= weightStep
		if rec.Weight < minWeight {
			rec.Weight = minWeight
		}
	}

	return *rec
}

// Weight returns the instrument's reward weight, or the neutral 1.0 for an
// instrument that has no recorded outcomes.
func (m *RewardModel) Weight(symbol string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.memory[symbol]; ok {
		return rec.Weight
	}
	return neutralWeight
}

// Get returns a copy of the instrument's memory and whether it exists.
func (m *RewardModel) Get(symbol string) (Memory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.memory[symbol]; ok {
		return *rec, true
	}
	return Memory{Weight: neutralWeight}, false
}

// Snapshot returns a copy of the full reward memory for persistence.
func (m *RewardModel) Snapshot() map[string]Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Memory, len(m.memory))
	for k, v := range m.memory {
		out[k] = *v
	}
	return out
}

// Restore replaces the model's state with a persisted snapshot. Weights are
// clamped back into bounds in case the snapshot predates a bounds change.
func (m *RewardModel) Restore(snapshot map[string]Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memory = make(map[string]*Memory, len(snapshot))
	for k, v := range snapshot {
		rec := v
		if rec.Weight == 0 {
			rec.Weight = neutralWeight
		}
		if rec.Weight < minWeight {
			rec.Weight = minWeight
		}
		if rec.Weight > maxWeight {
			rec.Weight = maxWeight
		}
		m.memory[k] = &rec
	}
}

// ApplyWeight scales a base confidence by the reward weight, clamped to
// [0, 100].
func ApplyWeight(base int, weight float64) int {
	scaled := int(math.Round(float64(base) * weight))
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}
