// Package policy implements the tabular reinforcement-learning view of the
// market: it buckets the evaluation context into a discrete state key,
// maintains a Q-table of action values per state, and improves those values
// from realized trade outcomes with a one-step Q-learning update.
package policy

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"smc-signal-engine/internal/smc"
)

// Action indexes the fixed-length action value vector.
type Action int

const (
	ActionSell Action = 0
	ActionHold Action = 1
	ActionBuy  Action = 2

	actionCount = 3
)

// String returns the trading-signal name of the action.
func (a Action) String() string {
	switch a {
	case ActionSell:
		return "SELL"
	case ActionBuy:
		return "BUY"
	default:
		return "HOLD"
	}
}

// ActionFromString parses a signal name into an action.
func ActionFromString(s string) (Action, bool) {
	switch s {
	case "SELL":
		return ActionSell, true
	case "HOLD":
		return ActionHold, true
	case "BUY":
		return ActionBuy, true
	default:
		return ActionHold, false
	}
}

// Mode reports whether the lookup was served from a populated table.
// Purely informational.
type Mode string

const (
	ModeTrained   Mode = "TRAINED"
	ModeBootstrap Mode = "BOOTSTRAP"
)

// Context is the bucketed market summary the policy acts on. Derived fresh
// per evaluation, never stored.
type Context struct {
	RSI                 float64       `json:"rsi"`
	EMA50               float64       `json:"ema50"`
	EMA200              float64       `json:"ema200"`
	SMA20               float64       `json:"sma20"`
	TrendBias           smc.Direction `json:"trend_bias"`
	StructureConfidence int           `json:"structure_confidence"` // 0..100
	Signal              string        `json:"signal"`               // Decision engine's view
}

// Response is the policy's independent read of the same inputs.
type Response struct {
	Signal     string               `json:"signal"`
	Confidence int                  `json:"confidence"`
	StateKey   string               `json:"state_key"`
	Values     [actionCount]float64 `json:"values"` // SELL, HOLD, BUY
	Mode       Mode                 `json:"mode"`
}

// Config holds the Q-learning hyperparameters.
type Config struct {
	Alpha float64 `json:"alpha"` // Learning rate
	Gamma float64 `json:"gamma"` // Discount factor
}

// DefaultConfig returns the standard one-step Q-learning parameters.
func DefaultConfig() Config {
	return Config{Alpha: 0.1, Gamma: 0.9}
}

// Policy owns the Q-table. Rows are created lazily and never deleted.
// Concurrent updates are serialized through a single RWMutex.
type Policy struct {
	mu     sync.RWMutex
	table  map[string][]float64
	alpha  float64
	gamma  float64
	logger zerolog.Logger
}

// NewPolicy creates a policy with an empty table.
func NewPolicy(cfg Config, logger zerolog.Logger) *Policy {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultConfig().Alpha
	}
	if cfg.Gamma < 0 || cfg.Gamma >= 1 {
		cfg.Gamma = DefaultConfig().Gamma
	}
	return &Policy{
		table:  make(map[string][]float64),
		alpha:  cfg.Alpha,
		gamma:  cfg.Gamma,
		logger: logger.With().Str("component", "policy").Logger(),
	}
}

// EncodeState buckets the context into a deterministic, collision-free state
// key: 6 RSI bins, 5 structure-confidence bins, and a one-character trend
// tag.
func EncodeState(ctx Context) string {
	return fmt.Sprintf("r%d:c%d:%s",
		bucket(ctx.RSI, []float64{30, 40, 50, 60, 70}),
		bucket(float64(ctx.StructureConfidence), []float64{20, 40, 60, 80}),
		trendTag(ctx.TrendBias))
}

func bucket(v float64, thresholds []float64) int {
	for i, t := range thresholds {
		if v < t {
			return i
		}
	}
	return len(thresholds)
}

func trendTag(bias smc.Direction) string {
	switch bias {
	case smc.Bullish:
		return "U"
	case smc.Bearish:
		return "D"
	default:
		return "N"
	}
}

// BootstrapValues synthesizes a deterministic action vector for a state the
// table has never seen, leaning toward the trend bias and scaling with the
// structure confidence. Unseen states still produce a sensible default
// instead of failing.
func BootstrapValues(ctx Context) []float64 {
	conf := float64(ctx.StructureConfidence)
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}
	lean := 0.35 + 0.5*(conf/100)

	switch ctx.TrendBias {
	case smc.Bullish:
		return []float64{0.1, 0.25, lean}
	case smc.Bearish:
		return []float64{lean, 0.25, 0.1}
	default:
		return []float64{0.15, 0.4, 0.15}
	}
}

// BestAction picks the argmax action and derives a confidence from the value
// margin: the winner's share of the positive mass, with a denominator floor
// of 1 to guard the zero-sum case.
func BestAction(values []float64) (Action, int) {
	best := ActionHold
	if len(values) == actionCount {
		best = ActionSell
		for i := 1; i < actionCount; i++ {
			if values[i] > values[best] {
				best = Action(i)
			}
		}
	} else {
		return ActionHold, 0
	}

	top := math.Max(values[best], 0)
	sum := 0.0
	for _, v := range values {
		sum += math.Max(v, 0)
	}
	if sum < 1 {
		sum = 1
	}

	return best, int(math.Round(100 * top / sum))
}

// Evaluate looks up (or bootstraps) the context's state and returns the
// policy's view. Bootstrap rows are stored so the state exists for later
// updates.
func (p *Policy) Evaluate(ctx Context) Response {
	key := EncodeState(ctx)

	p.mu.Lock()
	mode := ModeBootstrap
	if len(p.table) > 0 {
		mode = ModeTrained
	}
	values, ok := p.table[key]
	if !ok {
		values = BootstrapValues(ctx)
		p.table[key] = values
	}
	row := make([]float64, actionCount)
	copy(row, values)
	p.mu.Unlock()

	best, confidence := BestAction(row)

	resp := Response{
		Signal:     best.String(),
		Confidence: confidence,
		StateKey:   key,
		Mode:       mode,
	}
	copy(resp.Values[:], row)
	return resp
}

// Update applies the one-step Q-learning rule
//
//	Q[s][a] += alpha * (reward + gamma*max(Q[s']) - Q[s][a])
//
// creating zero-initialized rows for unseen states. There is no error path.
func (p *Policy) Update(state string, action Action, reward float64, nextState string) {
	if action < 0 || action >= actionCount {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	row := p.row(state)
	next := p.row(nextState)

	maxNext := next[0]
	for _, v := range next[1:] {
		if v > maxNext {
			maxNext = v
		}
	}

	row[action] += p.alpha * (reward + p.gamma*maxNext - row[action])
}

// row returns the state's value vector, creating a zero row if absent.
// Caller must hold the lock.
func (p *Policy) row(state string) []float64 {
	if r, ok := p.table[state]; ok {
		return r
	}
	r := make([]float64, actionCount)
	p.table[state] = r
	return r
}

// Size returns the number of states in the table.
func (p *Policy) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.table)
}

// Snapshot returns a copy of the full table for persistence.
func (p *Policy) Snapshot() map[string][]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string][]float64, len(p.table))
	for k, v := range p.table {
		row := make([]float64, actionCount)
		copy(row, v)
		out[k] = row
	}
	return out
}

// Restore replaces the table with a persisted snapshot. Rows of the wrong
// length are normalized to three actions; nothing is ever dropped.
func (p *Policy) Restore(snapshot map[string][]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.table = make(map[string][]float64, len(snapshot))
	for k, v := range snapshot {
		row := make([]float64, actionCount)
		copy(row, v)
		p.table[k] = row
	}
}
