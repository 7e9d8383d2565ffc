package policy

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"smc-signal-engine/internal/smc"
)

func testPolicy() *Policy {
	return NewPolicy(DefaultConfig(), zerolog.Nop())
}

// TestEncodeStateBuckets tests the bucket boundaries and trend tags
func TestEncodeStateBuckets(t *testing.T) {
	cases := []struct {
		rsi  float64
		conf int
		bias smc.Direction
		want string
	}{
		{10, 0, smc.Bullish, "r0:c0:U"},
		{30, 20, smc.Bullish, "r1:c1:U"},
		{45, 45, smc.Bearish, "r2:c2:D"},
		{55, 65, smc.Neutral, "r3:c3:N"},
		{65, 85, smc.Neutral, "r4:c4:N"},
		{95, 100, smc.Bearish, "r5:c4:D"},
	}
	for _, c := range cases {
		ctx := Context{RSI: c.rsi, StructureConfidence: c.conf, TrendBias: c.bias}
		if got := EncodeState(ctx); got != c.want {
			t.Errorf("EncodeState(rsi=%f conf=%d %s) = %s, want %s",
				c.rsi, c.conf, c.bias, got, c.want)
		}
	}
}

// TestEncodeStateCollisionFree tests that every bucket combination maps to a
// distinct key
func TestEncodeStateCollisionFree(t *testing.T) {
	seen := make(map[string]bool)
	rsis := []float64{10, 35, 45, 55, 65, 90}
	confs := []int{10, 30, 50, 70, 90}
	biases := []smc.Direction{smc.Bullish, smc.Bearish, smc.Neutral}

	for _, rsi := range rsis {
		for _, conf := range confs {
			for _, bias := range biases {
				key := EncodeState(Context{RSI: rsi, StructureConfidence: conf, TrendBias: bias})
				if seen[key] {
					t.Fatalf("State key collision: %s", key)
				}
				seen[key] = true
			}
		}
	}
	if len(seen) != 6*5*3 {
		t.Errorf("Expected 90 distinct keys, got %d", len(seen))
	}
}

// TestBootstrapValuesFollowBias tests the deterministic unseen-state heuristic
func TestBootstrapValuesFollowBias(t *testing.T) {
	bull := BootstrapValues(Context{TrendBias: smc.Bullish, StructureConfidence: 80})
	if best, _ := BestAction(bull); best != ActionBuy {
		t.Errorf("Bullish bootstrap should prefer BUY, got %s", best)
	}

	bear := BootstrapValues(Context{TrendBias: smc.Bearish, StructureConfidence: 80})
	if best, _ := BestAction(bear); best != ActionSell {
		t.Errorf("Bearish bootstrap should prefer SELL, got %s", best)
	}

	neutral := BootstrapValues(Context{TrendBias: smc.Neutral, StructureConfidence: 50})
	if best, _ := BestAction(neutral); best != ActionHold {
		t.Errorf("Neutral bootstrap should prefer HOLD, got %s", best)
	}

	// Determinism
	again := BootstrapValues(Context{TrendBias: smc.Bullish, StructureConfidence: 80})
	for i := range bull {
		if bull[i] != again[i] {
			t.Error("Bootstrap values must be deterministic")
		}
	}

	// Higher structure confidence leans harder
	weak := BootstrapValues(Context{TrendBias: smc.Bullish, StructureConfidence: 10})
	if bull[ActionBuy] <= weak[ActionBuy] {
		t.Error("Bootstrap lean should grow with structure confidence")
	}
}

// TestBestActionConfidence tests the positive-mass share with denominator floor
func TestBestActionConfidence(t *testing.T) {
	action, conf := BestAction([]float64{0.2, 0.3, 1.5})
	if action != ActionBuy {
		t.Errorf("Expected BUY, got %s", action)
	}
	// 100 * 1.5 / 2.0 = 75
	if conf != 75 {
		t.Errorf("Expected confidence 75, got %d", conf)
	}

	// All zero: denominator floor keeps this sane
	action, conf = BestAction([]float64{0, 0, 0})
	if action != ActionSell || conf != 0 {
		t.Errorf("Zero row should pick first action with 0 confidence, got %s/%d", action, conf)
	}

	// Negative values contribute nothing to the mass
	_, conf = BestAction([]float64{-5, -1, 0.5})
	if conf != 50 {
		t.Errorf("Expected 100*0.5/1 = 50 with the floor, got %d", conf)
	}
}

// TestEvaluateBootstrapsUnseenState tests lazy row creation and mode report
func TestEvaluateBootstrapsUnseenState(t *testing.T) {
	p := testPolicy()

	ctx := Context{RSI: 65, StructureConfidence: 70, TrendBias: smc.Bullish}
	resp := p.Evaluate(ctx)

	if resp.Mode != ModeBootstrap {
		t.Errorf("Empty table lookup should report BOOTSTRAP, got %s", resp.Mode)
	}
	if resp.Signal != "BUY" {
		t.Errorf("Bullish bootstrap state should lean BUY, got %s", resp.Signal)
	}
	if p.Size() != 1 {
		t.Errorf("Evaluate should create the row, table size %d", p.Size())
	}

	resp = p.Evaluate(ctx)
	if resp.Mode != ModeTrained {
		t.Errorf("Non-empty table lookup should report TRAINED, got %s", resp.Mode)
	}
}

// TestEvaluateDeterministic tests identical responses without cache mutation
func TestEvaluateDeterministic(t *testing.T) {
	p := testPolicy()
	ctx := Context{RSI: 42, StructureConfidence: 55, TrendBias: smc.Bearish}

	a := p.Evaluate(ctx)
	b := p.Evaluate(ctx)

	if a.Signal != b.Signal || a.Confidence != b.Confidence ||
		a.StateKey != b.StateKey || a.Values != b.Values {
		t.Error("Repeated evaluations of the same context must be identical")
	}
}

// TestUpdateConvergesToReward is the fixed-point check: with gamma*max(next)=0
// the chosen action's value converges to the constant reward.
func TestUpdateConvergesToReward(t *testing.T) {
	p := testPolicy()

	const reward = 2.5
	for i := 0; i < 200; i++ {
		// state-zero is never updated, so gamma*max(next) stays 0
		p.Update("state-a", ActionBuy, reward, "state-zero")
	}

	snapshot := p.Snapshot()
	got := snapshot["state-a"][ActionBuy]
	if math.Abs(got-reward) > 1e-6 {
		t.Errorf("Value should converge to the reward %f, got %f", reward, got)
	}
}

// TestUpdateCreatesZeroRows tests the no-error path for unseen states
func TestUpdateCreatesZeroRows(t *testing.T) {
	p := testPolicy()

	p.Update("fresh", ActionSell, 1.0, "also-fresh")

	snapshot := p.Snapshot()
	if len(snapshot["fresh"]) != 3 || len(snapshot["also-fresh"]) != 3 {
		t.Fatal("Update should create rows for both states")
	}
	// Q = 0 + 0.1*(1.0 + 0.9*0 - 0) = 0.1
	if math.Abs(snapshot["fresh"][ActionSell]-0.1) > 1e-9 {
		t.Errorf("First update should move value to 0.1, got %f", snapshot["fresh"][ActionSell])
	}
	if snapshot["also-fresh"][0] != 0 {
		t.Error("Next state row should stay zero-initialized")
	}
}

// TestSnapshotRestoreRoundTrip tests persistence hand-off
func TestSnapshotRestoreRoundTrip(t *testing.T) {
	p := testPolicy()
	p.Update("s1", ActionBuy, 1.0, "s1")
	p.Update("s2", ActionSell, -1.0, "s2")

	restored := testPolicy()
	restored.Restore(p.Snapshot())

	if restored.Size() != p.Size() {
		t.Errorf("Restored size %d != original %d", restored.Size(), p.Size())
	}
	a := p.Snapshot()["s1"]
	b := restored.Snapshot()["s1"]
	for i := range a {
		if a[i] != b[i] {
			t.Error("Restored values should match the snapshot")
		}
	}
}

// TestBatchTrainerSkipsMalformed tests the permissive one-pass policy
func TestBatchTrainerSkipsMalformed(t *testing.T) {
	p := testPolicy()
	trainer := NewBatchTrainer(p, zerolog.Nop())

	ctx := Context{RSI: 55, StructureConfidence: 60, TrendBias: smc.Bullish}
	samples := []OutcomeSample{
		{Symbol: "BTCUSDT", Context: ctx, Action: "BUY", Reward: 1.8},
		{Symbol: "ETHUSDT", Context: ctx, Action: "SHRUG", Reward: 1.0},       // Unknown action
		{Symbol: "SOLUSDT", Context: ctx, Action: "SELL", Reward: math.NaN()}, // Non-finite reward
		{Symbol: "BTCUSDT", Context: ctx, Action: "BUY", Reward: -0.4},
	}

	report := trainer.Train(samples)

	if report.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", report.Processed)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}

	key := EncodeState(ctx)
	if _, ok := p.Snapshot()[key]; !ok {
		t.Error("Training should have created the state row")
	}
}

func TestBatchTrainerReplaysByStateKey(t *testing.T) {
	p := testPolicy()
	trainer := NewBatchTrainer(p, zerolog.Nop())

	samples := []StateSample{
		{StateKey: "r3:c3:U", Action: "BUY", Reward: 2.0},
		{StateKey: "r2:c2:N", Action: "SHRUG", Reward: 1.0},        // Unknown action
		{StateKey: "r1:c1:D", Action: "SELL", Reward: math.Inf(1)}, // Non-finite reward
		{StateKey: "r1:c1:D", Action: "WAIT", Reward: 0.5},
	}

	report := trainer.TrainStates(samples)

	if report.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", report.Processed)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}

	row, ok := p.Snapshot()["r3:c3:U"]
	if !ok {
		t.Fatal("Replay should have created the state row")
	}
	// alpha 0.1 on a fresh zero row
	if diff := row[ActionBuy] - 0.2; math.Abs(diff) > 1e-9 {
		t.Errorf("BUY value = %v, want 0.2", row[ActionBuy])
	}
}

// TestBatchTrainerUsesNextContext tests the optional true transition
func TestBatchTrainerUsesNextContext(t *testing.T) {
	p := testPolicy()
	trainer := NewBatchTrainer(p, zerolog.Nop())

	ctx := Context{RSI: 55, StructureConfidence: 60, TrendBias: smc.Bullish}
	next := Context{RSI: 75, StructureConfidence: 30, TrendBias: smc.Neutral}

	trainer.Train([]OutcomeSample{
		{Symbol: "BTCUSDT", Context: ctx, Action: "BUY", Reward: 1.0, NextContext: &next},
	})

	if _, ok := p.Snapshot()[EncodeState(next)]; !ok {
		t.Error("The next state's row should exist after the update")
	}
}
