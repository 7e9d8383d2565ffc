package indicators

import (
	"math"
	"testing"
)

// TestSMAEmptySeries tests SMA fallback for empty input
func TestSMAEmptySeries(t *testing.T) {
	if got := SMA(nil, 20); got != 0 {
		t.Errorf("SMA of empty series should be 0, got %f", got)
	}
}

// TestSMAShortSeries tests that a series shorter than the period degrades to
// its last value instead of failing
func TestSMAShortSeries(t *testing.T) {
	values := []float64{100, 101, 102}
	if got := SMA(values, 20); got != 102 {
		t.Errorf("SMA of short series should return last value 102, got %f", got)
	}
}

// TestSMAExactWindow tests a plain arithmetic mean over the window
func TestSMAExactWindow(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	if got := SMA(values, 4); got != 25 {
		t.Errorf("SMA should be 25, got %f", got)
	}

	// Only the trailing window should count
	values = append([]float64{1000}, values...)
	if got := SMA(values, 4); got != 25 {
		t.Errorf("SMA should use only the last 4 values, got %f", got)
	}
}

// TestEMAEmptySeries tests EMA fallback for empty input
func TestEMAEmptySeries(t *testing.T) {
	if got := EMA(nil, 50); got != 0 {
		t.Errorf("EMA of empty series should be 0, got %f", got)
	}
}

// TestEMASeedsFromFirstElement tests the first-sample seed: a single-element
// series returns that element regardless of period
func TestEMASeedsFromFirstElement(t *testing.T) {
	if got := EMA([]float64{42}, 50); got != 42 {
		t.Errorf("EMA of single element should be 42, got %f", got)
	}
}

// TestEMAConstantSeries tests that a constant series yields the constant
func TestEMAConstantSeries(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 55.5
	}
	if got := EMA(values, 20); math.Abs(got-55.5) > 1e-9 {
		t.Errorf("EMA of constant series should be 55.5, got %f", got)
	}
}

// TestEMATracksRisingSeries tests that EMA lags but follows a rising series
func TestEMATracksRisingSeries(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(100 + i)
	}
	ema := EMA(values, 50)
	last := values[len(values)-1]
	if ema >= last {
		t.Errorf("EMA should lag a rising series, got %f >= %f", ema, last)
	}
	if ema <= values[0] {
		t.Errorf("EMA should have moved above the first sample, got %f", ema)
	}
}

// TestRSIInsufficientData tests the neutral default
func TestRSIInsufficientData(t *testing.T) {
	values := []float64{100, 101, 102, 103}
	if got := RSI(values, 14); got != 50 {
		t.Errorf("RSI with fewer than period+1 points should be 50, got %f", got)
	}
}

// TestRSIAllGains tests the zero-average-loss branch
func TestRSIAllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 + i)
	}
	if got := RSI(values, 14); got != 100 {
		t.Errorf("RSI of strictly rising series should be 100, got %f", got)
	}
}

// TestRSIAllLosses tests a strictly falling series
func TestRSIAllLosses(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(200 - i)
	}
	got := RSI(values, 14)
	if math.Abs(got) > 1e-9 {
		t.Errorf("RSI of strictly falling series should be 0, got %f", got)
	}
}

// TestRSIFlatSeries tests that a motionless series reads neutral, not
// overbought
func TestRSIFlatSeries(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}
	if got := RSI(values, 14); got != 50 {
		t.Errorf("RSI of flat series should be 50, got %f", got)
	}
}

// TestRSIBounds tests that RSI stays within [0, 100] for mixed input
func TestRSIBounds(t *testing.T) {
	values := []float64{
		100, 102, 99, 104, 101, 105, 98, 107, 103, 106,
		102, 108, 104, 110, 105, 111, 107, 109, 106, 112,
	}
	got := RSI(values, 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI out of bounds: %f", got)
	}
}

// TestRSIDefaultPeriod tests the period <= 0 fallback to 14
func TestRSIDefaultPeriod(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 + i)
	}
	if got := RSI(values, 0); got != 100 {
		t.Errorf("RSI with zero period should use the default 14, got %f", got)
	}
}
