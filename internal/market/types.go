// Package market defines the value types the engine consumes: per-instrument
// price/volume history and the current, still-forming candle. Callers own this
// data; the engine never mutates it.
package market

// Candle is a single OHLC snapshot of the current period.
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// PriceSeries holds chronological history for one instrument, most recent
// last. The four slices are index-aligned when present; any of them may be
// empty, in which case dependent computations fall back to safe defaults.
type PriceSeries struct {
	Closes  []float64 `json:"closes"`
	Highs   []float64 `json:"highs"`
	Lows    []float64 `json:"lows"`
	Volumes []float64 `json:"volumes"`
}

// Len returns the number of closing prices in the series.
func (s PriceSeries) Len() int {
	return len(s.Closes)
}

// LastClose returns the most recent closing price, or 0 for an empty series.
func (s PriceSeries) LastClose() float64 {
	if len(s.Closes) == 0 {
		return 0
	}
	return s.Closes[len(s.Closes)-1]
}

// Change returns the most recent close-to-close price change, or 0 when fewer
// than two closes exist.
func (s PriceSeries) Change() float64 {
	if len(s.Closes) < 2 {
		return 0
	}
	return s.Closes[len(s.Closes)-1] - s.Closes[len(s.Closes)-2]
}
