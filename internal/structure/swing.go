// Package structure detects market-structure references on a candle series:
// fractal swings, fair value gaps, order blocks and liquidity sweeps.
// Every detector is a pure function of its inputs.
package structure

import (
	"iter"
	"slices"

	"WickSentinel/internal/model"
)

// Swings yields fractal pivots in index order. A bar is a swing high when its
// high is the maximum of [i-left, i+right]; equal highs resolve to the
// earliest bar. Bars whose right-hand window runs past the end of the series
// are yielded unconfirmed. The sequence is restartable.
func Swings(series model.CandleSeries, left, right int) iter.Seq[model.SwingPoint] {
	return func(yield func(model.SwingPoint) bool) {
		if left < 0 || right < 0 {
			return
		}
		candles := series.Candles
		n := len(candles)
		for i := left; i < n; i++ {
			hi := min(i+right, n-1)
			confirmed := i+right <= n-1
			if isPivot(candles, i-left, hi, i, func(c model.Candle) float64 { return c.High }) {
				if !yield(model.SwingPoint{Index: i, Kind: model.SwingHigh, Price: candles[i].High, Confirmed: confirmed}) {
					return
				}
			}
			if isPivot(candles, i-left, hi, i, func(c model.Candle) float64 { return -c.Low }) {
				if !yield(model.SwingPoint{Index: i, Kind: model.SwingLow, Price: candles[i].Low, Confirmed: confirmed}) {
					return
				}
			}
		}
	}
}

// isPivot reports whether value(i) is the strict maximum of [lo, i) and not
// exceeded in (i, hi].
func isPivot(candles []model.Candle, lo, hi, i int, value func(model.Candle) float64) bool {
	v := value(candles[i])
	for j := lo; j < i; j++ {
		if value(candles[j]) >= v {
			return false
		}
	}
	for j := i + 1; j <= hi; j++ {
		if value(candles[j]) > v {
			return false
		}
	}
	return true
}

// DetectSwings collects Swings into a slice.
func DetectSwings(series model.CandleSeries, left, right int) []model.SwingPoint {
	return slices.Collect(Swings(series, left, right))
}

// Confirmed filters swings down to the confirmed ones.
func Confirmed(swings []model.SwingPoint) []model.SwingPoint {
	out := make([]model.SwingPoint, 0, len(swings))
	for _, s := range swings {
		if s.Confirmed {
			out = append(out, s)
		}
	}
	return out
}
