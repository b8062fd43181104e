package calculator

import (
	"math"

	"WickSentinel/internal/model"

	talib "github.com/markcheno/go-talib"
)

// ATRMethod selects the smoothing used for the true range.
type ATRMethod string

const (
	ATRSimple ATRMethod = "sma"
	ATRWilder ATRMethod = "wilder"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar.
// The first bar has no previous close and uses high-low.
func TrueRange(series model.CandleSeries) []float64 {
	tr := make([]float64, series.Len())
	for i, c := range series.Candles {
		tr[i] = c.Range()
		if i == 0 {
			continue
		}
		prev := series.Candles[i-1].Close
		tr[i] = math.Max(tr[i], math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
	}
	return tr
}

// ComputeATR returns an ATR series aligned with the candles. Warm-up entries
// are marked invalid: window-1 of them for the simple average, window for
// Wilder smoothing, and all of them when the series is too short.
func ComputeATR(series model.CandleSeries, window int, method ATRMethod) model.ATRSeries {
	n := series.Len()
	out := make(model.ATRSeries, n)
	for i := range out {
		out[i].Index = i
	}
	if window <= 0 {
		return out
	}

	var values []float64
	firstValid := window - 1
	switch method {
	case ATRWilder:
		if n <= window {
			return out
		}
		values = talib.Atr(series.Highs(), series.Lows(), series.Closes(), window)
		firstValid = window
	default:
		if n < window {
			return out
		}
		values = talib.Sma(TrueRange(series), window)
	}

	for i := firstValid; i < n; i++ {
		out[i].Value = values[i]
		out[i].Valid = values[i] >= 0
	}
	return out
}
