package calculator

import (
	"WickSentinel/internal/model"

	talib "github.com/markcheno/go-talib"
)

// VolumeAverage returns the simple moving average of volume. Entries before
// window-1 are zero, as is every entry when the series is shorter than window.
func VolumeAverage(series model.CandleSeries, window int) []float64 {
	if window <= 0 || series.Len() < window {
		return make([]float64, series.Len())
	}
	return talib.Sma(series.Volumes(), window)
}

// IsVolumeSpike reports whether bar i traded at least multiple times the
// average volume. Bars without a defined average never count as spikes.
func IsVolumeSpike(series model.CandleSeries, avg []float64, i int, multiple float64) bool {
	if i < 0 || i >= len(avg) || avg[i] <= 0 || multiple <= 0 {
		return false
	}
	return series.Candles[i].Volume >= multiple*avg[i]
}
