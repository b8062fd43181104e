package strategy

import (
	"WickSentinel/internal/model"
	"WickSentinel/internal/structure"
)

// ComputeBias reads direction from the last lookback bars: a close above the
// highest confirmed swing high is bullish, below the lowest swing low is
// bearish. Short series and series without both swing kinds are neutral.
func ComputeBias(series model.CandleSeries, lookback int) model.Bias {
	if lookback <= 0 || series.Len() < lookback {
		return model.BiasNeutral
	}
	tail := series.Tail(lookback)
	k := max(1, min(5, lookback/5))

	var high, low float64
	var haveHigh, haveLow bool
	for sp := range structure.Swings(tail, k, k) {
		if !sp.Confirmed {
			continue
		}
		switch sp.Kind {
		case model.SwingHigh:
			if !haveHigh || sp.Price > high {
				high, haveHigh = sp.Price, true
			}
		case model.SwingLow:
			if !haveLow || sp.Price < low {
				low, haveLow = sp.Price, true
			}
		}
	}
	if !haveHigh || !haveLow {
		return model.BiasNeutral
	}

	last, _ := tail.Last()
	switch {
	case last.Close > high:
		return model.BiasBullish
	case last.Close < low:
		return model.BiasBearish
	default:
		return model.BiasNeutral
	}
}

// ComputeHTFBias runs ComputeBias over the 1h, 4h and daily series. A
// missing timeframe is neutral.
func ComputeHTFBias(htf map[model.Timeframe]model.CandleSeries, lookback int) model.HTFBias {
	return model.HTFBias{
		H1:    ComputeBias(htf[model.TF1h], lookback),
		H4:    ComputeBias(htf[model.TF4h], lookback),
		Daily: ComputeBias(htf[model.TF1d], lookback),
	}
}
