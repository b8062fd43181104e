package structure

import "WickSentinel/internal/model"

// DetectFVGs finds three-candle gaps centred on every bar that has a
// neighbour on both sides. Bullish: high[i-1] < low[i+1]. Bearish:
// low[i-1] > high[i+1]. A gap is filled by the first later candle whose
// range touches [Bottom, Top]; filled gaps stay in the output.
func DetectFVGs(series model.CandleSeries) []model.FVG {
	candles := series.Candles
	n := len(candles)
	if n < 3 {
		return nil
	}
	var out []model.FVG
	for i := 1; i+1 < n; i++ {
		prev, next := candles[i-1], candles[i+1]
		switch {
		case prev.High < next.Low:
			out = append(out, markFilled(candles, model.FVG{
				StartIndex: i - 1, EndIndex: i + 1,
				Top: next.Low, Bottom: prev.High,
				Direction: model.Bullish, FilledIndex: -1,
			}))
		case prev.Low > next.High:
			out = append(out, markFilled(candles, model.FVG{
				StartIndex: i - 1, EndIndex: i + 1,
				Top: prev.Low, Bottom: next.High,
				Direction: model.Bearish, FilledIndex: -1,
			}))
		}
	}
	return out
}

func markFilled(candles []model.Candle, gap model.FVG) model.FVG {
	for k := gap.EndIndex + 1; k < len(candles); k++ {
		if candles[k].Low <= gap.Top && candles[k].High >= gap.Bottom {
			gap.Filled = true
			gap.FilledIndex = k
			break
		}
	}
	return gap
}
