// Package rejection flags candles with an outsized wick that prints into
// existing market structure.
package rejection

import (
	"WickSentinel/internal/model"
	"WickSentinel/internal/wick"
)

// Params controls which candles qualify as rejection blocks.
type Params struct {
	WickATRMultiple  float64
	WickBodyRatioMin float64
	// TolerancePoints widens the wick on both ends when testing overlap.
	TolerancePoints float64
	// SwingRightBars is the confirmation delay of the swings passed in; a
	// swing only counts once it was confirmed at or before the candle.
	SwingRightBars  int
	RequireReversal bool
	ReversalBars    int
}

// Structure bundles the detector outputs for one series.
type Structure struct {
	Swings      []model.SwingPoint
	FVGs        []model.FVG
	OrderBlocks []model.OrderBlock
	Sweeps      []model.LiquiditySweep
	ATR         model.ATRSeries
}

// Detect returns every candle whose dominant wick exceeds the ATR and body
// thresholds and overlaps at least one structural reference of the same
// direction. Candles without an ATR value are skipped.
func Detect(series model.CandleSeries, st Structure, p Params) []model.RejectionBlock {
	var out []model.RejectionBlock
	for i, c := range series.Candles {
		atr, ok := st.ATR.At(i)
		if !ok || atr <= 0 {
			continue
		}

		dir, length := dominantWick(c)
		if length <= p.WickATRMultiple*atr {
			continue
		}
		if length < p.WickBodyRatioMin*c.Body() {
			continue
		}

		high, low := wick.Span(c, dir)
		confs := confluences(i, dir, low-p.TolerancePoints, high+p.TolerancePoints, st, p)
		if len(confs) == 0 {
			continue
		}

		reversed := reversalConfirmed(series, i, dir, p.ReversalBars)
		if p.RequireReversal && !reversed {
			continue
		}

		out = append(out, model.RejectionBlock{
			Index:             i,
			Time:              c.Time,
			Direction:         dir,
			WickHigh:          high,
			WickLow:           low,
			Midpoint:          wick.Midpoint(c, dir),
			CandleHigh:        c.High,
			CandleLow:         c.Low,
			Volume:            c.Volume,
			Confluences:       confs,
			ReversalConfirmed: reversed,
		})
	}
	return out
}

// dominantWick picks the longer wick. Equal wicks are read as bearish.
func dominantWick(c model.Candle) (model.Direction, float64) {
	upper, lower := c.UpperWick(), c.LowerWick()
	if lower > upper {
		return model.Bullish, lower
	}
	return model.Bearish, upper
}

func overlaps(lo, hi, zoneLow, zoneHigh float64) bool {
	return lo <= zoneHigh && zoneLow <= hi
}

func confluences(i int, dir model.Direction, lo, hi float64, st Structure, p Params) []model.Confluence {
	var out []model.Confluence
	for _, f := range st.FVGs {
		if f.Direction == dir && f.UnfilledAt(i) && overlaps(lo, hi, f.Bottom, f.Top) {
			out = append(out, model.FVGConfluence(f))
		}
	}
	for _, ob := range st.OrderBlocks {
		if ob.Direction == dir && ob.ImpulseEnd < i && overlaps(lo, hi, ob.Low, ob.High) {
			out = append(out, model.OrderBlockConfluence(ob))
		}
	}
	for _, sw := range st.Sweeps {
		if sw.Direction() == dir && sw.ReversalIndex <= i && overlaps(lo, hi, sw.SweptSwing.Price, sw.SweptSwing.Price) {
			out = append(out, model.SweepConfluence(sw))
		}
	}
	want := model.SwingLow
	if dir == model.Bearish {
		want = model.SwingHigh
	}
	for _, sp := range st.Swings {
		if !sp.Confirmed || sp.Kind != want || sp.Index >= i || sp.Index+p.SwingRightBars > i {
			continue
		}
		if overlaps(lo, hi, sp.Price, sp.Price) {
			out = append(out, model.SwingConfluence(sp))
		}
	}
	return out
}

// reversalConfirmed reports whether a close beyond the candle's opposite
// extreme followed within bars candles.
func reversalConfirmed(series model.CandleSeries, i int, dir model.Direction, bars int) bool {
	rc := series.Candles[i]
	for k := i + 1; k <= i+bars && k < series.Len(); k++ {
		c := series.Candles[k]
		if dir == model.Bearish && c.Close < rc.Low {
			return true
		}
		if dir == model.Bullish && c.Close > rc.High {
			return true
		}
	}
	return false
}
