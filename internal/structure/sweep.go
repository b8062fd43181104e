package structure

import (
	"cmp"
	"slices"

	"WickSentinel/internal/model"
)

// DetectSweeps scans forward from every confirmed swing for the first candle
// that trades through its price, then requires a close back inside the
// prior range on that candle or within maxReversalBars after it. Excursions
// that never reverse are dropped.
func DetectSweeps(series model.CandleSeries, swings []model.SwingPoint, maxReversalBars int) []model.LiquiditySweep {
	candles := series.Candles
	n := len(candles)
	var out []model.LiquiditySweep
	for _, sw := range swings {
		if !sw.Confirmed {
			continue
		}
		for k := sw.Index + 1; k < n; k++ {
			if !pierces(sw, candles[k]) {
				continue
			}
			last := min(k+max(maxReversalBars, 0), n-1)
			for r := k; r <= last; r++ {
				if closesInside(sw, candles[r]) {
					out = append(out, model.LiquiditySweep{
						SweptSwing:    sw,
						SweepIndex:    k,
						ReversalIndex: r,
						Reversed:      true,
					})
					break
				}
			}
			break
		}
	}
	slices.SortStableFunc(out, func(a, b model.LiquiditySweep) int {
		return cmp.Compare(a.SweepIndex, b.SweepIndex)
	})
	return out
}

func pierces(sw model.SwingPoint, c model.Candle) bool {
	if sw.Kind == model.SwingHigh {
		return c.High > sw.Price
	}
	return c.Low < sw.Price
}

func closesInside(sw model.SwingPoint, c model.Candle) bool {
	if sw.Kind == model.SwingHigh {
		return c.Close < sw.Price
	}
	return c.Close > sw.Price
}
