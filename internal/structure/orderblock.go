package structure

import (
	"slices"

	"WickSentinel/internal/model"
)

// DetectOrderBlocks finds the last opposing candle before each impulsive
// run. A run is a maximal streak of same-direction candles, at least minBars
// long, whose summed ranges exceed multiple x ATR at the run's first bar.
// Overlapping blocks of the same direction are collapsed to the most recent.
func DetectOrderBlocks(series model.CandleSeries, atr model.ATRSeries, multiple float64, minBars int) []model.OrderBlock {
	candles := series.Candles
	n := len(candles)
	if n < 2 {
		return nil
	}
	minBars = max(minBars, 1)

	var candidates []model.OrderBlock
	for s := 0; s < n; {
		dir, ok := bodyDirection(candles[s])
		if !ok {
			s++
			continue
		}
		e := s
		total := candles[s].Range()
		for e+1 < n {
			d, ok := bodyDirection(candles[e+1])
			if !ok || d != dir {
				break
			}
			e++
			total += candles[e].Range()
		}

		if s > 0 && e-s+1 >= minBars {
			if v, ok := atr.At(s); ok && v > 0 && total > multiple*v {
				block := candles[s-1]
				if d, ok := bodyDirection(block); ok && d == dir.Opposite() {
					candidates = append(candidates, model.OrderBlock{
						Index:      s - 1,
						High:       block.High,
						Low:        block.Low,
						Direction:  dir,
						ImpulseEnd: e,
					})
				}
			}
		}
		s = e + 1
	}
	return keepMostRecent(candidates)
}

func bodyDirection(c model.Candle) (model.Direction, bool) {
	switch {
	case c.IsBullish():
		return model.Bullish, true
	case c.IsBearish():
		return model.Bearish, true
	default:
		return "", false
	}
}

func keepMostRecent(blocks []model.OrderBlock) []model.OrderBlock {
	kept := make([]model.OrderBlock, 0, len(blocks))
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		overlapped := slices.ContainsFunc(kept, func(k model.OrderBlock) bool {
			return k.Direction == b.Direction && b.Low <= k.High && k.Low <= b.High
		})
		if !overlapped {
			kept = append(kept, b)
		}
	}
	slices.Reverse(kept)
	return kept
}
