// Package wick implements wick theory: the fib level inside a rejection
// wick (the 50% level is the CE) and whether later price action respected it.
package wick

import "WickSentinel/internal/model"

// Span returns the wick a rejection in direction dir is measured on:
// [BodyTop, High] for bearish, [Low, BodyBottom] for bullish.
func Span(c model.Candle, dir model.Direction) (high, low float64) {
	if dir == model.Bearish {
		return c.High, c.BodyTop()
	}
	return c.BodyBottom(), c.Low
}

// Level returns the price fib of the way into the wick from its extreme.
func Level(c model.Candle, dir model.Direction, fib float64) float64 {
	high, low := Span(c, dir)
	if dir == model.Bearish {
		return high - fib*(high-low)
	}
	return low + fib*(high-low)
}

// Midpoint is the wick's 50% level.
func Midpoint(c model.Candle, dir model.Direction) float64 {
	return Level(c, dir, 0.5)
}

// Result is the outcome of Evaluate. ResolvedIndex is the candle that
// decided the outcome, or -1.
type Result struct {
	Level         float64           `json:"level"`
	Respect       model.WickRespect `json:"respect"`
	ResolvedIndex int               `json:"resolved_index"`
}

// Evaluate scans up to respectBars candles after index. The level is
// respected when price trades back to it and then closes beyond the body on
// the rejection side without first closing through the level. A close
// through the level, or a full window with no decision, is a violation.
// Fewer than respectBars forward candles with no decision is undetermined.
func Evaluate(series model.CandleSeries, index int, dir model.Direction, fib float64, respectBars int) Result {
	res := Result{Respect: model.WickUndetermined, ResolvedIndex: -1}
	if index < 0 || index >= series.Len() {
		return res
	}
	rc := series.Candles[index]
	res.Level = Level(rc, dir, fib)
	if respectBars <= 0 {
		return res
	}

	last := index + respectBars
	touched := false
	for k := index + 1; k <= last && k < series.Len(); k++ {
		c := series.Candles[k]
		if dir == model.Bearish {
			if c.Close > res.Level {
				return resolved(res, model.WickViolated, k)
			}
			touched = touched || c.High >= res.Level
			if touched && c.Close < rc.BodyBottom() {
				return resolved(res, model.WickRespected, k)
			}
			continue
		}
		if c.Close < res.Level {
			return resolved(res, model.WickViolated, k)
		}
		touched = touched || c.Low <= res.Level
		if touched && c.Close > rc.BodyTop() {
			return resolved(res, model.WickRespected, k)
		}
	}
	if last < series.Len() {
		return resolved(res, model.WickViolated, last)
	}
	return res
}

func resolved(r Result, respect model.WickRespect, k int) Result {
	r.Respect = respect
	r.ResolvedIndex = k
	return r
}
