package strategy

import (
	"github.com/shopspring/decimal"

	"WickSentinel/internal/model"
)

// levels are the trade prices derived from one rejection block.
type levels struct {
	entry  float64
	stop   float64
	target float64
	risk   float64
	rr     float64
}

// buildLevels rounds entry and target to the nearest tick and the stop away
// from entry, so risk never shrinks below the unrounded distance. A
// non-positive tick disables rounding.
func buildLevels(dir model.Direction, entry, stop, targetRR, tick float64) levels {
	e := snap(decimal.NewFromFloat(entry), tick, func(d decimal.Decimal) decimal.Decimal { return d.Round(0) })
	s := decimal.NewFromFloat(stop)
	if dir == model.Bearish {
		s = snap(s, tick, decimal.Decimal.Ceil)
	} else {
		s = snap(s, tick, decimal.Decimal.Floor)
	}

	risk := e.Sub(s).Abs()
	reward := risk.Mul(decimal.NewFromFloat(targetRR))
	t := e.Add(reward)
	if dir == model.Bearish {
		t = e.Sub(reward)
	}
	t = snap(t, tick, func(d decimal.Decimal) decimal.Decimal { return d.Round(0) })

	lv := levels{
		entry:  e.InexactFloat64(),
		stop:   s.InexactFloat64(),
		target: t.InexactFloat64(),
		risk:   risk.InexactFloat64(),
	}
	if risk.IsPositive() {
		lv.rr = t.Sub(e).Abs().Div(risk).InexactFloat64()
	}
	return lv
}

func snap(d decimal.Decimal, tick float64, round func(decimal.Decimal) decimal.Decimal) decimal.Decimal {
	if tick <= 0 {
		return d
	}
	t := decimal.NewFromFloat(tick)
	return round(d.Div(t)).Mul(t)
}
