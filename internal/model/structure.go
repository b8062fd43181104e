package model

// Direction is the side of a zone or rejection.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Side maps a direction to the trade side it implies.
func (d Direction) Side() string {
	if d == Bullish {
		return "long"
	}
	return "short"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// SwingKind distinguishes fractal highs from fractal lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a fractal pivot. Confirmed is false while fewer than the
// required right-side bars exist.
type SwingPoint struct {
	Index     int       `json:"index"`
	Kind      SwingKind `json:"type"`
	Price     float64   `json:"price"`
	Confirmed bool      `json:"confirmed"`
}

// FVG is a three-candle fair value gap spanning StartIndex..EndIndex.
// FilledIndex is the first later candle that traded into the gap, or -1.
type FVG struct {
	StartIndex  int       `json:"start_index"`
	EndIndex    int       `json:"end_index"`
	Top         float64   `json:"top"`
	Bottom      float64   `json:"bottom"`
	Direction   Direction `json:"direction"`
	Filled      bool      `json:"filled"`
	FilledIndex int       `json:"filled_index"`
}

// UnfilledAt reports whether the gap had formed and was still open when
// candle i printed.
func (f FVG) UnfilledAt(i int) bool {
	return f.EndIndex < i && (!f.Filled || f.FilledIndex >= i)
}

// OrderBlock is the last opposing candle before an impulsive move.
// Direction is the direction of the zone, i.e. of the impulse. ImpulseEnd
// is the last candle of that move; the block exists only after it.
type OrderBlock struct {
	Index      int       `json:"index"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Direction  Direction `json:"direction"`
	ImpulseEnd int       `json:"impulse_end"`
}

// LiquiditySweep records a wick through a confirmed swing that closed back
// inside the prior range within the allowed window.
type LiquiditySweep struct {
	SweptSwing    SwingPoint `json:"swept_swing"`
	SweepIndex    int        `json:"sweep_index"`
	ReversalIndex int        `json:"reversal_index"`
	Reversed      bool       `json:"reversed"`
}

// Direction is bearish for a sweep of highs and bullish for a sweep of lows.
func (s LiquiditySweep) Direction() Direction {
	if s.SweptSwing.Kind == SwingHigh {
		return Bearish
	}
	return Bullish
}

// ATRValue is one entry of an ATR series aligned with candles.
type ATRValue struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// ATRSeries is aligned 1:1 with a CandleSeries; warm-up entries are invalid.
type ATRSeries []ATRValue

// At returns the ATR at index i and whether it is defined.
func (a ATRSeries) At(i int) (float64, bool) {
	if i < 0 || i >= len(a) || !a[i].Valid {
		return 0, false
	}
	return a[i].Value, true
}
