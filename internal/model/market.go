package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnorderedSeries is returned when candle open times are not strictly increasing.
var ErrUnorderedSeries = errors.New("candles must be strictly time-ordered")

// Timeframe is a bar resolution such as "5m" or "1h".
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

// Duration returns the bar length, or 0 for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	return timeframeDurations[tf]
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// Candle represents a single OHLCV bar keyed by its open time.
type Candle struct {
	Time   time.Time `json:"open_time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

func (c Candle) BodyTop() float64    { return max(c.Open, c.Close) }
func (c Candle) BodyBottom() float64 { return min(c.Open, c.Close) }
func (c Candle) Body() float64       { return c.BodyTop() - c.BodyBottom() }
func (c Candle) Range() float64      { return c.High - c.Low }
func (c Candle) UpperWick() float64  { return c.High - c.BodyTop() }
func (c Candle) LowerWick() float64  { return c.BodyBottom() - c.Low }
func (c Candle) IsBullish() bool     { return c.Close > c.Open }
func (c Candle) IsBearish() bool     { return c.Close < c.Open }

// CandleSeries is an ordered run of candles for one timeframe.
// Treat it as immutable; Append returns a new series.
type CandleSeries struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

// NewSeries validates ordering and returns a series.
func NewSeries(symbol string, tf Timeframe, candles []Candle) (CandleSeries, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return CandleSeries{}, fmt.Errorf("%w: index %d (%s) not after %s",
				ErrUnorderedSeries, i, candles[i].Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return CandleSeries{Symbol: symbol, Timeframe: tf, Candles: candles}, nil
}

// Len returns the number of candles.
func (s CandleSeries) Len() int { return len(s.Candles) }

// At returns the candle at index i.
func (s CandleSeries) At(i int) Candle { return s.Candles[i] }

// Last returns the most recent candle.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Tail returns a series holding at most the last n candles.
func (s CandleSeries) Tail(n int) CandleSeries {
	if n >= len(s.Candles) || n < 0 {
		return s
	}
	return CandleSeries{Symbol: s.Symbol, Timeframe: s.Timeframe, Candles: s.Candles[len(s.Candles)-n:]}
}

// Append returns a new series extended with newer candles.
func (s CandleSeries) Append(candles ...Candle) (CandleSeries, error) {
	merged := make([]Candle, 0, len(s.Candles)+len(candles))
	merged = append(merged, s.Candles...)
	merged = append(merged, candles...)
	return NewSeries(s.Symbol, s.Timeframe, merged)
}

// Highs, Lows, Closes and Volumes extract columns for indicator math.
func (s CandleSeries) Highs() []float64 {
	return column(s.Candles, func(c Candle) float64 { return c.High })
}
func (s CandleSeries) Lows() []float64 {
	return column(s.Candles, func(c Candle) float64 { return c.Low })
}
func (s CandleSeries) Closes() []float64 {
	return column(s.Candles, func(c Candle) float64 { return c.Close })
}
func (s CandleSeries) Volumes() []float64 {
	return column(s.Candles, func(c Candle) float64 { return c.Volume })
}

func column(candles []Candle, f func(Candle) float64) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = f(c)
	}
	return out
}

// Snapshot holds every series needed for one detection pass of a symbol.
type Snapshot struct {
	Symbol    string
	Primary   CandleSeries
	HTF       map[Timeframe]CandleSeries // 1h, 4h, 1d
	FetchedAt time.Time
}

// LastPrimaryTime returns the open time of the newest primary bar.
func (s *Snapshot) LastPrimaryTime() (time.Time, bool) {
	c, ok := s.Primary.Last()
	return c.Time, ok
}
