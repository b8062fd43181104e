package wick

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"WickSentinel/internal/model"
)

func bar(o, h, l, c float64) model.Candle {
	return model.Candle{Open: o, High: h, Low: l, Close: c}
}

func series(bars ...model.Candle) model.CandleSeries {
	return model.CandleSeries{Symbol: "ES", Timeframe: model.TF5m, Candles: bars}
}

// Bearish rejection: body 100-102, wick 102-110, CE 106.
var bearishRejection = bar(100, 110, 99, 102)

func TestLevel(t *testing.T) {
	assert.Equal(t, 106.0, Midpoint(bearishRejection, model.Bearish))
	assert.InDelta(t, 108.0, Level(bearishRejection, model.Bearish, 0.25), 1e-9)

	bullish := bar(100, 101, 90, 99)
	high, low := Span(bullish, model.Bullish)
	assert.Equal(t, 99.0, high)
	assert.Equal(t, 90.0, low)
	assert.Equal(t, 94.5, Midpoint(bullish, model.Bullish))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		forward  []model.Candle
		bars     int
		want     model.WickRespect
		resolved int
	}{
		{
			name: "respected",
			forward: []model.Candle{
				bar(102, 106.5, 101, 104),
				bar(104, 105, 97, 98),
			},
			bars:     5,
			want:     model.WickRespected,
			resolved: 2,
		},
		{
			name: "violated by close through level",
			forward: []model.Candle{
				bar(102, 108, 101, 107),
			},
			bars:     5,
			want:     model.WickViolated,
			resolved: 1,
		},
		{
			name: "drop without retrace is not respect",
			forward: []model.Candle{
				bar(102, 103, 97, 98),
				bar(98, 99, 95, 96),
			},
			bars:     2,
			want:     model.WickViolated,
			resolved: 2,
		},
		{
			name: "not enough forward candles",
			forward: []model.Candle{
				bar(102, 104, 101, 103),
			},
			bars:     3,
			want:     model.WickUndetermined,
			resolved: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := series(append([]model.Candle{bearishRejection}, tt.forward...)...)
			got := Evaluate(s, 0, model.Bearish, 0.5, tt.bars)
			assert.Equal(t, 106.0, got.Level)
			assert.Equal(t, tt.want, got.Respect)
			assert.Equal(t, tt.resolved, got.ResolvedIndex)
		})
	}
}

func TestEvaluateBullish(t *testing.T) {
	s := series(
		bar(100, 101, 90, 99),
		bar(99, 100, 94, 97),
		bar(97, 103, 96, 102),
	)
	got := Evaluate(s, 0, model.Bullish, 0.5, 4)
	assert.Equal(t, model.WickRespected, got.Respect)
	assert.Equal(t, 2, got.ResolvedIndex)
}

func TestEvaluateOutOfRange(t *testing.T) {
	got := Evaluate(series(bearishRejection), 3, model.Bearish, 0.5, 2)
	assert.Equal(t, model.WickUndetermined, got.Respect)
}
