package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"WickSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	// Bars overrides generated data per timeframe.
	Bars map[model.Timeframe][]model.Candle
	// Err, when set, is returned for every call.
	Err error
	// End anchors generated bars; zero means now.
	End time.Time

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockFetcher) FetchBars(_ context.Context, _ string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[tf]; ok {
		return trimTail(bars, limit), nil
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	return generateMockBars(m.Price, tf, end, limit), nil
}

// generateMockBars draws a gentle sine wave ending at the bar containing end.
func generateMockBars(basePrice float64, tf model.Timeframe, end time.Time, count int) []model.Candle {
	step := tf.Duration()
	if step == 0 || count <= 0 {
		return nil
	}
	last := end.Truncate(step)
	bars := make([]model.Candle, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.002*math.Sin(float64(i)/6))
		prev := basePrice * (1 + 0.002*math.Sin(float64(i-1)/6))
		bars[i] = model.Candle{
			Time:   last.Add(-time.Duration(count-1-i) * step),
			Open:   prev,
			High:   math.Max(p, prev) * 1.0005,
			Low:    math.Min(p, prev) * 0.9995,
			Close:  p,
			Volume: 1000,
		}
	}
	return bars
}
