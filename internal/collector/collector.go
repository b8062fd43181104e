package collector

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"WickSentinel/internal/model"
)

// Collector fetches every series one detection pass needs.
type Collector struct {
	Fetcher     Fetcher
	Primary     model.Timeframe
	Lookback    int
	HTFLookback int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, primary model.Timeframe, lookback, htfLookback int) *Collector {
	return &Collector{Fetcher: fetcher, Primary: primary, Lookback: lookback, HTFLookback: htfLookback}
}

// Collect fetches the primary series plus 1h and daily, and builds 4h from
// 1h. A primary failure is returned; higher-timeframe failures are logged
// and leave that timeframe out, which reads as neutral bias.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.Snapshot, error) {
	primaryBars, err := c.Fetcher.FetchBars(ctx, symbol, c.Primary, c.Lookback)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars: %w", c.Primary, err)
	}
	primary, err := model.NewSeries(symbol, c.Primary, normalize(primaryBars))
	if err != nil {
		return nil, fmt.Errorf("build %s series: %w", c.Primary, err)
	}
	if primary.Len() == 0 {
		return nil, fmt.Errorf("fetch %s bars: %w", c.Primary, ErrNoData)
	}

	snap := &model.Snapshot{
		Symbol:    symbol,
		Primary:   primary,
		HTF:       make(map[model.Timeframe]model.CandleSeries, 3),
		FetchedAt: time.Now(),
	}

	// 4h needs four hourly bars per bar.
	hourly, err := c.Fetcher.FetchBars(ctx, symbol, model.TF1h, c.HTFLookback*4)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("1h fetch failed, 1h and 4h bias read neutral")
	} else {
		hourly = normalize(hourly)
		c.addHTF(snap, model.TF1h, trimTail(hourly, c.HTFLookback))
		c.addHTF(snap, model.TF4h, aggregateHours(hourly, 4))
	}

	daily, err := c.Fetcher.FetchBars(ctx, symbol, model.TF1d, c.HTFLookback)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("daily fetch failed, daily bias reads neutral")
	} else {
		c.addHTF(snap, model.TF1d, normalize(daily))
	}
	return snap, nil
}

func (c *Collector) addHTF(snap *model.Snapshot, tf model.Timeframe, bars []model.Candle) {
	series, err := model.NewSeries(snap.Symbol, tf, bars)
	if err != nil {
		log.Warn().Err(err).Str("symbol", snap.Symbol).Str("timeframe", string(tf)).Msg("dropping higher timeframe")
		return
	}
	snap.HTF[tf] = series
}

// IsStale reports whether the newest primary bar closed more than
// staleAfter before now.
func IsStale(snap *model.Snapshot, now time.Time, staleAfter time.Duration) bool {
	last, ok := snap.LastPrimaryTime()
	if !ok {
		return true
	}
	return now.Sub(last) > snap.Primary.Timeframe.Duration()+staleAfter
}

// normalize sorts bars by open time, keeps the last of any duplicate
// timestamps and drops bars with no prices.
func normalize(bars []model.Candle) []model.Candle {
	sorted := slices.Clone(bars)
	slices.SortStableFunc(sorted, func(a, b model.Candle) int { return a.Time.Compare(b.Time) })
	out := sorted[:0]
	for _, b := range sorted {
		if b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// aggregateHours merges hourly bars into n-hour bars on UTC n-hour
// boundaries. Partial buckets are kept.
func aggregateHours(hourly []model.Candle, n int) []model.Candle {
	if len(hourly) == 0 || n <= 0 {
		return nil
	}
	span := time.Duration(n) * time.Hour
	var out []model.Candle
	var bucket model.Candle
	started := false

	for _, h := range hourly {
		start := h.Time.Truncate(span)
		if !started || !start.Equal(bucket.Time) {
			if started {
				out = append(out, bucket)
			}
			bucket = model.Candle{Time: start, Open: h.Open, High: h.High, Low: h.Low, Close: h.Close, Volume: h.Volume}
			started = true
			continue
		}
		bucket.High = max(bucket.High, h.High)
		bucket.Low = min(bucket.Low, h.Low)
		bucket.Close = h.Close
		bucket.Volume += h.Volume
	}
	if started {
		out = append(out, bucket)
	}
	return out
}
