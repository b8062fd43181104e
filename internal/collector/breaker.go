package collector

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"WickSentinel/internal/model"
)

// BreakerFetcher wraps a Fetcher in a circuit breaker so a failing feed is
// not hammered every poll. While open, calls fail fast with
// gobreaker.ErrOpenState.
type BreakerFetcher struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerFetcher trips after consecutiveFailures failed calls in a row and
// probes again after cooldown.
func NewBreakerFetcher(next Fetcher, consecutiveFailures uint32, cooldown time.Duration) *BreakerFetcher {
	st := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
	return &BreakerFetcher{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *BreakerFetcher) Name() string { return b.next.Name() }

// State reports the breaker state, e.g. for /status.
func (b *BreakerFetcher) State() gobreaker.State { return b.cb.State() }

func (b *BreakerFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchBars(ctx, symbol, tf, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]model.Candle), nil
}
