package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"WickSentinel/internal/model"
)

// ErrNoData is returned when a feed answered but had no usable bars.
var ErrNoData = errors.New("no data")

// Fetcher defines the interface for fetching candles from a market-data feed.
type Fetcher interface {
	// FetchBars returns up to limit of the most recent bars, oldest first.
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// trimTail keeps the last limit bars.
func trimTail(bars []model.Candle, limit int) []model.Candle {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}
