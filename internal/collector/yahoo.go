package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"WickSentinel/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// Intraday futures data is delayed.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooFetcher{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"NQ":  "NQ=F",
			"ES":  "ES=F",
			"MNQ": "MNQ=F",
			"MES": "MES=F",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooInterval maps a timeframe to the chart interval and the smallest
// range that holds limit bars. Yahoo caps intraday history per interval.
func yahooInterval(tf model.Timeframe, limit int) (interval, rng string, err error) {
	// Futures trade about 23 hours a day, 5 days a week.
	tradingDays := func(barsPerDay float64) float64 { return float64(limit) / barsPerDay * 7 / 5 }
	pick := func(days float64, ranges []string, spans []float64) string {
		for i, span := range spans {
			if days <= span {
				return ranges[i]
			}
		}
		return ranges[len(ranges)-1]
	}
	switch tf {
	case model.TF1m:
		return "1m", pick(tradingDays(23*60), []string{"1d", "5d"}, []float64{1, 5}), nil
	case model.TF5m:
		return "5m", pick(tradingDays(23*12), []string{"1d", "5d", "1mo"}, []float64{1, 5, 30}), nil
	case model.TF15m:
		return "15m", pick(tradingDays(23*4), []string{"5d", "1mo"}, []float64{5, 30}), nil
	case model.TF1h:
		return "60m", pick(tradingDays(23), []string{"5d", "1mo", "3mo", "6mo", "1y", "2y"}, []float64{5, 30, 90, 180, 365, 730}), nil
	case model.TF1d:
		return "1d", pick(float64(limit)*7/5, []string{"1mo", "3mo", "6mo", "1y", "2y", "5y"}, []float64{30, 90, 180, 365, 730, 1825}), nil
	default:
		return "", "", fmt.Errorf("yahoo: unsupported timeframe %q", tf)
	}
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	interval, rng, err := yahooInterval(tf, limit)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	bars, err := parseYahooChart(body)
	if err != nil {
		return nil, err
	}
	return trimTail(normalize(bars), limit), nil
}

// parseYahooChart reads the first chart result. Bars with any null price
// (halts, holidays) are skipped.
func parseYahooChart(body []byte) ([]model.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo decode: invalid json")
	}
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, fmt.Errorf("yahoo api error: %s", desc.String())
	}
	result := gjson.GetBytes(body, "chart.result.0")
	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("yahoo: %w", ErrNoData)
	}

	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]model.Candle, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		if opens[i].Type == gjson.Null || highs[i].Type == gjson.Null ||
			lows[i].Type == gjson.Null || closes[i].Type == gjson.Null {
			continue
		}
		var vol float64
		if i < len(volumes) {
			vol = volumes[i].Float()
		}
		bars = append(bars, model.Candle{
			Time:   time.Unix(ts.Int(), 0).UTC(),
			Open:   opens[i].Float(),
			High:   highs[i].Float(),
			Low:    lows[i].Float(),
			Close:  closes[i].Float(),
			Volume: vol,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo: %w", ErrNoData)
	}
	return bars, nil
}
