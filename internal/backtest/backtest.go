// Package backtest replays detected setups against the candles that
// followed them.
//
// A setup fills at its entry price on the first bar after its rejection
// candle whose range touches the entry band (entry +/- EntryTolerance),
// within MaxBarsToFill bars. From the fill bar on, the stop is checked
// before the target, so a bar that spans both counts as a loss. Trades that neither stop nor target within MaxBarsHeld bars are
// reported as unresolved and left out of the P&L.
package backtest

import (
	"slices"
	"sort"
	"time"

	"WickSentinel/internal/model"
)

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
)

type Params struct {
	MaxBarsToFill int
	MaxBarsHeld   int
}

// Trade is one filled and resolved setup.
type Trade struct {
	Setup      model.Setup `json:"setup"`
	Outcome    Outcome     `json:"outcome"`
	EntryIndex int         `json:"entry_index"`
	EntryTime  time.Time   `json:"entry_time"`
	ExitIndex  int         `json:"exit_index"`
	ExitPrice  float64     `json:"exit_price"`
	BarsHeld   int         `json:"bars_held"`
	PnLPoints  float64     `json:"pnl_points"`
}

// Summary aggregates trades in entry order.
type Summary struct {
	Setups      int     `json:"setups"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Unfilled    int     `json:"unfilled"`
	Unresolved  int     `json:"unresolved"`
	WinRatePct  float64 `json:"win_rate_pct"`
	TotalPoints float64 `json:"total_points"`
	MaxDrawdown float64 `json:"max_drawdown_points"`
	AvgBarsHeld float64 `json:"avg_bars_held"`
}

type status int

const (
	resolved status = iota
	unfilled
	unresolved
)

// Run simulates every setup against series and summarizes the results.
func Run(series model.CandleSeries, setups []model.Setup, p Params) ([]Trade, Summary) {
	sum := Summary{Setups: len(setups)}
	var trades []Trade
	for _, s := range setups {
		tr, st := simulate(series, s, p)
		switch st {
		case unfilled:
			sum.Unfilled++
		case unresolved:
			sum.Unresolved++
		default:
			trades = append(trades, tr)
		}
	}
	slices.SortStableFunc(trades, func(a, b Trade) int { return a.EntryTime.Compare(b.EntryTime) })

	var equity, peak, held float64
	for _, t := range trades {
		sum.Trades++
		if t.Outcome == Win {
			sum.Wins++
		} else {
			sum.Losses++
		}
		sum.TotalPoints += t.PnLPoints
		held += float64(t.BarsHeld)

		equity += t.PnLPoints
		peak = max(peak, equity)
		sum.MaxDrawdown = max(sum.MaxDrawdown, peak-equity)
	}
	if sum.Trades > 0 {
		sum.WinRatePct = 100 * float64(sum.Wins) / float64(sum.Trades)
		sum.AvgBarsHeld = held / float64(sum.Trades)
	}
	return trades, sum
}

// setupBar is the last bar opening at or before the setup's rejection candle.
func setupBar(series model.CandleSeries, formedAt time.Time) int {
	n := sort.Search(series.Len(), func(i int) bool {
		return series.At(i).Time.After(formedAt)
	})
	return n - 1
}

func simulate(series model.CandleSeries, s model.Setup, p Params) (Trade, status) {
	start := setupBar(series, s.FormedAt)
	if start < 0 {
		return Trade{}, unfilled
	}

	entry := -1
	for j := start + 1; j <= start+p.MaxBarsToFill && j < series.Len(); j++ {
		c := series.At(j)
		if c.Low <= s.EntryPrice+s.EntryTolerance && c.High >= s.EntryPrice-s.EntryTolerance {
			entry = j
			break
		}
	}
	if entry < 0 {
		return Trade{}, unfilled
	}

	tr := Trade{Setup: s, EntryIndex: entry, EntryTime: series.At(entry).Time}
	for j := entry; j <= entry+p.MaxBarsHeld && j < series.Len(); j++ {
		c := series.At(j)
		if out, price, ok := exit(s, c); ok {
			tr.Outcome = out
			tr.ExitIndex = j
			tr.ExitPrice = price
			tr.BarsHeld = j - entry
			tr.PnLPoints = price - s.EntryPrice
			if s.Direction == model.Bearish {
				tr.PnLPoints = -tr.PnLPoints
			}
			return tr, resolved
		}
	}
	return Trade{}, unresolved
}

func exit(s model.Setup, c model.Candle) (Outcome, float64, bool) {
	if s.Direction == model.Bullish {
		switch {
		case c.Low <= s.StopPrice:
			return Loss, s.StopPrice, true
		case c.High >= s.TargetPrice:
			return Win, s.TargetPrice, true
		}
		return "", 0, false
	}
	switch {
	case c.High >= s.StopPrice:
		return Loss, s.StopPrice, true
	case c.Low <= s.TargetPrice:
		return Win, s.TargetPrice, true
	}
	return "", 0, false
}
