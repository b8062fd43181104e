package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"WickSentinel/internal/backtest"
	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
	"WickSentinel/internal/strategy"
)

var (
	backtestDays      int
	backtestTimeframe string
	backtestDiagnose  bool
	backtestTrades    bool
	backtestJSON      bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay detected setups over recent history",
	Long: `Fetch recent history, run the same detection as watch and simulate each
setup: entry on the first retest of the entry price, then stop or target,
whichever comes first.

Examples:
  wicksentinel backtest --days 30
  wicksentinel backtest --timeframe 1h --days 180
  wicksentinel backtest --diagnose --trades`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().IntVar(&backtestDays, "days", 60, "Days of history")
	backtestCmd.Flags().StringVar(&backtestTimeframe, "timeframe", "", "Primary timeframe override (1m, 5m, 15m, 1h)")
	backtestCmd.Flags().BoolVar(&backtestDiagnose, "diagnose", false, "Print pipeline stage counts")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "Print each trade")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "Print summaries as JSON")
}

// historyBars converts days into primary bars, capped at what free feeds serve.
func historyBars(tf model.Timeframe, days int) int {
	d := tf.Duration()
	if d == 0 || days <= 0 {
		return 500
	}
	n := int(24 * 60 * float64(days) / d.Minutes())
	return min(max(n, 500), 10000)
}

type symbolReport struct {
	Symbol  string           `json:"symbol"`
	Stats   strategy.Stats   `json:"stats"`
	Summary backtest.Summary `json:"summary"`
	Trades  []backtest.Trade `json:"trades,omitempty"`
}

func runBacktest(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(func(cfg *config.Config) int {
		if backtestTimeframe != "" {
			cfg.Data.TimeframePrimary = backtestTimeframe
			// A backtest never polls.
			cfg.Data.PollInterval = 0
			if cfg.Data.PollCron == "" {
				cfg.Data.PollCron = config.Default().Data.PollCron
			}
		}
		return historyBars(cfg.Data.Primary(), backtestDays)
	})
	if err != nil {
		return err
	}
	params := backtest.Params{
		MaxBarsToFill: p.cfg.Backtest.MaxBarsToFill,
		MaxBarsHeld:   p.cfg.Backtest.MaxBarsHeld,
	}

	var reports []symbolReport
	for _, symbol := range p.cfg.Data.Symbols {
		snap, err := p.collector.Collect(cmd.Context(), symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("skipping symbol")
			continue
		}
		res := p.engine.Detect(snap)
		trades, sum := backtest.Run(snap.Primary, res.Setups, params)
		r := symbolReport{Symbol: symbol, Stats: res.Stats, Summary: sum}
		if backtestTrades {
			r.Trades = trades
		}
		reports = append(reports, r)
	}

	out := cmd.OutOrStdout()
	if backtestJSON {
		return writeJSON(out, reports)
	}
	for _, r := range reports {
		printReport(out, r, backtestDiagnose || r.Summary.Trades == 0)
	}
	return nil
}

func printReport(out io.Writer, r symbolReport, diagnose bool) {
	if diagnose {
		st := r.Stats
		fmt.Fprintf(out, "\n--- %s pipeline ---\n", r.Symbol)
		fmt.Fprintf(out, "  Candles:                  %d\n", st.Candles)
		fmt.Fprintf(out, "  Swings / FVGs / OBs:      %d / %d / %d\n", st.Swings, st.FVGs, st.OrderBlocks)
		fmt.Fprintf(out, "  Liquidity sweeps:         %d\n", st.Sweeps)
		fmt.Fprintf(out, "  Rejection blocks:         %d\n", st.RejectionBlocks)
		fmt.Fprintf(out, "  In killzone:              %d\n", st.InKillzone)
		fmt.Fprintf(out, "  Risk feasible:            %d\n", st.RiskFeasible)
		fmt.Fprintf(out, "  Setups (score >= min):    %d\n", st.Setups)
	}

	s := r.Summary
	fmt.Fprintf(out, "\n--- %s backtest ---\n", r.Symbol)
	fmt.Fprintf(out, "  Setups:        %d (unfilled %d, unresolved %d)\n", s.Setups, s.Unfilled, s.Unresolved)
	fmt.Fprintf(out, "  Trades:        %d\n", s.Trades)
	fmt.Fprintf(out, "  Wins:          %d\n", s.Wins)
	fmt.Fprintf(out, "  Losses:        %d\n", s.Losses)
	fmt.Fprintf(out, "  Win rate:      %.1f%%\n", s.WinRatePct)
	fmt.Fprintf(out, "  Total P&L:     %.1f points\n", s.TotalPoints)
	fmt.Fprintf(out, "  Max drawdown:  %.1f points\n", s.MaxDrawdown)
	fmt.Fprintf(out, "  Avg bars held: %.1f\n", s.AvgBarsHeld)

	for _, t := range r.Trades {
		fmt.Fprintf(out, "  %s %s %s PnL=%.1f bars=%d\n",
			t.EntryTime.Format("2006-01-02 15:04"), t.Setup.Direction, t.Outcome, t.PnLPoints, t.BarsHeld)
	}
}
