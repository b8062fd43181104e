// Package strategy scores rejection blocks into ranked, leveled setups.
package strategy

import (
	"cmp"
	"fmt"
	"slices"

	"WickSentinel/internal/calculator"
	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
	"WickSentinel/internal/rejection"
	"WickSentinel/internal/session"
	"WickSentinel/internal/structure"
	"WickSentinel/internal/wick"
)

// Stats counts candidates surviving each stage of one pass.
type Stats struct {
	Candles         int `json:"candles"`
	Swings          int `json:"swings"`
	FVGs            int `json:"fvgs"`
	OrderBlocks     int `json:"order_blocks"`
	Sweeps          int `json:"sweeps"`
	RejectionBlocks int `json:"rejection_blocks"`
	InKillzone      int `json:"in_killzone"`
	RiskFeasible    int `json:"risk_feasible"`
	Setups          int `json:"setups"`
}

// Add accumulates another pass into s.
func (s *Stats) Add(o Stats) {
	s.Candles += o.Candles
	s.Swings += o.Swings
	s.FVGs += o.FVGs
	s.OrderBlocks += o.OrderBlocks
	s.Sweeps += o.Sweeps
	s.RejectionBlocks += o.RejectionBlocks
	s.InKillzone += o.InKillzone
	s.RiskFeasible += o.RiskFeasible
	s.Setups += o.Setups
}

// Result is the output of one detection pass.
type Result struct {
	Setups []model.Setup
	Bias   model.HTFBias
	Stats  Stats
}

type weightsByKind map[model.ConfluenceKind]float64

// Engine runs the full pipeline for one configuration.
type Engine struct {
	cfg       config.Config
	killzones *session.Filter
	kindW     weightsByKind
}

// NewEngine validates cfg and refuses to build an engine from a bad one.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kz, err := cfg.Killzone.Filter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	w := cfg.Confluence.Weights
	return &Engine{
		cfg:       *cfg,
		killzones: kz,
		kindW: weightsByKind{
			model.ConfluenceFVG:            w.FVG,
			model.ConfluenceOrderBlock:     w.OrderBlock,
			model.ConfluenceLiquiditySweep: w.LiquiditySweep,
			model.ConfluenceSwingPoint:     w.SwingLevel,
		},
	}, nil
}

// Killzones exposes the session filter the engine applies.
func (e *Engine) Killzones() *session.Filter { return e.killzones }

// Structure runs the structure detectors over one series. The same call
// serves any timeframe.
func (e *Engine) Structure(series model.CandleSeries) rejection.Structure {
	sc := e.cfg.Structure
	swings := structure.DetectSwings(series, sc.SwingLeft, sc.SwingRight)
	atr := calculator.ComputeATR(series, sc.ATRWindow, calculator.ATRMethod(sc.ATRMethod))
	return rejection.Structure{
		Swings:      swings,
		FVGs:        structure.DetectFVGs(series),
		OrderBlocks: structure.DetectOrderBlocks(series, atr, sc.ImpulseATRMultiple, sc.MinImpulseBars),
		Sweeps:      structure.DetectSweeps(series, swings, sc.MaxReversalBars),
		ATR:         atr,
	}
}

// RejectionBlocks runs structure detection and the rejection detector.
func (e *Engine) RejectionBlocks(series model.CandleSeries) ([]model.RejectionBlock, rejection.Structure) {
	st := e.Structure(series)
	rc := e.cfg.RejectionBlock
	blocks := rejection.Detect(series, st, rejection.Params{
		WickATRMultiple:  rc.WickATRMultiple,
		WickBodyRatioMin: rc.WickBodyRatioMin,
		TolerancePoints:  rc.TolerancePoints,
		SwingRightBars:   e.cfg.Structure.SwingRight,
		RequireReversal:  rc.RequireReversal,
		ReversalBars:     rc.ReversalBars,
	})
	return blocks, st
}

// Detect runs the whole pipeline on a snapshot.
func (e *Engine) Detect(snap *model.Snapshot) Result {
	bias := ComputeHTFBias(snap.HTF, e.cfg.HTFBias.LookbackBars)
	series := snap.Primary
	if series.Symbol == "" {
		series.Symbol = snap.Symbol
	}

	blocks, st := e.RejectionBlocks(series)
	setups, stats := e.ScoreAndRank(series, blocks, bias)
	stats.Candles = series.Len()
	stats.Swings = len(st.Swings)
	stats.FVGs = len(st.FVGs)
	stats.OrderBlocks = len(st.OrderBlocks)
	stats.Sweeps = len(st.Sweeps)
	return Result{Setups: setups, Bias: bias, Stats: stats}
}

// ScoreAndRank turns rejection blocks into setups, highest score first and
// the most recent first among equal scores. Blocks outside every killzone,
// with infeasible risk or reward, or scoring under the alert threshold are
// dropped. HTF bias only adds score. Point-based risk limits come from the
// series symbol's profile.
func (e *Engine) ScoreAndRank(series model.CandleSeries, blocks []model.RejectionBlock, bias model.HTFBias) ([]model.Setup, Stats) {
	stats := Stats{RejectionBlocks: len(blocks)}
	inZone := e.killzones.FilterBlocks(blocks)
	stats.InKillzone = len(inZone)

	risk := e.cfg.Risk.For(series.Symbol)
	volAvg := calculator.VolumeAverage(series, risk.VolumeAverageWindow)

	var setups []model.Setup
	for _, rb := range inZone {
		kz, _ := e.killzones.Name(rb.Time)
		spike := calculator.IsVolumeSpike(series, volAvg, rb.Index, risk.VolumeSpikeMultiple)

		lv := e.levels(rb, spike, risk)
		if lv.risk < risk.MinStopPoints || (risk.MaxStopPoints > 0 && lv.risk > risk.MaxStopPoints) {
			continue
		}
		if lv.rr < risk.MinRR || lv.rr > risk.MaxRR {
			continue
		}
		stats.RiskFeasible++

		respect := wick.Evaluate(series, rb.Index, rb.Direction, e.cfg.Wick.EntryFibInWick, e.cfg.Wick.RespectBars)
		factors := e.factors(rb, kz, respect.Respect, bias)
		score := totalScore(factors)
		if score < e.cfg.Confluence.MinScoreToAlert {
			continue
		}

		setups = append(setups, model.Setup{
			Symbol:         series.Symbol,
			Timeframe:      series.Timeframe,
			Direction:      rb.Direction,
			EntryPrice:     lv.entry,
			EntryTolerance: risk.EntryTolerancePoints,
			StopPrice:      lv.stop,
			TargetPrice:    lv.target,
			RiskPoints:     lv.risk,
			RewardToRisk:   lv.rr,
			Score:          score,
			Factors:        factors,
			ConfluenceTags: tags(factors),
			HTFBias:        bias,
			FormedAt:       rb.Time,
			Killzone:       kz,
			RejectionIndex: rb.Index,
			WickHigh:       rb.WickHigh,
			WickLow:        rb.WickLow,
			WickRespect:    respect.Respect,
			VolumeSpike:    spike,
		})
	}
	stats.Setups = len(setups)

	slices.SortStableFunc(setups, func(a, b model.Setup) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return b.FormedAt.Compare(a.FormedAt)
	})
	return setups, stats
}

// levels places entry at the configured fib of the wick and the stop past
// the candle extreme by the buffer, widened on a volume spike.
func (e *Engine) levels(rb model.RejectionBlock, spike bool, r config.RiskConfig) levels {
	fib := e.cfg.Wick.EntryFibInWick
	buffer := r.StopBufferPoints
	if spike {
		buffer += r.VolumeBufferExtra
	}
	span := rb.WickHigh - rb.WickLow
	if rb.Direction == model.Bearish {
		return buildLevels(rb.Direction, rb.WickHigh-fib*span, rb.CandleHigh+buffer, r.TargetRR, r.TickSize)
	}
	return buildLevels(rb.Direction, rb.WickLow+fib*span, rb.CandleLow-buffer, r.TargetRR, r.TickSize)
}

func (e *Engine) factors(rb model.RejectionBlock, kz model.Killzone, respect model.WickRespect, bias model.HTFBias) []model.FactorScore {
	w := e.cfg.Confluence.Weights
	neutral := e.cfg.HTFBias.TreatNeutralAsAligned
	factors := []model.FactorScore{scoreRejectionBlock(rb, w.RejectionBlock)}
	factors = append(factors, scoreConfluences(rb, e.kindW)...)
	factors = append(factors,
		scoreKillzone(kz, w.Killzone),
		scoreWickRespect(respect, w.WickRespect),
		scoreHTF(model.TF1h, bias.H1, rb.Direction, w.HTF1h, neutral),
		scoreHTF(model.TF4h, bias.H4, rb.Direction, w.HTF4h, neutral),
		scoreHTF(model.TF1d, bias.Daily, rb.Direction, w.HTFDaily, neutral),
	)
	return factors
}

// tags lists the names of the factors that contributed.
func tags(factors []model.FactorScore) []string {
	var out []string
	for _, f := range factors {
		if f.RawScore > 0 {
			out = append(out, f.Name)
		}
	}
	return out
}
