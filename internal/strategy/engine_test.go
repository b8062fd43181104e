package strategy

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
)

func nyTime(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2024, 3, 5, hour, minute, 0, 0, loc)
}

// wickless builds a candle with no wicks.
func wickless(open, close float64) model.Candle {
	return model.Candle{Open: open, Close: close, High: max(open, close), Low: min(open, close), Volume: 1000}
}

// rejectionSeries is a 5m NQ series: a flat range at 18100, a bearish gap
// down to 18080 (FVG 18080-18100), a base at 18076, then candle 19 rallies
// into the gap leaving a 21 point upper wick and price drops away.
func rejectionSeries(t *testing.T, start time.Time) model.CandleSeries {
	t.Helper()
	var bars []model.Candle
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			bars = append(bars, wickless(18100, 18102))
		} else {
			bars = append(bars, wickless(18102, 18100))
		}
	}
	bars = append(bars, wickless(18100, 18080), wickless(18080, 18076))
	for i := 0; i < 5; i++ {
		if i%2 == 0 {
			bars = append(bars, wickless(18076, 18078))
		} else {
			bars = append(bars, wickless(18078, 18076))
		}
	}
	bars = append(bars,
		model.Candle{Open: 18077, High: 18098, Low: 18076, Close: 18076, Volume: 1000},
		wickless(18088, 18070),
		wickless(18070, 18060),
	)
	for i := range bars {
		bars[i].Time = start.Add(time.Duration(i) * 5 * time.Minute)
	}
	s, err := model.NewSeries("NQ=F", model.TF5m, bars)
	require.NoError(t, err)
	return s
}

// bearishHTF closes below its lowest confirmed swing low (95).
func bearishHTF(tf model.Timeframe) model.CandleSeries {
	highs := []float64{100, 102, 105, 102, 100, 98, 101, 97, 95, 90}
	lows := []float64{98, 100, 103, 100, 97, 95, 99, 95, 92, 86}
	bars := make([]model.Candle, len(highs))
	for i := range highs {
		bars[i] = model.Candle{Open: highs[i], High: highs[i], Low: lows[i], Close: lows[i] + 1}
	}
	return model.CandleSeries{Symbol: "NQ=F", Timeframe: tf, Candles: bars}
}

// mirror reflects a series around 100 so bearish structure reads bullish.
func mirror(s model.CandleSeries) model.CandleSeries {
	out := s
	out.Candles = make([]model.Candle, len(s.Candles))
	for i, c := range s.Candles {
		out.Candles[i] = model.Candle{Open: 200 - c.Open, High: 200 - c.Low, Low: 200 - c.High, Close: 200 - c.Close}
	}
	return out
}

func htfMap(mk func(model.Timeframe) model.CandleSeries) map[model.Timeframe]model.CandleSeries {
	return map[model.Timeframe]model.CandleSeries{
		model.TF1h: mk(model.TF1h),
		model.TF4h: mk(model.TF4h),
		model.TF1d: mk(model.TF1d),
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RejectionBlock.WickATRMultiple = 3
	cfg.HTFBias.LookbackBars = 10
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestDetectBearishNewYorkSetup(t *testing.T) {
	cfg := testConfig()
	e := newEngine(t, cfg)
	snap := &model.Snapshot{
		Symbol:  "NQ=F",
		Primary: rejectionSeries(t, nyTime(t, 8, 0)),
		HTF:     htfMap(bearishHTF),
	}

	res := e.Detect(snap)
	assert.Equal(t, model.HTFBias{H1: model.BiasBearish, H4: model.BiasBearish, Daily: model.BiasBearish}, res.Bias)
	require.Len(t, res.Setups, 1)

	s := res.Setups[0]
	assert.Equal(t, model.Bearish, s.Direction)
	assert.Equal(t, "short", s.Direction.Side())
	assert.Equal(t, 19, s.RejectionIndex)
	assert.Equal(t, model.KillzoneNewYork, s.Killzone)
	assert.Equal(t, 18087.5, s.EntryPrice, "50% of the 18077-18098 wick")
	assert.Equal(t, 18100.0, s.StopPrice)
	assert.Equal(t, 12.5, s.RiskPoints)
	assert.Equal(t, 5.0, s.RewardToRisk)
	assert.InDelta(t, s.EntryPrice-5*s.RiskPoints, s.TargetPrice, 1e-9)
	assert.Equal(t, model.WickRespected, s.WickRespect)
	assert.False(t, s.VolumeSpike)
	assert.GreaterOrEqual(t, s.Score, cfg.Confluence.MinScoreToAlert)
	assert.Equal(t, 9.0, s.Score)
	assert.Contains(t, s.ConfluenceTags, "fvg")
	assert.Contains(t, s.ConfluenceTags, "killzone")
	assert.Contains(t, s.ConfluenceTags, "htf_1d")

	assert.Equal(t, 1, res.Stats.RejectionBlocks)
	assert.Equal(t, 1, res.Stats.InKillzone)
	assert.Equal(t, 1, res.Stats.RiskFeasible)
	assert.Equal(t, 1, res.Stats.Setups)
	assert.Equal(t, 22, res.Stats.Candles)
}

func TestDetectOutsideKillzone(t *testing.T) {
	e := newEngine(t, testConfig())
	snap := &model.Snapshot{
		Symbol:  "NQ=F",
		Primary: rejectionSeries(t, nyTime(t, 12, 0)),
		HTF:     htfMap(bearishHTF),
	}
	res := e.Detect(snap)
	assert.Empty(t, res.Setups)
	assert.Equal(t, 1, res.Stats.RejectionBlocks)
	assert.Equal(t, 0, res.Stats.InKillzone)
}

func TestHTFBiasNeverExcludes(t *testing.T) {
	e := newEngine(t, testConfig())
	snap := &model.Snapshot{
		Symbol:  "NQ=F",
		Primary: rejectionSeries(t, nyTime(t, 8, 0)),
		HTF:     htfMap(func(tf model.Timeframe) model.CandleSeries { return mirror(bearishHTF(tf)) }),
	}
	res := e.Detect(snap)
	assert.Equal(t, model.BiasBullish, res.Bias.H1)
	require.Len(t, res.Setups, 1)
	assert.Equal(t, 6.0, res.Setups[0].Score)
	assert.NotContains(t, res.Setups[0].ConfluenceTags, "htf_1h")

	snap.HTF = nil
	res = e.Detect(snap)
	require.Len(t, res.Setups, 1)
	assert.Equal(t, model.BiasNeutral, res.Bias.Daily)
}

func TestDetectRiskLimits(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.PerSymbol = nil
	cfg.Risk.MinStopPoints = 13
	e := newEngine(t, cfg)
	snap := &model.Snapshot{Symbol: "NQ=F", Primary: rejectionSeries(t, nyTime(t, 8, 0))}
	assert.Empty(t, e.Detect(snap).Setups)

	cfg = testConfig()
	cfg.Risk.PerSymbol = nil
	cfg.Risk.MaxStopPoints = 12
	cfg.Risk.MinStopPoints = 5
	e = newEngine(t, cfg)
	assert.Empty(t, e.Detect(snap).Setups)
}

func TestDetectPerSymbolRisk(t *testing.T) {
	e := newEngine(t, testConfig())
	detect := func(symbol string) Result {
		series := rejectionSeries(t, nyTime(t, 8, 0))
		series.Symbol = symbol
		return e.Detect(&model.Snapshot{Symbol: symbol, Primary: series, HTF: htfMap(bearishHTF)})
	}

	// NQ: 2 point buffer, 12.5 points of risk inside its 10-15 band.
	nq := detect("NQ=F")
	require.Len(t, nq.Setups, 1)
	assert.Equal(t, 18100.0, nq.Setups[0].StopPrice)
	assert.Equal(t, 2.0, nq.Setups[0].EntryTolerance)

	// ES: 1 point buffer gives 11.5 points, over its 8 point cap.
	es := detect("ES=F")
	assert.Empty(t, es.Setups)
	assert.Equal(t, 1, es.Stats.InKillzone)
	assert.Zero(t, es.Stats.RiskFeasible)

	// Unlisted symbols use the global profile, which has no cap.
	ym := detect("YM=F")
	require.Len(t, ym.Setups, 1)
	assert.Equal(t, 12.5, ym.Setups[0].RiskPoints)
	assert.Zero(t, ym.Setups[0].EntryTolerance)
}

func TestDetectEmptySymbolOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.PerSymbol["ES=F"] = config.SymbolRisk{}
	e := newEngine(t, cfg)
	series := rejectionSeries(t, nyTime(t, 8, 0))
	series.Symbol = "es=f"
	res := e.Detect(&model.Snapshot{Symbol: "es=f", Primary: series})
	require.Len(t, res.Setups, 1, "an empty override keeps every global value")
	assert.Equal(t, 12.5, res.Setups[0].RiskPoints)
}

func TestDetectMinScore(t *testing.T) {
	cfg := testConfig()
	cfg.Confluence.MinScoreToAlert = 9.5
	e := newEngine(t, cfg)
	snap := &model.Snapshot{Symbol: "NQ=F", Primary: rejectionSeries(t, nyTime(t, 8, 0)), HTF: htfMap(bearishHTF)}
	res := e.Detect(snap)
	assert.Empty(t, res.Setups)
	assert.Equal(t, 1, res.Stats.RiskFeasible)
}

func TestScoreAndRankOrdering(t *testing.T) {
	e := newEngine(t, testConfig())
	series := rejectionSeries(t, nyTime(t, 8, 0))
	blocks, _ := e.RejectionBlocks(series)
	require.Len(t, blocks, 1)

	early := blocks[0]
	late := blocks[0]
	late.Time = early.Time.Add(5 * time.Minute)
	rich := blocks[0]
	rich.Time = early.Time.Add(-5 * time.Minute)
	rich.Confluences = append(slices.Clone(rich.Confluences), model.OrderBlockConfluence(model.OrderBlock{Index: 11, High: 18100, Low: 18080, Direction: model.Bearish, ImpulseEnd: 13}))

	setups, _ := e.ScoreAndRank(series, []model.RejectionBlock{early, rich, late}, model.HTFBias{})
	require.Len(t, setups, 3)
	assert.Equal(t, rich.Time, setups[0].FormedAt)
	assert.Equal(t, late.Time, setups[1].FormedAt)
	assert.Equal(t, early.Time, setups[2].FormedAt)
}

func TestEmittedSetupsRespectRiskBounds(t *testing.T) {
	cfg := testConfig()
	e := newEngine(t, cfg)
	for _, hour := range []int{3, 8, 9} {
		snap := &model.Snapshot{Symbol: "NQ=F", Primary: rejectionSeries(t, nyTime(t, hour, 0)), HTF: htfMap(bearishHTF)}
		for _, s := range e.Detect(snap).Setups {
			assert.GreaterOrEqual(t, s.RiskPoints, cfg.Risk.For(s.Symbol).MinStopPoints)
			assert.LessOrEqual(t, s.RiskPoints, cfg.Risk.For(s.Symbol).MaxStopPoints)
			assert.GreaterOrEqual(t, s.RewardToRisk, cfg.Risk.MinRR)
			assert.LessOrEqual(t, s.RewardToRisk, cfg.Risk.MaxRR)
			assert.Greater(t, s.StopPrice, s.WickHigh)
		}
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.TargetRR = 10
	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Structure.ATRWindow = 0
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewEngine(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBuildLevelsTickRounding(t *testing.T) {
	lv := buildLevels(model.Bullish, 100.13, 89.9, 5, 0.25)
	assert.Equal(t, 100.25, lv.entry)
	assert.Equal(t, 89.75, lv.stop, "stop rounds away from entry")
	assert.Equal(t, 10.5, lv.risk)
	assert.Equal(t, 152.75, lv.target)
	assert.Equal(t, 5.0, lv.rr)

	lv = buildLevels(model.Bearish, 100.1, 110.1, 4, 0)
	assert.InDelta(t, 10.0, lv.risk, 1e-9)
	assert.InDelta(t, 60.1, lv.target, 1e-9)
}

func TestComputeBias(t *testing.T) {
	assert.Equal(t, model.BiasBearish, ComputeBias(bearishHTF(model.TF1h), 10))
	assert.Equal(t, model.BiasBullish, ComputeBias(mirror(bearishHTF(model.TF1h)), 10))
	assert.Equal(t, model.BiasNeutral, ComputeBias(bearishHTF(model.TF1h), 20), "insufficient history")
	assert.Equal(t, model.BiasNeutral, ComputeBias(model.CandleSeries{}, 10))
}
