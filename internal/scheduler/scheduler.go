// Package scheduler runs the streaming poll loop: fetch, detect, dedup,
// deliver, record.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"WickSentinel/internal/collector"
	"WickSentinel/internal/config"
	"WickSentinel/internal/dedup"
	"WickSentinel/internal/metrics"
	"WickSentinel/internal/model"
	"WickSentinel/internal/notifier"
	"WickSentinel/internal/recorder"
	"WickSentinel/internal/strategy"
)

// Collector supplies one snapshot per symbol.
type Collector interface {
	Collect(ctx context.Context, symbol string) (*model.Snapshot, error)
}

// Detector runs the detection pipeline on a snapshot.
type Detector interface {
	Detect(snap *model.Snapshot) strategy.Result
}

// ParseSchedule returns the poll schedule. A positive interval wins over
// the cron spec; cron expressions may carry an optional leading seconds field.
func ParseSchedule(spec string, interval time.Duration) (cron.Schedule, error) {
	if interval > 0 {
		return cron.Every(interval), nil
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse poll_cron %q: %w", spec, err)
	}
	return sched, nil
}

// Watcher owns the seen state and the poll loop. RunCycle must only be
// called from one goroutine; Status and HandleCommand are safe anywhere.
type Watcher struct {
	Symbols    []string
	Collector  Collector
	Detector   Detector
	Sinks      []notifier.Sink
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Schedule   cron.Schedule
	StateFile  string
	StaleAfter time.Duration
	// Lookback is the requested primary window. Keys are pruned only
	// against a window that came back complete.
	Lookback   int
	RunOnStart bool
	// BotStart excludes setups formed before the process started.
	BotStart time.Time
	Now      func() time.Time

	state *dedup.State

	mu     sync.Mutex
	status notifier.Status
}

// NewWatcher builds a watcher from cfg and restores the seen state.
func NewWatcher(cfg *config.Config, col Collector, det Detector, sinks []notifier.Sink, rec recorder.Recorder, m *metrics.Metrics) (*Watcher, error) {
	sched, err := ParseSchedule(cfg.Data.PollCron, cfg.Data.PollInterval)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}

	state := dedup.NewState()
	if cfg.State.SeenFile != "" {
		loaded, err := dedup.LoadState(cfg.State.SeenFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.State.SeenFile).Msg("seen state unreadable, starting empty")
		} else {
			state = loaded
		}
	}

	now := time.Now()
	w := &Watcher{
		Symbols:    cfg.Data.Symbols,
		Collector:  col,
		Detector:   det,
		Sinks:      sinks,
		Recorder:   rec,
		Metrics:    m,
		Schedule:   sched,
		StateFile:  cfg.State.SeenFile,
		StaleAfter: cfg.Data.StaleAfter,
		Lookback:   cfg.Data.LookbackBars,
		BotStart:   now,
		Now:        time.Now,
		state:      state,
	}
	w.status = notifier.Status{StartedAt: now, Symbols: cfg.Data.Symbols, Seen: state.Len()}
	return w, nil
}

// Run blocks, running one cycle per schedule tick until ctx is cancelled.
// Cancellation is only observed between cycles.
func (w *Watcher) Run(ctx context.Context) error {
	if w.RunOnStart && ctx.Err() == nil {
		w.RunCycle(ctx)
	}
	for {
		now := w.Now()
		next := w.Schedule.Next(now)
		log.Debug().Time("next", next).Msg("waiting for next poll")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("watcher stopped")
			return nil
		case <-timer.C:
		}
		w.RunCycle(ctx)
	}
}

// RunCycle polls every symbol once, then prunes and checkpoints the seen
// state.
func (w *Watcher) RunCycle(ctx context.Context) notifier.Status {
	ctx = context.WithoutCancel(ctx)
	started := w.Now()
	cycleID := uuid.NewString()

	st := w.Status()
	st.LastCycleAt = started
	st.CycleID = cycleID
	st.Symbols = w.Symbols
	st.Candidates, st.Delivered, st.Failed = 0, 0, 0
	st.Stale, st.FetchErrors = nil, nil

	for _, symbol := range w.Symbols {
		w.runSymbol(ctx, cycleID, symbol, &st)
	}

	if n := w.state.PruneUnwatched(w.Symbols); n > 0 {
		log.Debug().Int("pruned", n).Msg("forgot setups of unwatched symbols")
	}
	if w.StateFile != "" {
		if err := dedup.SaveState(w.StateFile, w.state); err != nil {
			log.Error().Err(err).Str("file", w.StateFile).Msg("save seen state")
		}
	}
	st.Seen = w.state.Len()

	took := w.Now().Sub(started)
	w.Metrics.CycleDone(took, st.Seen, w.Now())
	log.Info().
		Str("cycle_id", cycleID).
		Int("new", st.Candidates).
		Int("delivered", st.Delivered).
		Int("failed", st.Failed).
		Dur("took", took).
		Msg("poll cycle done")

	w.mu.Lock()
	w.status = st
	w.mu.Unlock()
	return st
}

func (w *Watcher) runSymbol(ctx context.Context, cycleID, symbol string, st *notifier.Status) {
	started := w.Now()
	evt := recorder.CycleEvent{CycleID: cycleID, Symbol: symbol, StartedAt: started}
	logger := log.With().Str("cycle_id", cycleID).Str("symbol", symbol).Logger()

	snap, err := w.Collector.Collect(ctx, symbol)
	if err != nil {
		logger.Warn().Err(err).Msg("no data this cycle")
		st.FetchErrors = append(st.FetchErrors, symbol)
		w.Metrics.FetchFailed(symbol)
		evt.FetchError = err.Error()
		w.recordCycle(ctx, evt, started)
		return
	}

	if snap.Primary.Len() > 0 && snap.Primary.Len() >= w.Lookback {
		if n := w.state.PruneWindow(symbol, snap.Primary.Timeframe, snap.Primary.At(0).Time); n > 0 {
			logger.Debug().Int("pruned", n).Msg("forgot setups outside the fetch window")
		}
	}

	res := w.Detector.Detect(snap)
	evt.Candles = res.Stats.Candles
	evt.RejectionBlocks = res.Stats.RejectionBlocks
	evt.InKillzone = res.Stats.InKillzone
	evt.RiskFeasible = res.Stats.RiskFeasible
	evt.Setups = res.Stats.Setups
	w.Metrics.ObserveStage(symbol, metrics.StageRejectionBlocks, res.Stats.RejectionBlocks)
	w.Metrics.ObserveStage(symbol, metrics.StageInKillzone, res.Stats.InKillzone)
	w.Metrics.ObserveStage(symbol, metrics.StageRiskFeasible, res.Stats.RiskFeasible)
	w.Metrics.ObserveStage(symbol, metrics.StageSetups, res.Stats.Setups)

	fresh := dedup.FilterNew(res.Setups, w.state, w.BotStart)
	evt.NewSetups = len(fresh)
	st.Candidates += len(fresh)
	w.Metrics.ObserveStage(symbol, metrics.StageNew, len(fresh))
	logger.Debug().
		Int("rejection_blocks", res.Stats.RejectionBlocks).
		Int("setups", len(res.Setups)).
		Int("new", len(fresh)).
		Str("bias_1h", string(res.Bias.H1)).
		Str("bias_4h", string(res.Bias.H4)).
		Str("bias_1d", string(res.Bias.Daily)).
		Msg("detection done")

	if collector.IsStale(snap, w.Now(), w.StaleAfter) {
		last, _ := snap.LastPrimaryTime()
		logger.Warn().Time("last_bar", last).Msg("stale data, holding delivery")
		st.Stale = append(st.Stale, symbol)
		evt.Stale = true
		w.Metrics.StaleSkipped(symbol)
		w.recordCycle(ctx, evt, started)
		return
	}

	for _, setup := range fresh {
		delivered := w.deliver(ctx, setup)
		if delivered {
			w.state.Record(setup)
			st.Delivered++
			evt.Delivered++
		} else {
			st.Failed++
		}
		if err := w.Recorder.RecordSetup(ctx, recorder.SetupRecord{CycleID: cycleID, Setup: setup, Delivered: delivered}); err != nil {
			logger.Error().Err(err).Msg("record setup")
		}
	}
	w.Metrics.ObserveStage(symbol, metrics.StageDelivered, evt.Delivered)
	w.recordCycle(ctx, evt, started)
}

// deliver reports true only when every sink accepted the setup.
func (w *Watcher) deliver(ctx context.Context, setup model.Setup) bool {
	ok := true
	for _, sink := range w.Sinks {
		if err := sink.Send(ctx, setup); err != nil {
			log.Error().Err(err).
				Str("sink", sink.Name()).
				Str("symbol", setup.Symbol).
				Str("direction", string(setup.Direction)).
				Msg("delivery failed, will retry next cycle")
			w.Metrics.DeliveryFailed(sink.Name())
			ok = false
		}
	}
	return ok
}

func (w *Watcher) recordCycle(ctx context.Context, evt recorder.CycleEvent, started time.Time) {
	evt.Duration = w.Now().Sub(started)
	if err := w.Recorder.RecordCycle(ctx, evt); err != nil {
		log.Error().Err(err).Str("symbol", evt.Symbol).Msg("record cycle")
	}
}

// Status returns a copy of the last cycle summary.
func (w *Watcher) Status() notifier.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// HandleCommand answers a chat command.
func (w *Watcher) HandleCommand(command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), "@")
	switch strings.ToLower(cmd) {
	case "/status":
		return notifier.FormatStatus(w.Status())
	default:
		return notifier.FormatHelp()
	}
}
