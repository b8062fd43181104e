package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"WickSentinel/internal/metrics"
	"WickSentinel/internal/notifier"
	"WickSentinel/internal/recorder"
	"WickSentinel/internal/scheduler"
)

var (
	watchNoTelegram bool
	watchRunNow     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll on a schedule and alert on new setups",
	Long: `Poll every configured symbol on data.poll_cron (or data.poll_interval),
alert each new setup once through the log and Telegram, and remember what was
delivered across restarts.

Examples:
  wicksentinel watch
  wicksentinel watch --no-telegram --run-now`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchNoTelegram, "no-telegram", false, "Log setups only")
	watchCmd.Flags().BoolVar(&watchRunNow, "run-now", os.Getenv("RUN_ON_START") == "true", "Run one cycle immediately")
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(nil)
	if err != nil {
		return err
	}
	cfg := p.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := recorder.Open(ctx, cfg.Database)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Database.Backend).Msg("recorder unavailable, using noop")
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	sinks := []notifier.Sink{notifier.LogSink{Location: p.location()}}
	var tn *notifier.TelegramNotifier
	switch {
	case watchNoTelegram:
		log.Info().Msg("telegram disabled by flag")
	case cfg.ValidateTelegram() != nil:
		log.Warn().Err(cfg.ValidateTelegram()).Msg("telegram not configured, logging setups only")
	default:
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.MessagesPerSecond)
		tn.Location = p.location()
		sinks = append(sinks, tn)
	}

	m := metrics.New()
	w, err := scheduler.NewWatcher(cfg, p.collector, p.engine, sinks, rec, m)
	if err != nil {
		return err
	}
	w.RunOnStart = watchRunNow

	if cfg.Metrics.ListenAddr != "" {
		srv := metrics.NewServer(cfg.Metrics.ListenAddr, m, func() any { return w.Status() })
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("metrics server shutdown")
			}
		}()
	}

	if tn != nil {
		var zones []string
		for _, win := range p.engine.Killzones().Windows() {
			zones = append(zones, win.String())
		}
		msg := notifier.FormatSessionStart(time.Now().In(p.location()), cfg.Data.Symbols, p.primary(), zones)
		if err := tn.SendWithRetry(ctx, msg, 3); err != nil {
			log.Error().Err(err).Msg("send session start")
		}
		go tn.StartPolling(ctx, w.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	log.Info().Strs("symbols", cfg.Data.Symbols).Str("timeframe", string(p.primary())).Msg("WickSentinel is running, press Ctrl+C to stop")
	if err := w.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("WickSentinel stopped")
	return nil
}
