package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"WickSentinel/internal/collector"
	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
	"WickSentinel/internal/strategy"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "wicksentinel",
	Short: "Rejection-block setup detector for index futures",
	Long: `WickSentinel scans futures candles for long-wick rejection blocks at
market structure, scores them by confluence and reports entry, stop and
target levels. It never places orders.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
}

func init() {
	path := defaultConfigPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", path, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// loadConfig reads and validates the config. Any failure is fatal for the
// calling command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.Data.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Data.BaseURL, cfg.Proxy, cfg.Data.RequestTimeout), nil
	case "rest":
		return collector.NewRESTFetcher(cfg.Data.BaseURL, cfg.Data.APIKey, cfg.Proxy, cfg.Data.RequestTimeout), nil
	case "mock":
		return &collector.MockFetcher{Price: 18000}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}
}

// pipeline is what every subcommand needs to run detection.
type pipeline struct {
	cfg       *config.Config
	engine    *strategy.Engine
	collector *collector.Collector
}

// newPipeline loads the config and builds the engine and collector. tune may
// adjust the config before the engine is built and returns the primary
// lookback; a nil tune uses data.lookback_bars.
func newPipeline(tune func(*config.Config) int) (*pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	bars := cfg.Data.LookbackBars
	if tune != nil {
		bars = tune(cfg)
	}
	engine, err := strategy.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	fetcher = collector.NewBreakerFetcher(fetcher, 3, 2*time.Minute)
	log.Info().Str("provider", fetcher.Name()).Strs("symbols", cfg.Data.Symbols).Msg("data source ready")
	return &pipeline{
		cfg:       cfg,
		engine:    engine,
		collector: collector.NewCollector(fetcher, cfg.Data.Primary(), bars, cfg.HTFBias.LookbackBars),
	}, nil
}

func (p *pipeline) location() *time.Location {
	return p.engine.Killzones().Location()
}

func (p *pipeline) primary() model.Timeframe { return p.cfg.Data.Primary() }

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
