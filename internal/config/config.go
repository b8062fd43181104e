package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"WickSentinel/internal/model"
	"WickSentinel/internal/session"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Telegram       TelegramConfig   `yaml:"telegram"`
	Data           DataConfig       `yaml:"data"`
	Structure      StructureConfig  `yaml:"structure"`
	Wick           WickConfig       `yaml:"wick"`
	RejectionBlock RejectionConfig  `yaml:"rejection_block"`
	Killzone       KillzoneConfig   `yaml:"killzone"`
	HTFBias        HTFBiasConfig    `yaml:"htf_bias"`
	Risk           RiskConfig       `yaml:"risk"`
	Confluence     ConfluenceConfig `yaml:"confluence"`
	Backtest       BacktestConfig   `yaml:"backtest"`
	Database       DatabaseConfig   `yaml:"database"`
	State          StateConfig      `yaml:"state"`
	Metrics        MetricsConfig    `yaml:"metrics"`
	Proxy          string           `yaml:"proxy"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	// MessagesPerSecond paces outgoing sends.
	MessagesPerSecond float64 `yaml:"messages_per_second" validate:"gte=0"`
}

// Configured reports whether both credentials are present.
func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type DataConfig struct {
	Symbols          []string      `yaml:"symbols" validate:"required,min=1,dive,required"`
	Provider         string        `yaml:"provider" validate:"oneof=yahoo rest mock"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	TimeframePrimary string        `yaml:"timeframe_primary" validate:"oneof=1m 5m 15m 1h"`
	LookbackBars     int           `yaml:"lookback_bars" validate:"gte=20"`
	PollCron         string        `yaml:"poll_cron"`
	PollInterval     time.Duration `yaml:"poll_interval" validate:"gte=0"`
	StaleAfter       time.Duration `yaml:"stale_after" validate:"gte=0"`
	RequestTimeout   time.Duration `yaml:"request_timeout" validate:"gte=0"`
}

// Primary returns the primary timeframe.
func (d DataConfig) Primary() model.Timeframe {
	return model.Timeframe(d.TimeframePrimary)
}

type StructureConfig struct {
	SwingLeft          int     `yaml:"swing_left" validate:"gte=1"`
	SwingRight         int     `yaml:"swing_right" validate:"gte=1"`
	ATRWindow          int     `yaml:"atr_window" validate:"gt=0"`
	ATRMethod          string  `yaml:"atr_method" validate:"oneof=sma wilder"`
	ImpulseATRMultiple float64 `yaml:"impulse_atr_multiple" validate:"gt=0"`
	MinImpulseBars     int     `yaml:"min_impulse_bars" validate:"gte=1"`
	MaxReversalBars    int     `yaml:"max_reversal_bars" validate:"gte=0"`
}

type WickConfig struct {
	EntryFibInWick float64 `yaml:"entry_fib_in_wick" validate:"gt=0,lt=1"`
	RespectBars    int     `yaml:"respect_bars" validate:"gte=0"`
}

type RejectionConfig struct {
	WickATRMultiple  float64 `yaml:"wick_atr_multiple" validate:"gt=0"`
	WickBodyRatioMin float64 `yaml:"wick_body_ratio_min" validate:"gte=0"`
	TolerancePoints  float64 `yaml:"tolerance_points" validate:"gte=0"`
	RequireReversal  bool    `yaml:"require_reversal"`
	ReversalBars     int     `yaml:"reversal_bars" validate:"gte=0"`
}

type KillzoneWindow struct {
	Name  string `yaml:"name" validate:"required"`
	Start string `yaml:"start" validate:"required"`
	End   string `yaml:"end" validate:"required"`
}

type KillzoneConfig struct {
	Timezone string           `yaml:"timezone" validate:"required"`
	Windows  []KillzoneWindow `yaml:"windows" validate:"required,min=1,dive"`
	// ExtendMinutesAfter keeps each window open this long past its end.
	ExtendMinutesAfter int `yaml:"extend_minutes_after" validate:"gte=0,lte=240"`
}

// Filter builds the session filter for these windows.
func (k KillzoneConfig) Filter() (*session.Filter, error) {
	windows := make([]session.Window, 0, len(k.Windows))
	for _, w := range k.Windows {
		win, err := session.NewWindow(model.Killzone(w.Name), w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("killzone %s: %w", w.Name, err)
		}
		if ext := k.ExtendMinutesAfter; ext > 0 {
			if win.Length()+ext >= 24*60 {
				return nil, fmt.Errorf("killzone %s: extension covers the whole day", w.Name)
			}
			win = win.Extend(ext)
		}
		windows = append(windows, win)
	}
	return session.NewFilter(k.Timezone, windows)
}

type HTFBiasConfig struct {
	LookbackBars          int  `yaml:"lookback_bars" validate:"gte=10"`
	TreatNeutralAsAligned bool `yaml:"treat_neutral_as_aligned"`
}

type RiskConfig struct {
	StopBufferPoints    float64 `yaml:"stop_buffer_points" validate:"gte=0"`
	VolumeSpikeMultiple float64 `yaml:"volume_spike_multiple" validate:"gt=0"`
	VolumeBufferExtra   float64 `yaml:"volume_buffer_extra" validate:"gte=0"`
	VolumeAverageWindow int     `yaml:"volume_average_window" validate:"gte=1"`
	MinStopPoints       float64 `yaml:"min_stop_points" validate:"gte=0"`
	MaxStopPoints       float64 `yaml:"max_stop_points" validate:"gte=0"`
	// EntryTolerancePoints widens the entry price into a band a retest
	// only has to touch.
	EntryTolerancePoints float64 `yaml:"entry_tolerance_points" validate:"gte=0"`
	TargetRR             float64 `yaml:"target_rr" validate:"gt=0"`
	MinRR                float64 `yaml:"min_rr" validate:"gt=0"`
	MaxRR                float64 `yaml:"max_rr" validate:"gt=0"`
	TickSize             float64 `yaml:"tick_size" validate:"gte=0"`

	// PerSymbol overrides the point-based values for one instrument. Keys
	// match symbols case-insensitively.
	PerSymbol map[string]SymbolRisk `yaml:"per_symbol" validate:"dive"`
}

// SymbolRisk holds per-instrument overrides. A nil field keeps the global
// value.
type SymbolRisk struct {
	StopBufferPoints     *float64 `yaml:"stop_buffer_points" validate:"omitempty,gte=0"`
	VolumeBufferExtra    *float64 `yaml:"volume_buffer_extra" validate:"omitempty,gte=0"`
	MinStopPoints        *float64 `yaml:"min_stop_points" validate:"omitempty,gte=0"`
	MaxStopPoints        *float64 `yaml:"max_stop_points" validate:"omitempty,gte=0"`
	EntryTolerancePoints *float64 `yaml:"entry_tolerance_points" validate:"omitempty,gte=0"`
	TickSize             *float64 `yaml:"tick_size" validate:"omitempty,gte=0"`
}

// For returns the risk profile for symbol: the global values with that
// symbol's overrides applied. The result has no PerSymbol map.
func (r RiskConfig) For(symbol string) RiskConfig {
	out := r
	out.PerSymbol = nil
	for name, o := range r.PerSymbol {
		if !strings.EqualFold(name, symbol) {
			continue
		}
		set := func(dst *float64, v *float64) {
			if v != nil {
				*dst = *v
			}
		}
		set(&out.StopBufferPoints, o.StopBufferPoints)
		set(&out.VolumeBufferExtra, o.VolumeBufferExtra)
		set(&out.MinStopPoints, o.MinStopPoints)
		set(&out.MaxStopPoints, o.MaxStopPoints)
		set(&out.EntryTolerancePoints, o.EntryTolerancePoints)
		set(&out.TickSize, o.TickSize)
		break
	}
	return out
}

func points(v float64) *float64 { return &v }

// Weights are the additive confluence score contributions.
type Weights struct {
	RejectionBlock float64 `yaml:"rejection_block" validate:"gte=0"`
	FVG            float64 `yaml:"fvg" validate:"gte=0"`
	OrderBlock     float64 `yaml:"order_block" validate:"gte=0"`
	LiquiditySweep float64 `yaml:"liquidity_sweep" validate:"gte=0"`
	SwingLevel     float64 `yaml:"swing_level" validate:"gte=0"`
	HTF1h          float64 `yaml:"htf_1h" validate:"gte=0"`
	HTF4h          float64 `yaml:"htf_4h" validate:"gte=0"`
	HTFDaily       float64 `yaml:"htf_daily" validate:"gte=0"`
	Killzone       float64 `yaml:"killzone" validate:"gte=0"`
	WickRespect    float64 `yaml:"wick_respect" validate:"gte=0"`
}

type ConfluenceConfig struct {
	Weights         Weights `yaml:"weights"`
	MinScoreToAlert float64 `yaml:"min_score_to_alert" validate:"gte=0"`
}

type BacktestConfig struct {
	MaxBarsToFill int `yaml:"max_bars_to_fill" validate:"gte=1"`
	MaxBarsHeld   int `yaml:"max_bars_held" validate:"gte=1"`
}

type DatabaseConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=sqlite redis none"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisKey   string `yaml:"redis_key"`
}

type StateConfig struct {
	SeenFile string `yaml:"seen_file"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the configuration used for every key the YAML file omits.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{MessagesPerSecond: 1},
		Data: DataConfig{
			Symbols:          []string{"NQ=F", "ES=F"},
			Provider:         "yahoo",
			BaseURL:          "https://query1.finance.yahoo.com",
			TimeframePrimary: "5m",
			LookbackBars:     300,
			PollCron:         "5 */5 * * * *",
			StaleAfter:       10 * time.Minute,
			RequestTimeout:   15 * time.Second,
		},
		Structure: StructureConfig{
			SwingLeft:          5,
			SwingRight:         5,
			ATRWindow:          14,
			ATRMethod:          "sma",
			ImpulseATRMultiple: 1.5,
			MinImpulseBars:     2,
			MaxReversalBars:    3,
		},
		Wick: WickConfig{EntryFibInWick: 0.5, RespectBars: 10},
		RejectionBlock: RejectionConfig{
			WickATRMultiple:  1.0,
			WickBodyRatioMin: 2.0,
			TolerancePoints:  2.0,
			ReversalBars:     3,
		},
		Killzone: KillzoneConfig{
			Timezone: "America/New_York",
			Windows: []KillzoneWindow{
				{Name: string(model.KillzoneLondon), Start: "02:00", End: "05:00"},
				{Name: string(model.KillzoneNewYork), Start: "07:00", End: "10:00"},
			},
		},
		HTFBias: HTFBiasConfig{LookbackBars: 50, TreatNeutralAsAligned: false},
		Risk: RiskConfig{
			StopBufferPoints:    2,
			VolumeSpikeMultiple: 1.2,
			VolumeBufferExtra:   2,
			VolumeAverageWindow: 20,
			MinStopPoints:       10,
			TargetRR:            5,
			MinRR:               4,
			MaxRR:               6,
			TickSize:            0.25,
			PerSymbol: map[string]SymbolRisk{
				"NQ=F": {
					StopBufferPoints:     points(2),
					VolumeBufferExtra:    points(2),
					MinStopPoints:        points(10),
					MaxStopPoints:        points(15),
					EntryTolerancePoints: points(2),
				},
				"ES=F": {
					StopBufferPoints:     points(1),
					VolumeBufferExtra:    points(1),
					MinStopPoints:        points(5),
					MaxStopPoints:        points(8),
					EntryTolerancePoints: points(1),
				},
			},
		},
		Confluence: ConfluenceConfig{
			Weights: Weights{
				RejectionBlock: 1,
				FVG:            1,
				OrderBlock:     1,
				LiquiditySweep: 1,
				SwingLevel:     1,
				HTF1h:          1,
				HTF4h:          1,
				HTFDaily:       1,
				Killzone:       2,
				WickRespect:    2,
			},
			MinScoreToAlert: 4,
		},
		Backtest: BacktestConfig{MaxBarsToFill: 12, MaxBarsHeld: 96},
		Database: DatabaseConfig{
			Backend:    "sqlite",
			SQLitePath: "data/wick_sentinel.db",
			RedisKey:   "wicksentinel:setups",
		},
		State: StateConfig{SeenFile: "data/seen_setups.json"},
	}
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.Data.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.Data.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Database.RedisAddr = v
	}

	return cfg, nil
}

// Validate checks struct-tag bounds and the cross-field rules. Every
// failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	r := c.Risk
	if r.MinRR > r.MaxRR {
		return fmt.Errorf("%w: risk.min_rr %.2f exceeds risk.max_rr %.2f", ErrInvalidConfig, r.MinRR, r.MaxRR)
	}
	if r.TargetRR < r.MinRR || r.TargetRR > r.MaxRR {
		return fmt.Errorf("%w: risk.target_rr %.2f outside [%.2f, %.2f]", ErrInvalidConfig, r.TargetRR, r.MinRR, r.MaxRR)
	}
	if r.MaxStopPoints > 0 && r.MaxStopPoints < r.MinStopPoints {
		return fmt.Errorf("%w: risk.max_stop_points below risk.min_stop_points", ErrInvalidConfig)
	}
	for name := range r.PerSymbol {
		sr := r.For(name)
		if sr.MaxStopPoints > 0 && sr.MaxStopPoints < sr.MinStopPoints {
			return fmt.Errorf("%w: risk.per_symbol.%s max_stop_points below min_stop_points", ErrInvalidConfig, name)
		}
	}

	if _, err := c.Killzone.Filter(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Data.PollCron == "" && c.Data.PollInterval == 0 {
		return fmt.Errorf("%w: data.poll_cron or data.poll_interval is required", ErrInvalidConfig)
	}
	if bar := c.Data.Primary().Duration(); c.Data.PollInterval > 0 && c.Data.PollInterval < bar {
		return fmt.Errorf("%w: data.poll_interval %s is shorter than the %s bar", ErrInvalidConfig, c.Data.PollInterval, c.Data.Primary())
	}

	switch c.Database.Backend {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("%w: database.sqlite_path is required", ErrInvalidConfig)
		}
	case "redis":
		if c.Database.RedisAddr == "" {
			return fmt.Errorf("%w: database.redis_addr is required", ErrInvalidConfig)
		}
	}
	if c.Data.Provider == "rest" && c.Data.BaseURL == "" {
		return fmt.Errorf("%w: data.base_url is required for the rest provider", ErrInvalidConfig)
	}
	return nil
}

// ValidateTelegram checks the credentials needed by the watch loop.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", ErrInvalidConfig)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required", ErrInvalidConfig)
	}
	return nil
}
