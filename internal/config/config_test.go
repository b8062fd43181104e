package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
data:
  symbols: ["NQ=F"]
  poll_interval: 10m
risk:
  target_rr: 4.5
killzone:
  timezone: America/New_York
  windows:
    - name: newyork
      start: "08:30"
      end: "11:00"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NQ=F"}, cfg.Data.Symbols)
	assert.Equal(t, 10*time.Minute, cfg.Data.PollInterval)
	assert.Equal(t, 4.5, cfg.Risk.TargetRR)
	assert.Equal(t, 10.0, cfg.Risk.MinStopPoints, "unset keys keep their default")
	require.Len(t, cfg.Killzone.Windows, 1)
	assert.Equal(t, "08:30", cfg.Killzone.Windows[0].Start)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	assert.Equal(t, "localhost:6379", cfg.Database.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"target rr above range", func(c *Config) { c.Risk.TargetRR = 7 }},
		{"min rr above max rr", func(c *Config) { c.Risk.MinRR = 8 }},
		{"atr window zero", func(c *Config) { c.Structure.ATRWindow = 0 }},
		{"unknown atr method", func(c *Config) { c.Structure.ATRMethod = "ema9" }},
		{"fib outside wick", func(c *Config) { c.Wick.EntryFibInWick = 1.2 }},
		{"bad killzone clock", func(c *Config) { c.Killzone.Windows[0].Start = "2am" }},
		{"unknown timezone", func(c *Config) { c.Killzone.Timezone = "Mars/Olympus" }},
		{"no symbols", func(c *Config) { c.Data.Symbols = nil }},
		{"poll interval below a minute", func(c *Config) { c.Data.PollInterval = 30 * time.Second }},
		{"poll interval below the bar", func(c *Config) { c.Data.PollInterval = 2 * time.Minute }},
		{"poll interval below an hourly bar", func(c *Config) { c.Data.TimeframePrimary = "1h"; c.Data.PollInterval = 30 * time.Minute }},
		{"empty killzone", func(c *Config) { c.Killzone.Windows[0].End = c.Killzone.Windows[0].Start }},
		{"killzone extension too long", func(c *Config) { c.Killzone.ExtendMinutesAfter = 300 }},
		{"per-symbol max stop below min stop", func(c *Config) { c.Risk.PerSymbol["ES=F"] = SymbolRisk{MaxStopPoints: points(4)} }},
		{"negative per-symbol buffer", func(c *Config) { c.Risk.PerSymbol["NQ=F"] = SymbolRisk{StopBufferPoints: points(-1)} }},
		{"no schedule", func(c *Config) { c.Data.PollCron = "" }},
		{"max stop below min stop", func(c *Config) { c.Risk.MaxStopPoints = 5 }},
		{"redis without address", func(c *Config) { c.Database.Backend = "redis" }},
		{"rest without base url", func(c *Config) { c.Data.Provider = "rest"; c.Data.BaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidateTelegram(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.ValidateTelegram(), ErrInvalidConfig)
	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.ValidateTelegram())
	assert.True(t, cfg.Telegram.Configured())
}

func TestRiskFor(t *testing.T) {
	r := Default().Risk

	nq := r.For("NQ=F")
	assert.Equal(t, 15.0, nq.MaxStopPoints)
	assert.Equal(t, 2.0, nq.EntryTolerancePoints)
	assert.Nil(t, nq.PerSymbol)

	es := r.For("es=f")
	assert.Equal(t, 1.0, es.StopBufferPoints)
	assert.Equal(t, 1.0, es.VolumeBufferExtra)
	assert.Equal(t, 5.0, es.MinStopPoints)
	assert.Equal(t, 8.0, es.MaxStopPoints)
	assert.Equal(t, r.TickSize, es.TickSize, "unset override keeps the global value")

	other := r.For("YM=F")
	assert.Equal(t, r.MinStopPoints, other.MinStopPoints)
	assert.Zero(t, other.MaxStopPoints)
}

func TestLoadPerSymbolOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
risk:
  per_symbol:
    RTY=F:
      min_stop_points: 3
      max_stop_points: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6.0, cfg.Risk.For("RTY=F").MaxStopPoints)
	assert.Equal(t, 2.0, cfg.Risk.For("RTY=F").StopBufferPoints)
	assert.Equal(t, 8.0, cfg.Risk.For("ES=F").MaxStopPoints, "default entries survive")
}

func TestKillzoneFilterExtension(t *testing.T) {
	k := Default().Killzone
	k.ExtendMinutesAfter = 30
	f, err := k.Filter()
	require.NoError(t, err)
	ny := f.Location()
	assert.True(t, f.Passes(time.Date(2024, 3, 5, 10, 15, 0, 0, ny)))
	assert.False(t, f.Passes(time.Date(2024, 3, 5, 10, 30, 0, 0, ny)))
	name, ok := f.Name(time.Date(2024, 3, 5, 5, 20, 0, 0, ny))
	assert.True(t, ok)
	assert.Equal(t, "london", string(name))
}

func TestKillzoneFilter(t *testing.T) {
	f, err := Default().Killzone.Filter()
	require.NoError(t, err)
	assert.Len(t, f.Windows(), 2)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATA_BASE_URL", "DATA_API_KEY", "HTTPS_PROXY", "SQLITE_PATH", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	want := Default()
	want.Metrics.ListenAddr = "127.0.0.1:9108"
	assert.Equal(t, want, cfg)
}
