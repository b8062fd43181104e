package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WickSentinel/internal/collector"
	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
)

func TestHistoryBars(t *testing.T) {
	assert.Equal(t, 8640, historyBars(model.TF5m, 30))
	assert.Equal(t, 10000, historyBars(model.TF5m, 90))
	assert.Equal(t, 500, historyBars(model.TF1h, 5))
	assert.Equal(t, 500, historyBars(model.Timeframe("7m"), 30))
}

func TestNewFetcher(t *testing.T) {
	cfg := config.Default()

	f, err := newFetcher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &collector.YahooFetcher{}, f)

	cfg.Data.Provider = "rest"
	cfg.Data.BaseURL = "http://localhost:9000"
	f, err = newFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "rest", f.Name())

	cfg.Data.Provider = "mock"
	f, err = newFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", f.Name())

	cfg.Data.Provider = "ftp"
	_, err = newFetcher(cfg)
	assert.Error(t, err)
}

func TestDetectJSONWithMockFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  provider: mock
  symbols: ["NQ=F"]
database:
  backend: none
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"detect", "--json", "--config", path})
	require.NoError(t, rootCmd.Execute())

	var setups []model.Setup
	require.NoError(t, json.Unmarshal(out.Bytes(), &setups))
	for _, s := range setups {
		assert.Equal(t, "NQ=F", s.Symbol)
		assert.GreaterOrEqual(t, s.RiskPoints, 10.0)
	}
}

func TestDetectRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  target_rr: 9
`), 0o644))

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"detect", "--config", path})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBacktestTimeframeOverride(t *testing.T) {
	t.Cleanup(func() { backtestTimeframe = "" })
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  provider: mock
  symbols: ["ES=F"]
  poll_interval: 5m
database:
  backend: none
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"backtest", "--json", "--timeframe", "1h", "--days", "60", "--config", path})
	require.NoError(t, rootCmd.Execute())

	var reports []symbolReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "ES=F", reports[0].Symbol)
	assert.Equal(t, historyBars(model.TF1h, 60), reports[0].Stats.Candles)

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"backtest", "--timeframe", "3m", "--config", path})
	assert.ErrorIs(t, rootCmd.Execute(), config.ErrInvalidConfig)
}
