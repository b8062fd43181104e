package dedup

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WickSentinel/internal/model"
)

var botStart = time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)

func setup(minutes int, dir model.Direction) model.Setup {
	return model.Setup{
		Symbol:    "NQ=F",
		Timeframe: model.TF5m,
		Direction: dir,
		FormedAt:  botStart.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestFilterNew(t *testing.T) {
	state := NewState()
	state.Record(setup(10, model.Bearish))

	candidates := []model.Setup{
		setup(-5, model.Bearish),
		setup(0, model.Bearish),
		setup(10, model.Bearish),
		setup(10, model.Bullish),
		setup(0, model.Bearish),
	}
	got := FilterNew(candidates, state, botStart)
	require.Len(t, got, 2)
	assert.Equal(t, candidates[1], got[0])
	assert.Equal(t, candidates[3], got[1])
	assert.Equal(t, 1, state.Len(), "filtering is read-only")
}

// send delivers through sink and records only what it accepted.
func send(state *State, candidates []model.Setup, sink func(model.Setup) error) int {
	delivered := 0
	for _, s := range FilterNew(candidates, state, botStart) {
		if err := sink(s); err != nil {
			continue
		}
		state.Record(s)
		delivered++
	}
	return delivered
}

func TestFailedSendIsReoffered(t *testing.T) {
	state := NewState()
	candidates := []model.Setup{setup(5, model.Bearish)}
	failing := func(model.Setup) error { return errors.New("telegram down") }
	ok := func(model.Setup) error { return nil }

	assert.Equal(t, 0, send(state, candidates, failing))
	assert.Len(t, FilterNew(candidates, state, botStart), 1, "still eligible after failure")

	assert.Equal(t, 1, send(state, candidates, ok))
	assert.Equal(t, 0, send(state, candidates, ok), "emitted at most once after success")
}

func TestPruneWindow(t *testing.T) {
	state := NewState()
	state.Record(setup(0, model.Bearish))
	state.Record(setup(60*70, model.Bullish))
	es := setup(0, model.Bearish)
	es.Symbol = "ES=F"
	state.Record(es)
	hourly := setup(0, model.Bullish)
	hourly.Timeframe = model.TF1h
	state.Record(hourly)

	removed := state.PruneWindow("NQ=F", model.TF5m, botStart.Add(time.Hour))
	assert.Equal(t, 1, removed)
	assert.False(t, state.Has(setup(0, model.Bearish)))
	assert.True(t, state.Has(setup(60*70, model.Bullish)), "still inside the window")
	assert.True(t, state.Has(es), "other symbols are untouched")
	assert.True(t, state.Has(hourly), "other timeframes are untouched")
}

func TestPruneUnwatched(t *testing.T) {
	state := NewState()
	state.Record(setup(0, model.Bearish))
	es := setup(0, model.Bearish)
	es.Symbol = "ES=F"
	state.Record(es)

	assert.Equal(t, 1, state.PruneUnwatched([]string{"NQ=F"}))
	assert.True(t, state.Has(setup(0, model.Bearish)))
	assert.False(t, state.Has(es))
}

func TestSaveLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seen.json")

	empty, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	state := NewState()
	state.Record(setup(5, model.Bearish))
	require.NoError(t, SaveState(path, state))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.True(t, loaded.Has(setup(5, model.Bearish)))
	assert.False(t, loaded.UpdatedAt.IsZero())
}
