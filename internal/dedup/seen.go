// Package dedup decides which detected setups are new since the bot started
// and have not been delivered yet.
package dedup

import (
	"slices"
	"strings"
	"time"

	"WickSentinel/internal/model"
)

// State is the set of delivered setup keys, mapped to their formed_at. It is
// owned by the poll loop and never shared.
type State struct {
	Seen      map[string]time.Time `json:"seen"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Seen: make(map[string]time.Time)}
}

// Has reports whether the setup was already delivered.
func (s *State) Has(setup model.Setup) bool {
	_, ok := s.Seen[setup.Key()]
	return ok
}

// Len returns the number of remembered keys.
func (s *State) Len() int { return len(s.Seen) }

// Record marks a setup delivered. Call it only after the sink accepted it.
func (s *State) Record(setup model.Setup) {
	if s.Seen == nil {
		s.Seen = make(map[string]time.Time)
	}
	s.Seen[setup.Key()] = setup.FormedAt
}

// PruneWindow forgets the symbol's keys on timeframe tf that formed before
// oldest, the first bar of a complete fetch window. The window only slides
// forward, so those candles can never be detected again. A wall-clock
// retention would not hold: the window can span a weekend or, on 1h bars,
// several weeks.
func (s *State) PruneWindow(symbol string, tf model.Timeframe, oldest time.Time) int {
	prefix := symbol + "|" + string(tf) + "|"
	removed := 0
	for k, formed := range s.Seen {
		if strings.HasPrefix(k, prefix) && formed.Before(oldest) {
			delete(s.Seen, k)
			removed++
		}
	}
	return removed
}

// PruneUnwatched forgets keys of symbols no longer polled.
func (s *State) PruneUnwatched(symbols []string) int {
	removed := 0
	for k := range s.Seen {
		symbol, _, _ := strings.Cut(k, "|")
		if !slices.Contains(symbols, symbol) {
			delete(s.Seen, k)
			removed++
		}
	}
	return removed
}

// FilterNew returns the candidates formed at or after botStart that are not
// in state, in input order, with duplicates inside the batch collapsed. It
// does not modify state.
func FilterNew(candidates []model.Setup, state *State, botStart time.Time) []model.Setup {
	var out []model.Setup
	batch := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.FormedAt.Before(botStart) {
			continue
		}
		key := c.Key()
		if batch[key] || (state != nil && state.Has(c)) {
			continue
		}
		batch[key] = true
		out = append(out, c)
	}
	return out
}
