// Package session restricts setups to the London and New York killzones.
package session

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"WickSentinel/internal/model"
)

var (
	ErrBadClock    = errors.New("session: clock must be HH:MM")
	ErrEmptyWindow = errors.New("session: window start equals end")
)

const minutesPerDay = 24 * 60

// Window is a [Start, End) range in minutes after local midnight. A window
// with End < Start wraps past midnight.
type Window struct {
	Name  model.Killzone
	Start int
	End   int
}

func (w Window) contains(minute int) bool {
	switch {
	case w.Start < w.End:
		return minute >= w.Start && minute < w.End
	case w.Start > w.End:
		return minute >= w.Start || minute < w.End
	default:
		return false
	}
}

// Length is the window span in minutes.
func (w Window) Length() int {
	return ((w.End-w.Start)%minutesPerDay + minutesPerDay) % minutesPerDay
}

// Extend moves the end later by minutes, wrapping past midnight.
func (w Window) Extend(minutes int) Window {
	w.End = (w.End + minutes) % minutesPerDay
	return w
}

func (w Window) String() string {
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d", w.Name, w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NewWindow builds a window from two "HH:MM" clocks.
func NewWindow(name model.Killzone, start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	if s == e {
		return Window{}, fmt.Errorf("%w: %s %s-%s", ErrEmptyWindow, name, start, end)
	}
	return Window{Name: name, Start: s, End: e}, nil
}

// DefaultWindows are the London (02:00-05:00) and New York (07:00-10:00)
// killzones in New York time.
func DefaultWindows() []Window {
	return []Window{
		{Name: model.KillzoneLondon, Start: 2 * 60, End: 5 * 60},
		{Name: model.KillzoneNewYork, Start: 7 * 60, End: 10 * 60},
	}
}

// Filter evaluates instants against killzone windows in one reference zone.
type Filter struct {
	loc     *time.Location
	windows []Window
}

// NewFilter loads the timezone and keeps the windows in the given order.
func NewFilter(timezone string, windows []Window) (*Filter, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Filter{loc: loc, windows: windows}, nil
}

// Location returns the reference zone.
func (f *Filter) Location() *time.Location { return f.loc }

// Windows returns a copy of the configured windows.
func (f *Filter) Windows() []Window { return append([]Window(nil), f.windows...) }

// Name returns the first window containing t.
func (f *Filter) Name(t time.Time) (model.Killzone, bool) {
	local := t.In(f.loc)
	minute := local.Hour()*60 + local.Minute()
	for _, w := range f.windows {
		if w.contains(minute) {
			return w.Name, true
		}
	}
	return "", false
}

// Passes reports whether t falls in any window.
func (f *Filter) Passes(t time.Time) bool {
	_, ok := f.Name(t)
	return ok
}

// FilterBlocks keeps the rejection blocks formed inside a killzone. The
// input order is preserved.
func (f *Filter) FilterBlocks(blocks []model.RejectionBlock) []model.RejectionBlock {
	out := make([]model.RejectionBlock, 0, len(blocks))
	for _, rb := range blocks {
		if f.Passes(rb.Time) {
			out = append(out, rb)
		}
	}
	return out
}
