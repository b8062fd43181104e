package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"WickSentinel/internal/model"
)

// ErrSinkUnavailable wraps every delivery failure. The setup stays
// undelivered and is offered again next cycle.
var ErrSinkUnavailable = errors.New("sink unavailable")

// Sink receives newly detected setups.
type Sink interface {
	Send(ctx context.Context, setup model.Setup) error
	Name() string
}

// LogSink writes each setup as one log line. It never fails.
type LogSink struct {
	Location *time.Location
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Send(_ context.Context, setup model.Setup) error {
	log.Info().
		Str("symbol", setup.Symbol).
		Str("timeframe", string(setup.Timeframe)).
		Str("direction", string(setup.Direction)).
		Float64("score", setup.Score).
		Msg(FormatLogLine(setup, s.Location))
	return nil
}
