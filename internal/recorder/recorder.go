// Package recorder journals emitted setups and per-cycle pipeline counts for
// later review. It is write-only from the bot's point of view.
package recorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"WickSentinel/internal/config"
	"WickSentinel/internal/model"
)

// CycleEvent summarizes one symbol's pass through the pipeline.
type CycleEvent struct {
	CycleID         string        `json:"cycle_id"`
	Symbol          string        `json:"symbol"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Candles         int           `json:"candles"`
	RejectionBlocks int           `json:"rejection_blocks"`
	InKillzone      int           `json:"in_killzone"`
	RiskFeasible    int           `json:"risk_feasible"`
	Setups          int           `json:"setups"`
	NewSetups       int           `json:"new_setups"`
	Delivered       int           `json:"delivered"`
	Stale           bool          `json:"stale"`
	FetchError      string        `json:"fetch_error,omitempty"`
}

// SetupRecord is one setup as offered to the sink.
type SetupRecord struct {
	CycleID   string      `json:"cycle_id"`
	Setup     model.Setup `json:"setup"`
	Delivered bool        `json:"delivered"`
}

// Recorder persists setups and cycle summaries.
type Recorder interface {
	RecordSetup(ctx context.Context, rec SetupRecord) error
	RecordCycle(ctx context.Context, evt CycleEvent) error
	Close() error
}

// Open builds the recorder selected by database.backend.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Recorder, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteRecorder(cfg.SQLitePath)
	case "redis":
		return NewRedisRecorder(ctx, cfg.RedisAddr, cfg.RedisKey)
	case "none", "":
		return NewNoopRecorder(), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
