package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists setups and cycles to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS setups (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id       TEXT NOT NULL,
			setup_key      TEXT NOT NULL,
			symbol         TEXT,
			timeframe      TEXT,
			direction      TEXT,
			formed_at      INTEGER NOT NULL,
			killzone       TEXT,
			entry_price    REAL,
			stop_price     REAL,
			target_price   REAL,
			risk_points    REAL,
			reward_to_risk REAL,
			score          REAL,
			wick_respect   TEXT,
			volume_spike   INTEGER,
			tags           TEXT,
			delivered      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_setups_formed ON setups(formed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_setups_key ON setups(setup_key)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id         TEXT NOT NULL,
			symbol           TEXT,
			started_at       INTEGER NOT NULL,
			duration_ms      INTEGER,
			candles          INTEGER,
			rejection_blocks INTEGER,
			in_killzone      INTEGER,
			risk_feasible    INTEGER,
			setups           INTEGER,
			new_setups       INTEGER,
			delivered        INTEGER,
			stale            INTEGER,
			fetch_error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSetup(ctx context.Context, rec SetupRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := rec.Setup
	_, err := r.db.ExecContext(ctx, `INSERT INTO setups
		(cycle_id, setup_key, symbol, timeframe, direction, formed_at, killzone,
		 entry_price, stop_price, target_price, risk_points, reward_to_risk, score,
		 wick_respect, volume_spike, tags, delivered)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.CycleID, s.Key(), s.Symbol, string(s.Timeframe), string(s.Direction),
		s.FormedAt.Unix(), string(s.Killzone),
		s.EntryPrice, s.StopPrice, s.TargetPrice, s.RiskPoints, s.RewardToRisk, s.Score,
		string(s.WickRespect), s.VolumeSpike, joinTags(s.ConfluenceTags), rec.Delivered,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(ctx context.Context, evt CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO cycles
		(cycle_id, symbol, started_at, duration_ms, candles, rejection_blocks,
		 in_killzone, risk_feasible, setups, new_setups, delivered, stale, fetch_error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.CycleID, evt.Symbol, evt.StartedAt.Unix(), evt.Duration.Milliseconds(),
		evt.Candles, evt.RejectionBlocks, evt.InKillzone, evt.RiskFeasible,
		evt.Setups, evt.NewSetups, evt.Delivered, evt.Stale, evt.FetchError,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
