package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// maxCycleEntries bounds the cycle list kept in Redis.
const maxCycleEntries = 2000

// RedisRecorder journals setups into a sorted set scored by formed_at and
// keeps a capped list of recent cycles.
type RedisRecorder struct {
	client *redis.Client
	key    string
}

// NewRedisRecorder connects and pings the server.
func NewRedisRecorder(ctx context.Context, addr, key string) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
		MaxRetries:  1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Str("key", key).Msg("redis recorder connected")
	return &RedisRecorder{client: client, key: key}, nil
}

func (r *RedisRecorder) cyclesKey() string { return r.key + ":cycles" }

func (r *RedisRecorder) RecordSetup(ctx context.Context, rec SetupRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	z := redis.Z{Score: float64(rec.Setup.FormedAt.Unix()), Member: data}
	if err := r.client.ZAdd(ctx, r.key, z).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisRecorder) RecordCycle(ctx context.Context, evt CycleEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal cycle: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.cyclesKey(), data)
	pipe.LTrim(ctx, r.cyclesKey(), 0, maxCycleEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push cycle: %w", err)
	}
	return nil
}

func (r *RedisRecorder) Close() error {
	log.Info().Msg("closing redis recorder")
	return r.client.Close()
}
