package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexeval/lexeval/internal/pkg/errors"
)

// RedisStorage provides Redis-backed run persistence for deployments where
// several evaluator instances share one run history. Runs are stored as
// JSON values with a sorted-set index on creation time for listing.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

const redisIndexKey = "index"

// NewRedisStorage creates a new Redis storage backend.
// Returns an error if the connection fails.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "lexeval:runs:",
	}, nil
}

func (rs *RedisStorage) runKey(id string) string {
	return rs.prefix + id
}

func (rs *RedisStorage) Save(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	pipe := rs.client.Pipeline()
	pipe.Set(ctx, rs.runKey(run.ID), data, 0)
	pipe.ZAdd(ctx, rs.prefix+redisIndexKey, redis.Z{
		Score:  float64(run.CreatedAt.Unix()),
		Member: run.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

func (rs *RedisStorage) Load(ctx context.Context, id string) (*Run, error) {
	data, err := rs.client.Get(ctx, rs.runKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("run %s not found", id))
		}
		return nil, fmt.Errorf("loading run: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &run, nil
}

func (rs *RedisStorage) LoadAll(ctx context.Context) ([]*Run, error) {
	ids, err := rs.client.ZRange(ctx, rs.prefix+redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]*Run, 0, len(ids))
	for _, id := range ids {
		run, err := rs.Load(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				// Index entry without a value; skip rather than fail the listing.
				continue
			}
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (rs *RedisStorage) Delete(ctx context.Context, id string) error {
	pipe := rs.client.Pipeline()
	pipe.Del(ctx, rs.runKey(id))
	pipe.ZRem(ctx, rs.prefix+redisIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return nil
}

func (rs *RedisStorage) Exists(ctx context.Context, id string) bool {
	n, err := rs.client.Exists(ctx, rs.runKey(id)).Result()
	return err == nil && n > 0
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
