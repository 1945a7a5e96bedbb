// Package redisstore keeps finished results in Redis and optionally queues
// them for the PostgreSQL archive worker.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/store"
)

// ResultStore caches results as JSON strings:
//
//	SET result:{resultID} {json}
//	ZADD exam:{examID}:latest_result {submittedAt ms} {resultID}
//
// The latest_result sorted set is trimmed to its highest score, so a late
// Save of an older submission never replaces a newer one.
//
// When archiving is enabled every Save also RPUSHes the JSON onto the
// persist_results_queue consumed by worker.ResultSyncWorker.
type ResultStore struct {
	client  *redis.Client
	ttl     time.Duration
	archive bool
}

// NewResultStore creates a ResultStore. A zero ttl keeps keys forever.
func NewResultStore(client *redis.Client, ttl time.Duration, archive bool) *ResultStore {
	return &ResultStore{client: client, ttl: ttl, archive: archive}
}

func (s *ResultStore) Save(ctx context.Context, result *model.ExamResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, config.CacheKey.ResultKey(result.ResultID), raw, s.ttl)
	latestKey := config.CacheKey.ExamLatestResultKey(result.ExamID)
	pipe.ZAdd(ctx, latestKey, redis.Z{Score: float64(result.SubmittedAt.UnixMilli()), Member: result.ResultID})
	pipe.ZRemRangeByRank(ctx, latestKey, 0, -2)
	if s.ttl > 0 {
		pipe.Expire(ctx, latestKey, s.ttl)
	}
	if s.archive {
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, resultID string) (*model.ExamResult, error) {
	data, err := s.client.Get(ctx, config.CacheKey.ResultKey(resultID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	var result model.ExamResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *ResultStore) LatestForExam(ctx context.Context, examID string) (*model.ExamResult, error) {
	ids, err := s.client.ZRevRange(ctx, config.CacheKey.ExamLatestResultKey(examID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("get latest result id: %w", err)
	}
	if len(ids) == 0 {
		return nil, store.ErrNotFound
	}
	return s.Get(ctx, ids[0])
}
