package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// Archive is the durable side of the result pipeline.
type Archive interface {
	SaveBatch(ctx context.Context, batch []*model.ExamResult) error
	Save(ctx context.Context, result *model.ExamResult) error
}

// ResultSyncWorker drains the Redis result queue into the archive.
type ResultSyncWorker struct {
	archive Archive
	rdb     *redis.Client
	log     zerolog.Logger
}

func NewResultSyncWorker(archive Archive, rdb *redis.Client, log zerolog.Logger) *ResultSyncWorker {
	return &ResultSyncWorker{
		archive: archive,
		rdb:     rdb,
		log:     log.With().Str("component", "result_sync_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is canceled, then flushes what it holds.
func (w *ResultSyncWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultSyncWorker started")

	batch := make([]*model.ExamResult, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			r, ok := w.pop(ctx)
			if ok {
				batch = append(batch, r)
			}
		}
	}
}

// Drain flushes everything currently queued and returns the number of
// results archived or requeued.
func (w *ResultSyncWorker) Drain(ctx context.Context) int {
	total := 0
	batch := make([]*model.ExamResult, 0, ResultBatchSize)
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				w.log.Error().Err(err).Msg("LPop error")
			}
			break
		}
		r, ok := w.decode(raw)
		if !ok {
			continue
		}
		batch = append(batch, r)
		if len(batch) == ResultBatchSize {
			w.flushSafe(ctx, batch)
			total += len(batch)
			batch = batch[:0]
		}
	}
	w.flushSafe(ctx, batch)
	return total + len(batch)
}

func (w *ResultSyncWorker) pop(ctx context.Context) (*model.ExamResult, bool) {
	item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return nil, false
	}
	if len(item) < 2 {
		return nil, false
	}
	return w.decode(item[1])
}

func (w *ResultSyncWorker) decode(raw string) (*model.ExamResult, bool) {
	var r model.ExamResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return nil, false
	}
	if r.ResultID == "" {
		w.log.Error().Msg("Result payload without result_id")
		return nil, false
	}
	return &r, true
}

// ----------------------------------------------------------------
// Batch upsert with per-item fallback
// ----------------------------------------------------------------

func (w *ResultSyncWorker) flushSafe(ctx context.Context, batch []*model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.archive.SaveBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk result upsert failed, using fallback")

		for _, r := range batch {
			if err := w.archive.Save(ctx, r); err != nil {
				w.log.Error().Err(err).Str("result_id", r.ResultID).Msg("archive single result failed, requeueing")
				raw, _ := json.Marshal(r)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("batch", len(batch)).Msg("Results archived")
}
