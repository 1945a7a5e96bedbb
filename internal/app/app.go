// Package app wires the collaborators shared by the HTTP shell and the
// terminal client.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/backend"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/database"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/store"
	"github.com/stemsi/exstem-client/internal/store/memory"
	"github.com/stemsi/exstem-client/internal/store/postgres"
	"github.com/stemsi/exstem-client/internal/store/redisstore"
	"github.com/stemsi/exstem-client/internal/worker"
)

// Deps holds the wired collaborators. Close releases every connection.
type Deps struct {
	Backend session.Backend
	Results store.ResultStore
	// Sync is nil unless both Redis and PostgreSQL are configured.
	Sync *worker.ResultSyncWorker

	rdb  *redis.Client
	pool *pgxpool.Pool
}

// NewBackend returns the REST client, or the fixture catalog when no API
// base URL is configured.
func NewBackend(cfg *config.Config, log zerolog.Logger) (session.Backend, error) {
	if cfg.UseFixture() {
		f, err := backend.LoadFixture(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("path", cfg.FixturePath).
			Strs("exams", f.ExamIDs()).
			Msg("Serving fixture catalog")
		return f, nil
	}
	log.Info().Str("base_url", cfg.APIBaseURL).Msg("Using exam backend")
	return backend.NewClient(backend.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
	}, log), nil
}

// Wire builds the backend and the result store.
//
//	no REDIS_URL            → in-memory results
//	REDIS_URL               → Redis results with TTL
//	REDIS_URL+DATABASE_URL  → Redis results queued for the PostgreSQL archive,
//	                          reads fall back to the archive once Redis expires them
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Deps, error) {
	b, err := NewBackend(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	d := &Deps{Backend: b}

	if cfg.RedisURL == "" {
		d.Results = memory.NewResultStore()
		return d, nil
	}

	d.rdb, err = database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		d.Results = redisstore.NewResultStore(d.rdb, cfg.ResultTTL, false)
		return d, nil
	}

	d.pool, err = database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	archive := postgres.NewResultStore(d.pool)
	d.Sync = worker.NewResultSyncWorker(archive, d.rdb, log)
	d.Results = store.NewTiered(redisstore.NewResultStore(d.rdb, cfg.ResultTTL, true), archive)
	return d, nil
}

// Close releases the Redis client and the database pool.
func (d *Deps) Close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
