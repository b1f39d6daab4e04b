package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/repository"
	"prospect-video-generator/internal/infra/metrics"
)

var _ repository.JobRepository = (*jobRepoCacheDecorator)(nil)

const jobCacheVersionKey = "jobs:version"

// jobRepoCacheDecorator serves FindByID for terminal jobs from redis. Terminal
// jobs never change, so only Save and Clear need to invalidate.
type jobRepoCacheDecorator struct {
	inner repository.JobRepository
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewJobRepoCacheDecorator(inner repository.JobRepository, cache RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.JobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	l := logger.With().Str("component", "JobRepoCache").Logger()
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

// key is namespaced by a version counter that Clear bumps.
func (d *jobRepoCacheDecorator) key(ctx context.Context, id string) string {
	v, err := d.cache.Get(ctx, jobCacheVersionKey)
	if err != nil {
		v = "0"
	}
	return fmt.Sprintf("job:%s:%s", v, id)
}

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	key := d.key(ctx, id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var job model.GenerationJob
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncCacheRequest("job", "hit")
			return &job, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("job_id", id).Msg("cache read failed")
	}

	metrics.IncCacheRequest("job", "miss")
	job, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		if b, err := json.Marshal(job); err == nil {
			if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
				d.log.Warn().Err(err).Str("job_id", id).Msg("cache write failed")
			}
		}
	}
	return job, nil
}

func (d *jobRepoCacheDecorator) Save(ctx context.Context, job *model.GenerationJob) error {
	if err := d.inner.Save(ctx, job); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, d.key(ctx, job.ID))
	return nil
}

func (d *jobRepoCacheDecorator) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	if err := d.inner.SaveAll(ctx, jobs); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	keys := make([]string, len(jobs))
	for i, j := range jobs {
		keys[i] = d.key(ctx, j.ID)
	}
	_ = d.cache.Del(ctx, keys...)
	return nil
}

// Listings always hit the store; they are not worth caching while jobs move.
func (d *jobRepoCacheDecorator) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	return d.inner.ListAll(ctx)
}

func (d *jobRepoCacheDecorator) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	return d.inner.ListByStatus(ctx, status)
}

func (d *jobRepoCacheDecorator) Clear(ctx context.Context) error {
	if err := d.inner.Clear(ctx); err != nil {
		return err
	}
	if _, err := d.cache.Incr(ctx, jobCacheVersionKey); err != nil {
		d.log.Warn().Err(err).Msg("cache invalidation failed")
	}
	return nil
}
