//go:build !integration

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
)

// mockRedisClient is a map-backed RedisClient. Func fields override behavior.
type mockRedisClient struct {
	mu   sync.Mutex
	data map[string]string

	GetFunc func(ctx context.Context, key string) (string, error)
}

var _ RedisClient = (*mockRedisClient)(nil)

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: make(map[string]string)}
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	fmt.Sscan(m.data[key], &n)
	n++
	m.data[key] = fmt.Sprint(n)
	return n, nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

// mockInnerJobRepo counts FindByID calls.
type mockInnerJobRepo struct {
	mu    sync.Mutex
	jobs  map[string]*model.GenerationJob
	finds int
}

func newMockInnerJobRepo() *mockInnerJobRepo {
	return &mockInnerJobRepo{jobs: make(map[string]*model.GenerationJob)}
}

func (m *mockInnerJobRepo) Save(ctx context.Context, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *mockInnerJobRepo) SaveAll(ctx context.Context, jobs []*model.GenerationJob) error {
	for _, j := range jobs {
		_ = m.Save(ctx, j)
	}
	return nil
}

func (m *mockInnerJobRepo) FindByID(ctx context.Context, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (m *mockInnerJobRepo) ListAll(ctx context.Context) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.GenerationJob, error) {
	return nil, nil
}

func (m *mockInnerJobRepo) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[string]*model.GenerationJob)
	return nil
}

func (m *mockInnerJobRepo) findCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finds
}
