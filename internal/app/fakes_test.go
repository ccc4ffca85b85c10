package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"flex_reviews/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	body    []byte
	saveErr error
	saves   int
}

func (m *memStore) Backend() string { return "memory" }

func (m *memStore) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.body == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), m.body...), nil
}

func (m *memStore) Save(ctx context.Context, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.body = append([]byte(nil), body...)
	m.saves++
	return nil
}

func (m *memStore) set(body string) {
	m.mu.Lock()
	m.body = []byte(body)
	m.mu.Unlock()
}

// fakeSource answers with a fixed body or error and counts calls.
type fakeSource struct {
	name   string
	remote bool
	body   string
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Remote() bool { return f.remote }

func (f *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

var errDown = errors.New("upstream down")
