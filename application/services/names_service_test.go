package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/domain/autocomplete"
)

// mapCache is a ports.Cache without expiry.
type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newMapCache() *mapCache { return &mapCache{items: map[string]interface{}{}} }

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *mapCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]interface{}{}
	return nil
}

func TestNamesService_ListNamesCaches(t *testing.T) {
	session := new(MockGraphSession)
	session.On("Run", mock.Anything, "MATCH (n:Language) RETURN n.name", map[string]interface{}(nil)).
		Return(namesRecords("Python", "go", "JavaScript"), nil).Once()

	svc := NewNamesService(session, newMapCache(), time.Minute, nil, zap.NewNop(), nil)

	first, err := svc.ListNames(context.Background(), autocomplete.FieldLanguage)
	require.NoError(t, err)
	second, err := svc.ListNames(context.Background(), autocomplete.FieldLanguage)
	require.NoError(t, err)

	assert.Equal(t, []string{"go", "JavaScript", "Python"}, first)
	assert.Equal(t, first, second)
	session.AssertNumberOfCalls(t, "Run", 1)
}

func TestNamesService_InvalidateRefills(t *testing.T) {
	session := new(MockGraphSession)
	session.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(namesRecords("ccxt"), nil).Twice()

	svc := NewNamesService(session, newMapCache(), time.Minute, nil, zap.NewNop(), nil)
	ctx := context.Background()

	_, err := svc.ListNames(ctx, autocomplete.FieldRepo)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, autocomplete.FieldRepo))
	_, err = svc.ListNames(ctx, autocomplete.FieldRepo)
	require.NoError(t, err)

	session.AssertNumberOfCalls(t, "Run", 2)
}

func TestNamesService_NoCacheWhenTTLZero(t *testing.T) {
	session := new(MockGraphSession)
	session.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(namesRecords("a"), nil)
	cache := newMapCache()

	svc := NewNamesService(session, cache, 0, nil, zap.NewNop(), nil)
	_, _ = svc.ListNames(context.Background(), autocomplete.FieldUser)
	_, _ = svc.ListNames(context.Background(), autocomplete.FieldUser)

	session.AssertNumberOfCalls(t, "Run", 2)
	assert.Empty(t, cache.items)
}

func TestNamesService_ErrorNotCached(t *testing.T) {
	session := new(MockGraphSession)
	session.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ports.ErrGraphUnavailable).Once()
	cache := newMapCache()

	svc := NewNamesService(session, cache, time.Minute, nil, zap.NewNop(), nil)
	_, err := svc.ListNames(context.Background(), autocomplete.FieldUser)

	assert.True(t, errors.Is(err, ports.ErrGraphUnavailable))
	assert.Empty(t, cache.items)
}

func TestNamesService_UnknownField(t *testing.T) {
	svc := NewNamesService(new(MockGraphSession), nil, 0, nil, zap.NewNop(), nil)

	_, err := svc.ListNames(context.Background(), autocomplete.Field("search"))

	assert.Error(t, err)
}

func TestNamesService_ReturnsCopies(t *testing.T) {
	session := new(MockGraphSession)
	session.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(namesRecords("a", "b"), nil).Once()
	svc := NewNamesService(session, newMapCache(), time.Minute, nil, zap.NewNop(), nil)

	got, err := svc.ListNames(context.Background(), autocomplete.FieldUser)
	require.NoError(t, err)
	got[0] = "mutated"

	again, err := svc.ListNames(context.Background(), autocomplete.FieldUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again)
}

// slowSession answers once release is closed, unless its context ends first.
type slowSession struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowSession) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
		return namesRecords("go", "Rust"), nil
	}
}

func (s *slowSession) Ping(context.Context) error  { return nil }
func (s *slowSession) Close(context.Context) error { return nil }

func TestNamesService_CancelledCallerDoesNotFailOthers(t *testing.T) {
	session := &slowSession{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewNamesService(session, newMapCache(), time.Minute, nil, zap.NewNop(), nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.ListNames(leaderCtx, autocomplete.FieldLanguage)
		leaderErr <- err
	}()
	<-session.started

	type result struct {
		names []string
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		names, err := svc.ListNames(context.Background(), autocomplete.FieldLanguage)
		follower <- result{names, err}
	}()

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(session.release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, []string{"go", "Rust"}, got.names)
}
