package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "devrank/pkg/errors"
)

type bindQuery struct {
	Action string
	Values map[string]string
}

func (q bindQuery) Validate() error {
	if q.Action == "" {
		return errors.New("action is required")
	}
	return nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

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

func TestQueryBus_CachingMiddleware(t *testing.T) {
	calls := 0
	inner := QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return q.(bindQuery).Values["user"], nil
	})
	cache := &mapCache{items: map[string]interface{}{}}
	handler := NewLoggingMiddleware(zap.NewNop(), time.Second).Wrap(NewCachingMiddleware(cache, 60).Wrap(inner))

	b := NewQueryBus()
	require.NoError(t, b.Register(bindQuery{}, handler))

	q := bindQuery{Action: "user-knows", Values: map[string]string{"user": "alice", "repo": "x"}}
	for i := 0; i < 3; i++ {
		res, err := b.Ask(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "alice", res)
	}
	assert.Equal(t, 1, calls)

	res, err := b.Ask(context.Background(), bindQuery{Action: "user-knows", Values: map[string]string{"user": "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "bob", res)
	assert.Equal(t, 2, calls)
}

func TestQueryBus_ErrorsAreNotCached(t *testing.T) {
	calls := 0
	cache := &mapCache{items: map[string]interface{}{}}
	handler := NewCachingMiddleware(cache, 60).Wrap(QueryHandlerFunc(func(context.Context, Query) (interface{}, error) {
		calls++
		return nil, errors.New("boom")
	}))

	b := NewQueryBus()
	require.NoError(t, b.Register(bindQuery{}, handler))
	for i := 0; i < 2; i++ {
		_, err := b.Ask(context.Background(), bindQuery{Action: "a"})
		assert.Error(t, err)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.items)
}

func TestQueryBus_Validation(t *testing.T) {
	b := NewQueryBus()
	_, err := b.Ask(context.Background(), bindQuery{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = b.Ask(context.Background(), bindQuery{Action: "a"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}
