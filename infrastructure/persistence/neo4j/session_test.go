package neo4j

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/pkg/observability"
)

func testSession(run queryRunner) *Session {
	noop := func(context.Context) error { return nil }
	return newSession(run, noop, noop,
		BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute},
		observability.NewTracer("test", false), nil, zap.NewNop())
}

func TestSession_RunConvertsRecords(t *testing.T) {
	var gotParams map[string]interface{}
	s := testSession(func(ctx context.Context, cypher string, params map[string]interface{}) ([]*neo4j.Record, error) {
		gotParams = params
		return []*neo4j.Record{
			{Keys: []string{"name"}, Values: []interface{}{"maximelovino"}},
			{Keys: []string{"name"}, Values: []interface{}{"kroitor"}},
		}, nil
	})

	records, err := s.Run(context.Background(), "MATCH (u:User) RETURN u.login", map[string]interface{}{"term": "m"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	name, ok := records[1].Get("name")
	assert.True(t, ok)
	assert.Equal(t, "kroitor", name)
	assert.Equal(t, map[string]interface{}{"term": "m"}, gotParams)
}

func TestSession_BreakerOpensOnDatabaseFailures(t *testing.T) {
	calls := 0
	s := testSession(func(context.Context, string, map[string]interface{}) ([]*neo4j.Record, error) {
		calls++
		return nil, errors.New("connection reset")
	})

	for i := 0; i < 2; i++ {
		_, err := s.Run(context.Background(), "RETURN 1", nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ports.ErrGraphUnavailable))
	}

	_, err := s.Run(context.Background(), "RETURN 1", nil)
	assert.ErrorIs(t, err, ports.ErrGraphUnavailable)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", s.BreakerState())
}

func TestSession_ClientErrorsDoNotTripBreaker(t *testing.T) {
	s := testSession(func(context.Context, string, map[string]interface{}) ([]*neo4j.Record, error) {
		return nil, &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "Invalid input"}
	})

	for i := 0; i < 5; i++ {
		_, err := s.Run(context.Background(), "MATCH (", nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ports.ErrGraphUnavailable))
	}
	assert.Equal(t, "closed", s.BreakerState())
}

func TestSession_CancellationDoesNotTripBreaker(t *testing.T) {
	s := testSession(func(ctx context.Context, _ string, _ map[string]interface{}) ([]*neo4j.Record, error) {
		return nil, context.Canceled
	})

	for i := 0; i < 5; i++ {
		_, err := s.Run(context.Background(), "RETURN 1", nil)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", s.BreakerState())
}

// readCanceled mirrors the driver's error for a read cut short by the
// caller: it carries the context error but does not unwrap to it.
type readCanceled struct{ err error }

func (e *readCanceled) Error() string { return "read canceled: " + e.err.Error() }

func TestSession_SupersededLookupsDoNotTripBreaker(t *testing.T) {
	healthy := false
	s := testSession(func(ctx context.Context, _ string, _ map[string]interface{}) ([]*neo4j.Record, error) {
		if healthy {
			return []*neo4j.Record{{Keys: []string{"n"}, Values: []interface{}{int64(1)}}}, nil
		}
		<-ctx.Done()
		return nil, &readCanceled{err: ctx.Err()}
	})

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Run(ctx, "RETURN 1", nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, ports.ErrGraphUnavailable))
	}
	assert.Equal(t, "closed", s.BreakerState())

	healthy = true
	records, err := s.Run(context.Background(), "RETURN 1", nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSession_PingFailureIsUnavailable(t *testing.T) {
	s := newSession(nil,
		func(context.Context) error { return errors.New("dial tcp: refused") },
		func(context.Context) error { return nil },
		BreakerSettings{}, observability.NewTracer("test", false), nil, zap.NewNop())

	assert.ErrorIs(t, s.Ping(context.Background()), ports.ErrGraphUnavailable)
	assert.NoError(t, s.Close(context.Background()))
}
