package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/domain/graph"
)

type reply struct {
	records []ports.Record
	err     error
}

// stubSession answers each query once its reply is released. Queries block
// until released or cancelled.
type stubSession struct {
	mu      sync.Mutex
	replies map[string]chan reply
	started chan string
}

func newStubSession() *stubSession {
	return &stubSession{
		replies: make(map[string]chan reply),
		started: make(chan string, 16),
	}
}

func (s *stubSession) gate(query string) chan reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.replies[query]
	if !ok {
		ch = make(chan reply, 1)
		s.replies[query] = ch
	}
	return ch
}

func (s *stubSession) release(query string, r reply) {
	s.gate(query) <- r
}

func (s *stubSession) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	ch := s.gate(cypher)
	s.started <- cypher
	select {
	case r := <-ch:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *stubSession) Ping(context.Context) error  { return nil }
func (s *stubSession) Close(context.Context) error { return nil }

func pathRecords(n int) []ports.Record {
	records := make([]ports.Record, 0, n)
	for i := 0; i < n; i++ {
		u := neo4j.Node{ElementId: "u" + string(rune('a'+i)), Labels: []string{"User"}, Props: map[string]interface{}{"login": "user"}}
		records = append(records, ports.Record{Keys: []string{"p"}, Values: []interface{}{neo4j.Path{Nodes: []neo4j.Node{u}}}})
	}
	return records
}

type completions struct {
	mu  sync.Mutex
	got []ports.RenderCompleted
	ch  chan struct{}
}

func newCompletions() *completions {
	return &completions{ch: make(chan struct{}, 16)}
}

func (c *completions) handle(rc ports.RenderCompleted) {
	c.mu.Lock()
	c.got = append(c.got, rc)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *completions) all() []ports.RenderCompleted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.RenderCompleted(nil), c.got...)
}

func newTestSurface(session ports.GraphSession, opts Options) *Surface {
	return NewSurface(ports.SurfaceConfig{
		ContainerID:   "viz",
		Display:       graph.DefaultDisplay(),
		InitialCypher: "INITIAL",
	}, session, opts, zap.NewNop(), nil)
}

func TestSurface_RenderCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	defer s.Close()
	done := newCompletions()
	s.OnCompleted(done.handle)

	assert.Equal(t, graph.FrameIdle, s.Frame().State)

	require.NoError(t, s.Render(context.Background()))
	assert.Equal(t, "INITIAL", <-session.started)
	assert.True(t, s.Frame().Pending())

	session.release("INITIAL", reply{records: pathRecords(2)})
	frame, err := s.Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, graph.FrameDone, frame.State)
	assert.Equal(t, "INITIAL", frame.Query)
	assert.Equal(t, 2, frame.RecordCount)
	assert.Len(t, frame.Nodes, 2)

	<-done.ch
	got := done.all()
	require.Len(t, got, 1)
	assert.Equal(t, "INITIAL", got[0].Query)
	assert.Equal(t, 2, got[0].RecordCount)
}

func TestSurface_EmptyResultStillCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	defer s.Close()
	done := newCompletions()
	s.OnCompleted(done.handle)

	require.NoError(t, s.RenderWithCypher(context.Background(), "EMPTY"))
	session.release("EMPTY", reply{})
	<-done.ch

	assert.Equal(t, 0, done.all()[0].RecordCount)
	assert.Equal(t, graph.FrameDone, s.Frame().State)
}

func TestSurface_FailureRecordedWithoutCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	done := newCompletions()
	s.OnCompleted(done.handle)

	require.NoError(t, s.RenderWithCypher(context.Background(), "MATCH ("))
	session.release("MATCH (", reply{err: errors.New("Invalid input")})

	frame, err := s.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, graph.FrameFailed, frame.State)
	assert.Contains(t, frame.Error, "Invalid input")

	require.NoError(t, s.Close())
	assert.Empty(t, done.all())
}

func TestSurface_NewRenderSupersedesInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	defer s.Close()
	done := newCompletions()
	s.OnCompleted(done.handle)

	require.NoError(t, s.RenderWithCypher(context.Background(), "FIRST"))
	<-session.started
	require.NoError(t, s.RenderWithCypher(context.Background(), "SECOND"))
	<-session.started

	session.release("SECOND", reply{records: pathRecords(1)})
	frame, err := s.Await(context.Background())
	require.NoError(t, err)
	<-done.ch

	assert.Equal(t, "SECOND", frame.Query)
	got := done.all()
	require.Len(t, got, 1)
	assert.Equal(t, "SECOND", got[0].Query)
}

func TestSurface_CompletionHandlersStopWhenSuperseded(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	defer s.Close()

	var once sync.Once
	s.OnCompleted(func(ports.RenderCompleted) {
		once.Do(func() {
			assert.NoError(t, s.RenderWithCypher(context.Background(), "SECOND"))
		})
	})
	done := newCompletions()
	s.OnCompleted(done.handle)

	require.NoError(t, s.RenderWithCypher(context.Background(), "FIRST"))
	<-session.started
	session.release("FIRST", reply{records: pathRecords(3)})

	assert.Equal(t, "SECOND", <-session.started)
	session.release("SECOND", reply{records: pathRecords(1)})
	<-done.ch
	frame, err := s.Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SECOND", frame.Query)
	got := done.all()
	require.Len(t, got, 1)
	assert.Equal(t, "SECOND", got[0].Query)
	assert.Equal(t, 1, got[0].RecordCount)
}

func TestSurface_RenderTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{Timeout: 20 * time.Millisecond})
	defer s.Close()

	require.NoError(t, s.RenderWithCypher(context.Background(), "SLOW"))
	frame, err := s.Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, graph.FrameFailed, frame.State)
	assert.Contains(t, frame.Error, context.DeadlineExceeded.Error())
}

func TestSurface_AwaitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	defer s.Close()

	require.NoError(t, s.RenderWithCypher(context.Background(), "SLOW"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	frame, err := s.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, frame.Pending())
}

func TestSurface_CloseCancelsAndRejects(t *testing.T) {
	defer goleak.VerifyNone(t)
	session := newStubSession()
	s := newTestSurface(session, Options{})
	done := newCompletions()
	s.OnCompleted(done.handle)

	require.NoError(t, s.RenderWithCypher(context.Background(), "SLOW"))
	<-session.started
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.RenderWithCypher(context.Background(), "AFTER"), ErrSurfaceClosed)
	assert.Empty(t, done.all())
}

func TestFactory_NewSurface(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := NewFactory(newStubSession(), Options{}, zap.NewNop(), nil)
	surface, err := f.NewSurface(ports.SurfaceConfig{ContainerID: "viz"})
	require.NoError(t, err)
	assert.NoError(t, surface.Close())
}
