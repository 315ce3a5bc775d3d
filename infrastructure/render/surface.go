package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/domain/graph"
	"devrank/pkg/observability"
)

// ErrSurfaceClosed is returned by renders requested after Close.
var ErrSurfaceClosed = errors.New("render surface closed")

// Options configures surfaces created by a Factory.
type Options struct {
	// Timeout bounds a single render; zero means none.
	Timeout time.Duration
}

// Factory creates surfaces that share one graph session.
type Factory struct {
	session ports.GraphSession
	opts    Options
	logger  *zap.Logger
	metrics observability.Recorder
}

// NewFactory creates a surface factory
func NewFactory(session ports.GraphSession, opts Options, logger *zap.Logger, metrics observability.Recorder) *Factory {
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	return &Factory{
		session: session,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// NewSurface implements ports.SurfaceFactory.
func (f *Factory) NewSurface(cfg ports.SurfaceConfig) (ports.RenderSurface, error) {
	return NewSurface(cfg, f.session, f.opts, f.logger, f.metrics), nil
}

// Surface renders queries asynchronously. A new render cancels the one in
// flight; only the latest render updates the frame or fires completion.
type Surface struct {
	cfg     ports.SurfaceConfig
	session ports.GraphSession
	opts    Options
	logger  *zap.Logger
	metrics observability.Recorder
	now     func() time.Time

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	frame    graph.Frame
	gen      uint64
	cancel   context.CancelFunc
	current  chan struct{}
	handlers []func(ports.RenderCompleted)
	closed   bool
}

// NewSurface creates a surface for one view
func NewSurface(cfg ports.SurfaceConfig, session ports.GraphSession, opts Options, logger *zap.Logger, metrics observability.Recorder) *Surface {
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Surface{
		cfg:     cfg,
		session: session,
		opts:    opts,
		logger:  logger.With(zap.String("container", cfg.ContainerID)),
		metrics: metrics,
		now:     time.Now,
		ctx:     ctx,
		stop:    stop,
		frame: graph.Frame{
			State: graph.FrameIdle,
			Nodes: []graph.Node{},
			Edges: []graph.Edge{},
		},
	}
}

// Render draws the initial query.
func (s *Surface) Render(ctx context.Context) error {
	return s.RenderWithCypher(ctx, s.cfg.InitialCypher)
}

// RenderWithCypher starts drawing query and returns without waiting. The
// render outlives ctx; it ends when superseded, timed out or the surface closes.
func (s *Surface) RenderWithCypher(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	var rctx context.Context
	var cancel context.CancelFunc
	if s.opts.Timeout > 0 {
		rctx, cancel = context.WithTimeout(s.ctx, s.opts.Timeout)
	} else {
		rctx, cancel = context.WithCancel(s.ctx)
	}
	done := make(chan struct{})
	s.cancel = cancel
	s.current = done
	s.frame = graph.Frame{
		Query:     query,
		State:     graph.FrameRendering,
		Nodes:     []graph.Node{},
		Edges:     []graph.Edge{},
		StartedAt: s.now(),
	}

	s.wg.Add(1)
	go s.run(rctx, cancel, s.gen, query, done)
	return nil
}

func (s *Surface) run(ctx context.Context, cancel context.CancelFunc, gen uint64, query string, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	start := s.now()
	records, err := s.session.Run(ctx, query, nil)
	var nodes []graph.Node
	var edges []graph.Edge
	if err == nil {
		nodes, edges = buildFrame(s.cfg.Display, records)
	}
	duration := s.now().Sub(start)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.metrics.Render(observability.OutcomeSuperseded, 0, duration)
		return
	}
	if err != nil {
		s.frame.State = graph.FrameFailed
		s.frame.Error = err.Error()
		s.frame.RenderedAt = s.now()
		s.mu.Unlock()

		s.metrics.Render(observability.OutcomeFailure, 0, duration)
		s.logger.Warn("Render failed", zap.String("query", query), zap.Error(err))
		return
	}
	s.frame.State = graph.FrameDone
	s.frame.Nodes = nodes
	s.frame.Edges = edges
	s.frame.RecordCount = len(records)
	s.frame.RenderedAt = s.now()
	handlers := append([]func(ports.RenderCompleted){}, s.handlers...)
	s.mu.Unlock()

	outcome := observability.OutcomeSuccess
	if len(records) == 0 {
		outcome = observability.OutcomeEmpty
	}
	s.metrics.Render(outcome, len(records), duration)
	s.logger.Debug("Render completed",
		zap.String("query", query),
		zap.Int("recordCount", len(records)),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Duration("duration", duration),
	)

	completed := ports.RenderCompleted{Query: query, RecordCount: len(records), Duration: duration}
	for _, h := range handlers {
		// a handler may have started the next render
		if !s.isCurrent(gen) {
			return
		}
		h(completed)
	}
}

func (s *Surface) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && !s.closed
}

// OnCompleted registers a completion handler. Handlers run on the render
// goroutine in registration order.
func (s *Surface) OnCompleted(fn func(ports.RenderCompleted)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Frame returns a copy of the latest frame.
func (s *Surface) Frame() graph.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFrame(s.frame)
}

// Await blocks until no render is in flight. On ctx expiry the current
// frame is returned with ctx's error.
func (s *Surface) Await(ctx context.Context) (graph.Frame, error) {
	for {
		s.mu.Lock()
		done := s.current
		s.mu.Unlock()
		if done == nil {
			return s.Frame(), nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return s.Frame(), ctx.Err()
		}

		s.mu.Lock()
		latest := s.current == done
		frame := copyFrame(s.frame)
		s.mu.Unlock()
		if latest {
			return frame, nil
		}
	}
}

// Close cancels any render in flight and waits for it to stop.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = nil
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
	return nil
}

func copyFrame(f graph.Frame) graph.Frame {
	out := f
	out.Nodes = append([]graph.Node{}, f.Nodes...)
	out.Edges = append([]graph.Edge{}, f.Edges...)
	return out
}
