package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"devrank/application/ports"
	"devrank/domain/autocomplete"
	"devrank/domain/events"
	"devrank/domain/graph"
)

type MockGraphSession struct {
	mock.Mock
}

func (m *MockGraphSession) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	args := m.Called(ctx, cypher, params)
	if rs := args.Get(0); rs != nil {
		return rs.([]ports.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphSession) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockGraphSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func namesRecords(names ...string) []ports.Record {
	out := make([]ports.Record, 0, len(names))
	for _, n := range names {
		out = append(out, ports.Record{Keys: []string{"n.name"}, Values: []interface{}{n}})
	}
	return out
}

// gatedSession answers each term only after release(term) is called. It
// ignores cancellation unless honourCancel is set.
type gatedSession struct {
	mu           sync.Mutex
	gates        map[string]chan []string
	started      chan string
	honourCancel bool
}

func newGatedSession(honourCancel bool) *gatedSession {
	return &gatedSession{
		gates:        make(map[string]chan []string),
		started:      make(chan string, 16),
		honourCancel: honourCancel,
	}
}

func (s *gatedSession) gate(term string) chan []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[term]
	if !ok {
		g = make(chan []string, 1)
		s.gates[term] = g
	}
	return g
}

func (s *gatedSession) release(term string, names ...string) {
	s.gate(term) <- names
}

func (s *gatedSession) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	term, _ := params["term"].(string)
	s.started <- term
	g := s.gate(term)
	if s.honourCancel {
		select {
		case names := <-g:
			return namesRecords(names...), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return namesRecords(<-g...), nil
}

func (s *gatedSession) Ping(context.Context) error  { return nil }
func (s *gatedSession) Close(context.Context) error { return nil }

// recordingSink collects deliveries.
type recordingSink struct {
	mu         sync.Mutex
	deliveries map[autocomplete.Field][][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{deliveries: make(map[autocomplete.Field][][]string)}
}

func (r *recordingSink) sink(field autocomplete.Field, names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[field] = append(r.deliveries[field], names)
}

func (r *recordingSink) get(field autocomplete.Field) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.deliveries[field]...)
}

// fakeSurface records render requests and lets tests complete them.
type fakeSurface struct {
	mu        sync.Mutex
	cfg       ports.SurfaceConfig
	requests  []string
	handlers  []func(ports.RenderCompleted)
	closed    bool
	renderErr error
}

func (s *fakeSurface) Render(ctx context.Context) error {
	return s.RenderWithCypher(ctx, s.cfg.InitialCypher)
}

func (s *fakeSurface) RenderWithCypher(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderErr != nil {
		return s.renderErr
	}
	s.requests = append(s.requests, query)
	return nil
}

func (s *fakeSurface) OnCompleted(fn func(ports.RenderCompleted)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

func (s *fakeSurface) complete(count int) {
	s.mu.Lock()
	handlers := append([]func(ports.RenderCompleted){}, s.handlers...)
	query := ""
	if len(s.requests) > 0 {
		query = s.requests[len(s.requests)-1]
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(ports.RenderCompleted{Query: query, RecordCount: count})
	}
}

func (s *fakeSurface) Frame() graph.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := graph.Frame{State: graph.FrameIdle}
	if len(s.requests) > 0 {
		f.Query = s.requests[len(s.requests)-1]
		f.State = graph.FrameDone
	}
	return f
}

func (s *fakeSurface) Await(ctx context.Context) (graph.Frame, error) {
	return s.Frame(), nil
}

func (s *fakeSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSurface) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

type fakeSurfaceFactory struct {
	mu       sync.Mutex
	surfaces []*fakeSurface
}

func (f *fakeSurfaceFactory) NewSurface(cfg ports.SurfaceConfig) (ports.RenderSurface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeSurface{cfg: cfg}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

func (f *fakeSurfaceFactory) last() *fakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.surfaces[len(f.surfaces)-1]
}

// memoryPublisher keeps published events in order.
type memoryPublisher struct {
	mu     sync.Mutex
	events []string
	hook   func(events.DomainEvent)
}

func (p *memoryPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, event.GetEventType())
	hook := p.hook
	p.mu.Unlock()
	if hook != nil {
		hook(event)
	}
	return nil
}

func (p *memoryPublisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, e := range evs {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *memoryPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
