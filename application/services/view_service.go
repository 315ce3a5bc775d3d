package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/application/ui"
	"devrank/domain/catalog"
	"devrank/domain/events"
	"devrank/domain/forms"
	"devrank/domain/graph"
	"devrank/domain/view"
	apperrors "devrank/pkg/errors"
	"devrank/pkg/observability"
)

// Reasons a view was closed.
const (
	CloseReasonClient   = "client"
	CloseReasonIdle     = "idle"
	CloseReasonShutdown = "shutdown"
)

// ViewOptions configures the views created by a ViewService.
type ViewOptions struct {
	ServerURL    string
	ServerUser   string
	Display      graph.DisplayConfig
	Autocomplete AutocompleteOptions
	IdleTimeout  time.Duration
}

// ViewService opens, tracks and closes views.
type ViewService struct {
	catalog   *catalog.Catalog
	binder    *forms.Binder
	session   ports.GraphSession
	surfaces  ports.SurfaceFactory
	publisher ports.EventPublisher
	opts      ViewOptions
	logger    *zap.Logger
	metrics   observability.Recorder
	now       func() time.Time

	mu    sync.RWMutex
	views map[string]*ViewContext
}

// NewViewService creates a view service
func NewViewService(
	cat *catalog.Catalog,
	binder *forms.Binder,
	session ports.GraphSession,
	surfaces ports.SurfaceFactory,
	publisher ports.EventPublisher,
	opts ViewOptions,
	logger *zap.Logger,
	metrics observability.Recorder,
) *ViewService {
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	return &ViewService{
		catalog:   cat,
		binder:    binder,
		session:   session,
		surfaces:  surfaces,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		views:     make(map[string]*ViewContext),
	}
}

// OpenView creates a view, shows the initial query in its search box and
// renders it. An empty id gets a generated one.
func (s *ViewService) OpenView(ctx context.Context, id string) (*ViewContext, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("view id must be a UUID")
	}

	s.mu.Lock()
	if _, exists := s.views[id]; exists {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError("view already exists")
	}
	// Reserve the id while the view is built.
	s.views[id] = nil
	s.mu.Unlock()

	v, err := s.buildView(ctx, id)
	if err != nil {
		s.mu.Lock()
		delete(s.views, id)
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.views[id] = v
	open := len(s.views)
	s.mu.Unlock()

	s.metrics.ViewsOpen(open)
	s.publish(ctx, events.NewViewOpened(id, catalog.InitialQuery, s.now()))
	s.logger.Info("View opened", zap.String("viewID", id))
	return v, nil
}

func (s *ViewService) buildView(ctx context.Context, id string) (*ViewContext, error) {
	surface, err := s.surfaces.NewSurface(ports.SurfaceConfig{
		ContainerID:   id,
		ServerURL:     s.opts.ServerURL,
		ServerUser:    s.opts.ServerUser,
		Display:       s.opts.Display,
		InitialCypher: catalog.InitialQuery,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create render surface")
	}

	v := &ViewContext{
		id:          id,
		openedAt:    s.now(),
		runner:      view.NewRunner(surface),
		surface:     surface,
		suggestions: view.NewSuggestions(),
		dispatcher:  ui.NewDispatcher(),
		svc:         s,
	}
	v.touch()
	v.provider = NewAutocompleteProvider(s.session, v.suggestions.Deliver, s.opts.Autocomplete,
		s.logger.With(zap.String("viewID", id)), s.metrics)
	v.bindDefaults()
	surface.OnCompleted(v.onSurfaceCompleted)

	if err := v.runner.Select(ctx, catalog.InitialQuery, false); err != nil {
		v.close()
		return nil, err
	}
	if err := surface.Render(ctx); err != nil {
		v.close()
		return nil, apperrors.Wrap(err, "failed to render initial query")
	}
	s.publish(ctx, events.NewQueryActivated(id, catalog.InitialQuery, SourceInitial, true, s.now()))
	return v, nil
}

// Get returns an open view.
func (s *ViewService) Get(id string) (*ViewContext, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()

	if !ok || v == nil {
		return nil, apperrors.NewNotFoundError("view")
	}
	return v, nil
}

// CloseView tears a view down.
func (s *ViewService) CloseView(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	if !ok || v == nil {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("view")
	}
	delete(s.views, id)
	open := len(s.views)
	s.mu.Unlock()

	v.close()
	s.metrics.ViewsOpen(open)
	s.publish(ctx, events.NewViewClosed(id, reason, s.now()))
	s.logger.Info("View closed", zap.String("viewID", id), zap.String("reason", reason))
	return nil
}

// IDs lists the open views in a stable order.
func (s *ViewService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.views))
	for id, v := range s.views {
		if v != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Reap closes views idle for longer than the idle timeout and returns their ids.
func (s *ViewService) Reap(ctx context.Context) []string {
	if s.opts.IdleTimeout <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.opts.IdleTimeout)

	s.mu.RLock()
	var idle []string
	for id, v := range s.views {
		if v != nil && v.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	reaped := idle[:0]
	for _, id := range idle {
		if err := s.CloseView(ctx, id, CloseReasonIdle); err == nil {
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// RunReaper reaps idle views every interval until ctx is done.
func (s *ViewService) RunReaper(ctx context.Context, interval time.Duration) {
	if s.opts.IdleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := s.Reap(ctx); len(ids) > 0 {
				s.logger.Info("Reaped idle views", zap.Int("count", len(ids)))
			}
		}
	}
}

// Shutdown closes every open view.
func (s *ViewService) Shutdown(ctx context.Context) {
	for _, id := range s.IDs() {
		_ = s.CloseView(ctx, id, CloseReasonShutdown)
	}
}

// Catalog returns the shortcut catalog.
func (s *ViewService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Binder returns the form binder.
func (s *ViewService) Binder() *forms.Binder {
	return s.binder
}

func (s *ViewService) publish(ctx context.Context, ev events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", ev.GetEventType()),
			zap.String("viewID", ev.GetAggregateID()),
			zap.Error(err),
		)
	}
}
