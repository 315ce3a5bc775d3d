package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"devrank/application/ports"
	"devrank/domain/autocomplete"
	"devrank/pkg/observability"
)

// namesFillTimeout bounds a shared fill, which outlives any one caller.
const namesFillTimeout = time.Minute

// NamesService lists every name of a suggestion field, for pre-populating
// select inputs. Lists are cached and concurrent fills share one query.
type NamesService struct {
	session ports.GraphSession
	cache   ports.Cache
	ttl     time.Duration
	specs   map[autocomplete.Field]autocomplete.FieldSpec
	logger  *zap.Logger
	metrics observability.Recorder
	group   singleflight.Group
}

// NewNamesService creates the service. A zero ttl disables caching.
func NewNamesService(
	session ports.GraphSession,
	cache ports.Cache,
	ttl time.Duration,
	specs map[autocomplete.Field]autocomplete.FieldSpec,
	logger *zap.Logger,
	metrics observability.Recorder,
) *NamesService {
	if specs == nil {
		specs = autocomplete.DefaultSpecs()
	}
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	return &NamesService{
		session: session,
		cache:   cache,
		ttl:     ttl,
		specs:   specs,
		logger:  logger,
		metrics: metrics,
	}
}

func namesCacheKey(field autocomplete.Field) string {
	return "names:" + string(field)
}

// ListNames returns the full, case-insensitively sorted name list of field.
func (s *NamesService) ListNames(ctx context.Context, field autocomplete.Field) ([]string, error) {
	spec, ok := s.specs[field]
	if !ok {
		return nil, fmt.Errorf("unknown autocomplete field %q", field)
	}

	key := namesCacheKey(field)
	if s.cache != nil && s.ttl > 0 {
		if cached, found := s.cache.Get(ctx, key); found {
			s.metrics.CacheAccess("names", true)
			return copyNames(cached.([]string)), nil
		}
		s.metrics.CacheAccess("names", false)
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), namesFillTimeout)
		defer cancel()

		records, err := s.session.Run(fillCtx, spec.ListCypher(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s names: %w", field, err)
		}
		names := autocomplete.SortNames(namesOf(records))

		if s.cache != nil && s.ttl > 0 {
			if err := s.cache.Set(fillCtx, key, names, int(s.ttl.Seconds())); err != nil {
				s.logger.Warn("Failed to cache names", zap.String("field", string(field)), zap.Error(err))
			}
		}
		return names, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("Shared names fill", zap.String("field", string(field)))
	}
	return copyNames(res.Val.([]string)), nil
}

// Invalidate drops the cached list of field.
func (s *NamesService) Invalidate(ctx context.Context, field autocomplete.Field) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, namesCacheKey(field))
}

func copyNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}
