// Package neo4j implements the graph session on top of the Neo4j driver.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/pkg/observability"
)

// Config holds the connection settings of the graph database.
type Config struct {
	URI                   string
	User                  string
	Password              string
	Database              string
	MaxConnectionPoolSize int
	ConnectTimeout        time.Duration
}

// BreakerSettings tunes the circuit breaker guarding the driver.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings trips after five consecutive failures and tries
// again after thirty seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// Session runs read queries through a shared driver. It is safe for
// concurrent use; each call borrows a pooled connection.
type Session struct {
	runner  queryRunner
	closer  func(context.Context) error
	pinger  func(context.Context) error
	breaker *gobreaker.CircuitBreaker
	tracer  *observability.Tracer
	metrics observability.Recorder
	logger  *zap.Logger
}

// queryRunner executes one query and returns its keys and rows.
type queryRunner func(ctx context.Context, cypher string, params map[string]interface{}) ([]*neo4j.Record, error)

// NewSession opens a driver for cfg. The connection is not verified; use Ping.
func NewSession(cfg Config, breaker BreakerSettings, tracer *observability.Tracer, metrics observability.Recorder, logger *zap.Logger) (*Session, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectTimeout > 0 {
			c.SocketConnectTimeout = cfg.ConnectTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	run := func(ctx context.Context, cypher string, params map[string]interface{}) ([]*neo4j.Record, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if cfg.Database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
		}
		result, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return result.Records, nil
	}

	s := newSession(run, driver.VerifyConnectivity, driver.Close, breaker, tracer, metrics, logger)
	logger.Info("Graph database driver created",
		zap.String("uri", cfg.URI),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
	)
	return s, nil
}

func newSession(
	run queryRunner,
	ping, closer func(context.Context) error,
	settings BreakerSettings,
	tracer *observability.Tracer,
	metrics observability.Recorder,
	logger *zap.Logger,
) *Session {
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	if settings.ConsecutiveFailures == 0 {
		settings = DefaultBreakerSettings()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "neo4j",
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Session{
		runner:  run,
		pinger:  ping,
		closer:  closer,
		breaker: breaker,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// isBreakerSuccess keeps query mistakes and cancellations from tripping the
// breaker; only database and network failures count. Run wraps the caller's
// context error so a cancel is recognised whatever the driver returned.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return isClientError(err)
}

func isClientError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return strings.HasPrefix(neoErr.Code, "Neo.ClientError")
	}
	return false
}

// Run executes cypher and collects every record.
func (s *Session) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	start := time.Now()
	var records []ports.Record

	err := s.tracer.TraceFunction(ctx, "neo4j.Run", func(ctx context.Context) error {
		s.tracer.AddMetadata(ctx, "cypher", cypher)

		out, err := s.breaker.Execute(func() (interface{}, error) {
			rows, err := s.runner(ctx, cypher, params)
			if err != nil && ctx.Err() != nil {
				// the driver's read-cancel errors do not unwrap to ctx.Err()
				return nil, fmt.Errorf("%w: %v", ctx.Err(), err)
			}
			return rows, err
		})
		if err != nil {
			return err
		}

		rows := out.([]*neo4j.Record)
		records = make([]ports.Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, ports.Record{Keys: row.Keys, Values: row.Values})
		}
		return nil
	})

	s.metrics.GraphQuery("run", time.Since(start), err)
	if err != nil {
		return nil, s.classify(err)
	}
	return records, nil
}

// classify marks errors that mean the database cannot serve requests.
func (s *Session) classify(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", ports.ErrGraphUnavailable, err)
	case neo4j.IsConnectivityError(err):
		return fmt.Errorf("%w: %v", ports.ErrGraphUnavailable, err)
	default:
		return fmt.Errorf("graph query failed: %w", err)
	}
}

// Ping verifies connectivity.
func (s *Session) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.pinger(ctx)
	s.metrics.GraphQuery("ping", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrGraphUnavailable, err)
	}
	return nil
}

// Close releases the driver.
func (s *Session) Close(ctx context.Context) error {
	if err := s.closer(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	s.logger.Info("Graph database driver closed")
	return nil
}

// BreakerState reports the current state of the circuit breaker.
func (s *Session) BreakerState() string {
	return s.breaker.State().String()
}
