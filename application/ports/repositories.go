package ports

import (
	"context"
	"errors"
	"time"

	"devrank/domain/events"
	"devrank/domain/graph"
)

// ErrGraphUnavailable is wrapped by GraphSession implementations when the
// database cannot be reached or the circuit is open.
var ErrGraphUnavailable = errors.New("graph database unavailable")

// Record is one row of a query result. Values keep the driver's types.
type Record struct {
	Keys   []string
	Values []interface{}
}

// Get returns the value bound to key.
func (r Record) Get(key string) (interface{}, bool) {
	for i, k := range r.Keys {
		if k == key && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// GraphSession runs read-only queries against the graph database
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type GraphSession interface {
	// Run executes a read query and collects every record
	Run(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error)

	// Ping verifies the database is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying driver
	Close(ctx context.Context) error
}

// SurfaceConfig is the construction-time configuration of a render surface.
type SurfaceConfig struct {
	ContainerID   string
	ServerURL     string
	ServerUser    string
	Display       graph.DisplayConfig
	InitialCypher string
}

// RenderCompleted is delivered to completion handlers after a successful render.
type RenderCompleted struct {
	Query       string
	RecordCount int
	Duration    time.Duration
}

// RenderSurface draws a query into a frame of display nodes and edges
type RenderSurface interface {
	// Render draws the initial query of the surface
	Render(ctx context.Context) error

	// RenderWithCypher draws query, superseding any render in flight
	RenderWithCypher(ctx context.Context, query string) error

	// OnCompleted registers a handler for successful renders
	OnCompleted(fn func(RenderCompleted))

	// Frame returns the latest frame
	Frame() graph.Frame

	// Await blocks until no render is in flight and returns the latest frame
	Await(ctx context.Context) (graph.Frame, error)

	// Close cancels any render in flight and releases the surface
	Close() error
}

// SurfaceFactory creates one render surface per view
type SurfaceFactory interface {
	NewSurface(cfg SurfaceConfig) (RenderSurface, error)
}

// ConnectionStore maps views to the WebSocket connections watching them
type ConnectionStore interface {
	// Save registers a connection for a view
	Save(ctx context.Context, viewID, connectionID string) error

	// Delete removes a connection
	Delete(ctx context.Context, connectionID string) error

	// ListByView returns the connections watching a view
	ListByView(ctx context.Context, viewID string) ([]string, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
