package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeViewOpened      = "view.opened"
	TypeViewClosed      = "view.closed"
	TypeQueryActivated  = "query.activated"
	TypeRenderCompleted = "render.completed"
	TypeNoticeChanged   = "notice.changed"
)

func newBase(viewID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: viewID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// View Events

// ViewOpened is raised when a view is created and its initial query requested
type ViewOpened struct {
	BaseEvent
	ViewID       string `json:"view_id"`
	InitialQuery string `json:"initial_query"`
}

// NewViewOpened creates a ViewOpened event
func NewViewOpened(viewID, initialQuery string, timestamp time.Time) ViewOpened {
	return ViewOpened{
		BaseEvent:    newBase(viewID, TypeViewOpened, timestamp),
		ViewID:       viewID,
		InitialQuery: initialQuery,
	}
}

// ViewClosed is raised when a view is torn down
type ViewClosed struct {
	BaseEvent
	ViewID string `json:"view_id"`
	Reason string `json:"reason"`
}

// NewViewClosed creates a ViewClosed event
func NewViewClosed(viewID, reason string, timestamp time.Time) ViewClosed {
	return ViewClosed{
		BaseEvent: newBase(viewID, TypeViewClosed, timestamp),
		ViewID:    viewID,
		Reason:    reason,
	}
}

// Query Events

// QueryActivated is raised when a query becomes the active query of a view
type QueryActivated struct {
	BaseEvent
	ViewID string `json:"view_id"`
	Query  string `json:"query"`
	Source string `json:"source"`
	Run    bool   `json:"run"`
}

// NewQueryActivated creates a QueryActivated event
func NewQueryActivated(viewID, query, source string, run bool, timestamp time.Time) QueryActivated {
	return QueryActivated{
		BaseEvent: newBase(viewID, TypeQueryActivated, timestamp),
		ViewID:    viewID,
		Query:     query,
		Source:    source,
		Run:       run,
	}
}

// Render Events

// RenderCompleted is raised when a render of a view finishes successfully
type RenderCompleted struct {
	BaseEvent
	ViewID      string `json:"view_id"`
	Query       string `json:"query"`
	RecordCount int    `json:"record_count"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewRenderCompleted creates a RenderCompleted event
func NewRenderCompleted(viewID, query string, recordCount int, duration time.Duration, timestamp time.Time) RenderCompleted {
	return RenderCompleted{
		BaseEvent:   newBase(viewID, TypeRenderCompleted, timestamp),
		ViewID:      viewID,
		Query:       query,
		RecordCount: recordCount,
		DurationMs:  duration.Milliseconds(),
	}
}

// NoticeChanged is raised when the no-results notice of a view is shown or hidden
type NoticeChanged struct {
	BaseEvent
	ViewID  string `json:"view_id"`
	Visible bool   `json:"visible"`
	Message string `json:"message,omitempty"`
}

// NewNoticeChanged creates a NoticeChanged event
func NewNoticeChanged(viewID string, visible bool, message string, timestamp time.Time) NoticeChanged {
	return NoticeChanged{
		BaseEvent: newBase(viewID, TypeNoticeChanged, timestamp),
		ViewID:    viewID,
		Visible:   visible,
		Message:   message,
	}
}
