// Package ui defines the UI events a view reacts to and the dispatcher that
// delivers them to subscribers.
package ui

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// EventType names a UI event.
type EventType string

const (
	EventShortcutClick   EventType = "shortcut.click"
	EventFormSubmit      EventType = "form.submit"
	EventSearchInput     EventType = "search.input"
	EventSearchKeyDown   EventType = "search.keydown"
	EventFieldInput      EventType = "field.input"
	EventRenderCompleted EventType = "render.completed"
)

// KeyEnter commits the search box.
const KeyEnter = "Enter"

// Event is anything the dispatcher can deliver.
type Event interface {
	Type() EventType
}

// ShortcutClick selects a catalog entry by name or slug.
type ShortcutClick struct {
	Name string `json:"name"`
}

func (ShortcutClick) Type() EventType { return EventShortcutClick }

// FormSubmit binds a form action and selects the result.
type FormSubmit struct {
	Action           string            `json:"action"`
	Values           map[string]string `json:"values"`
	WithContributors bool              `json:"with_contributors"`
}

func (FormSubmit) Type() EventType { return EventFormSubmit }

// SearchInput is an edit of the search box.
type SearchInput struct {
	Text string `json:"text"`
}

func (SearchInput) Type() EventType { return EventSearchInput }

// SearchKeyDown is a key press while the search box has focus.
type SearchKeyDown struct {
	Key string `json:"key"`
}

func (SearchKeyDown) Type() EventType { return EventSearchKeyDown }

// FieldInput is a text change in an autocomplete field.
type FieldInput struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

func (FieldInput) Type() EventType { return EventFieldInput }

// RenderCompleted is raised by the render surface.
type RenderCompleted struct {
	Query       string `json:"query"`
	RecordCount int    `json:"record_count"`
}

func (RenderCompleted) Type() EventType { return EventRenderCompleted }

// Envelope is the wire form of an event.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses an envelope into a typed event.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}

	var ev Event
	switch env.Type {
	case EventShortcutClick:
		ev = &ShortcutClick{}
	case EventFormSubmit:
		ev = &FormSubmit{}
	case EventSearchInput:
		ev = &SearchInput{}
	case EventSearchKeyDown:
		ev = &SearchKeyDown{}
	case EventFieldInput:
		ev = &FieldInput{}
	case EventRenderCompleted:
		ev = &RenderCompleted{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, ev); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *ShortcutClick:
		return *e
	case *FormSubmit:
		return *e
	case *SearchInput:
		return *e
	case *SearchKeyDown:
		return *e
	case *FieldInput:
		return *e
	case *RenderCompleted:
		return *e
	}
	return ev
}
