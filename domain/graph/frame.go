// Package graph models what a render produces: a frame of display nodes and
// edges, and the mapping that decides how graph entities are displayed.
package graph

import (
	"time"
)

// FrameState is the lifecycle of a render.
type FrameState string

const (
	FrameIdle      FrameState = "idle"
	FrameRendering FrameState = "rendering"
	FrameDone      FrameState = "done"
	FrameFailed    FrameState = "failed"
)

// Node is a graph node as the visualisation widget draws it.
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Labels     []string               `json:"labels"`
	Caption    string                 `json:"caption,omitempty"`
	Size       *float64               `json:"size,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Edge is a relationship as the visualisation widget draws it.
type Edge struct {
	ID         string                 `json:"id"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Type       string                 `json:"type"`
	Caption    string                 `json:"caption,omitempty"`
	Thickness  *float64               `json:"thickness,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Frame is the result of rendering one query.
type Frame struct {
	Query       string     `json:"query"`
	State       FrameState `json:"state"`
	Nodes       []Node     `json:"nodes"`
	Edges       []Edge     `json:"edges"`
	RecordCount int        `json:"record_count"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	RenderedAt  time.Time  `json:"rendered_at,omitempty"`
}

// Pending reports whether the frame is still being rendered.
func (f Frame) Pending() bool {
	return f.State == FrameRendering
}
