// Package view holds the interaction state of one explorer view: the active
// query, the search box that mirrors it, the "no results" notice and the
// per-field suggestion lists.
package view

import (
	"context"
	"sync"
)

// NoResultsMessage is shown when a render completes with zero records.
const NoResultsMessage = "No results"

// Renderer accepts render requests. Implementations must return without
// waiting for the render and must not call back into the Runner before
// returning.
type Renderer interface {
	RenderWithCypher(ctx context.Context, query string) error
}

// SearchBox is the edit surface of a view.
type SearchBox struct {
	Text    string `json:"text"`
	Focused bool   `json:"focused"`
}

// Notice is the transient notification shown under the graph.
type Notice struct {
	Visible bool   `json:"visible"`
	Message string `json:"message,omitempty"`
}

// State is a point-in-time copy of a Runner.
type State struct {
	ActiveQuery string    `json:"active_query"`
	Search      SearchBox `json:"search"`
	Notice      Notice    `json:"notice"`
}

// Runner owns the active query of a view.
type Runner struct {
	mu       sync.Mutex
	renderer Renderer
	active   string
	box      SearchBox
	notice   Notice
}

// NewRunner creates a runner with an empty active query.
func NewRunner(renderer Renderer) *Runner {
	return &Runner{renderer: renderer}
}

// Select makes query the active query, mirrors it into the search box and
// focuses the box. When run is true exactly one render of query is requested.
func (r *Runner) Select(ctx context.Context, query string, run bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active = query
	r.box = SearchBox{Text: query, Focused: true}

	if !run {
		return nil
	}
	return r.renderer.RenderWithCypher(ctx, query)
}

// SubmitFromSearchBox renders the current search box text verbatim. The
// active query is left as it is.
func (r *Runner) SubmitFromSearchBox(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := r.box.Text
	return text, r.renderer.RenderWithCypher(ctx, text)
}

// SetSearchText records a user edit of the search box.
func (r *Runner) SetSearchText(text string) {
	r.mu.Lock()
	r.box.Text = text
	r.box.Focused = true
	r.mu.Unlock()
}

// OnRenderCompleted updates the notice from a render's record count and
// reports whether its visibility changed.
func (r *Runner) OnRenderCompleted(recordCount int) (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := Notice{}
	if recordCount == 0 {
		next = Notice{Visible: true, Message: NoResultsMessage}
	}
	changed := next != r.notice
	r.notice = next
	return next, changed
}

// ActiveQuery returns the last query accepted by Select.
func (r *Runner) ActiveQuery() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// State returns a copy of the runner state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{ActiveQuery: r.active, Search: r.box, Notice: r.notice}
}
