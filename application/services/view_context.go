package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/application/ui"
	"devrank/domain/autocomplete"
	"devrank/domain/events"
	"devrank/domain/forms"
	"devrank/domain/graph"
	"devrank/domain/view"
	apperrors "devrank/pkg/errors"
)

// Sources of an activated query.
const (
	SourceInitial  = "initial"
	SourceShortcut = "shortcut"
	SourceForm     = "form"
	SourceSelect   = "select"
)

// ViewState is the client-visible state of a view.
type ViewState struct {
	ID          string              `json:"id"`
	ActiveQuery string              `json:"active_query"`
	Search      view.SearchBox      `json:"search"`
	Notice      view.Notice         `json:"notice"`
	Suggestions map[string][]string `json:"suggestions"`
	FrameState  graph.FrameState    `json:"frame_state"`
	OpenedAt    time.Time           `json:"opened_at"`
}

// ViewContext owns everything one browser view interacts with: its runner,
// render surface, suggestion state, autocomplete provider and dispatcher.
type ViewContext struct {
	id       string
	openedAt time.Time
	lastSeen atomic.Int64

	runner      *view.Runner
	surface     ports.RenderSurface
	suggestions *view.Suggestions
	provider    *AutocompleteProvider
	dispatcher  *ui.Dispatcher
	svc         *ViewService
}

// ID returns the view id.
func (v *ViewContext) ID() string {
	return v.id
}

func (v *ViewContext) touch() {
	v.lastSeen.Store(v.svc.now().UnixNano())
}

func (v *ViewContext) idleSince() time.Time {
	return time.Unix(0, v.lastSeen.Load())
}

// Dispatch delivers a UI event to the view's subscribers.
func (v *ViewContext) Dispatch(ctx context.Context, ev ui.Event) error {
	v.touch()
	return v.dispatcher.Dispatch(ctx, ev)
}

// Subscribe adds a handler after the default bindings.
func (v *ViewContext) Subscribe(t ui.EventType, h ui.Handler) {
	v.dispatcher.Subscribe(t, h)
}

// Select makes query active and optionally renders it.
func (v *ViewContext) Select(ctx context.Context, query string, run bool) error {
	v.touch()
	return v.selectQuery(ctx, query, run, SourceSelect)
}

// SelectShortcut activates and renders a catalog entry.
func (v *ViewContext) SelectShortcut(ctx context.Context, name string) error {
	return v.Dispatch(ctx, ui.ShortcutClick{Name: name})
}

// SubmitForm binds a form action and activates the resulting query.
func (v *ViewContext) SubmitForm(ctx context.Context, action string, values map[string]string, withContributors bool) error {
	return v.Dispatch(ctx, ui.FormSubmit{Action: action, Values: values, WithContributors: withContributors})
}

// SetSearchText records an edit of the search box.
func (v *ViewContext) SetSearchText(ctx context.Context, text string) error {
	return v.Dispatch(ctx, ui.SearchInput{Text: text})
}

// SubmitSearch renders the search box text, as pressing Enter does.
func (v *ViewContext) SubmitSearch(ctx context.Context) error {
	return v.Dispatch(ctx, ui.SearchKeyDown{Key: ui.KeyEnter})
}

// Suggest issues a lookup for text and waits for it to settle. The field's
// current list is returned; it is unchanged when the lookup failed, was
// skipped or was superseded.
func (v *ViewContext) Suggest(ctx context.Context, field, text string) ([]string, error) {
	v.touch()
	l, err := v.fieldInput(ctx, field, text)
	if err != nil {
		return nil, err
	}
	if err := l.Wait(ctx); err != nil {
		return nil, err
	}
	f, _ := autocomplete.ParseField(field)
	return v.suggestions.Get(f), nil
}

// State returns the client-visible state.
func (v *ViewContext) State() ViewState {
	v.touch()
	rs := v.runner.State()

	all := v.suggestions.All()
	sugg := make(map[string][]string, len(all))
	for f, names := range all {
		sugg[string(f)] = names
	}

	return ViewState{
		ID:          v.id,
		ActiveQuery: rs.ActiveQuery,
		Search:      rs.Search,
		Notice:      rs.Notice,
		Suggestions: sugg,
		FrameState:  v.surface.Frame().State,
		OpenedAt:    v.openedAt,
	}
}

// Frame returns the latest frame of the surface.
func (v *ViewContext) Frame() graph.Frame {
	v.touch()
	return v.surface.Frame()
}

// AwaitFrame waits for the render in flight and returns its frame.
func (v *ViewContext) AwaitFrame(ctx context.Context) (graph.Frame, error) {
	v.touch()
	return v.surface.Await(ctx)
}

func (v *ViewContext) selectQuery(ctx context.Context, query string, run bool, source string) error {
	if err := v.runner.Select(ctx, query, run); err != nil {
		return apperrors.Wrap(err, "failed to request render")
	}
	v.svc.publish(ctx, events.NewQueryActivated(v.id, query, source, run, v.svc.now()))
	return nil
}

func (v *ViewContext) selectShortcut(ctx context.Context, name string) error {
	tmpl, ok := v.svc.catalog.Find(name)
	if !ok {
		return apperrors.NewNotFoundError("shortcut")
	}
	return v.selectQuery(ctx, tmpl.Pattern, true, SourceShortcut)
}

func (v *ViewContext) submitForm(ctx context.Context, ev ui.FormSubmit) error {
	action, ok := forms.ParseAction(ev.Action)
	if !ok {
		return apperrors.NewValidationError("unknown form action: " + ev.Action)
	}
	query := v.svc.binder.Bind(action, forms.Values(ev.Values), ev.WithContributors)
	return v.selectQuery(ctx, query, true, SourceForm)
}

func (v *ViewContext) submitSearch(ctx context.Context) error {
	query, err := v.runner.SubmitFromSearchBox(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to request render")
	}
	v.svc.logger.Debug("Search submitted", zap.String("viewID", v.id), zap.String("query", query))
	return nil
}

func (v *ViewContext) fieldInput(ctx context.Context, field, text string) (*Lookup, error) {
	f, ok := autocomplete.ParseField(field)
	if !ok {
		return nil, apperrors.NewValidationError("unknown autocomplete field: " + field)
	}
	l, err := v.provider.TextChanged(ctx, f, text)
	if err != nil {
		return nil, apperrors.NewUnavailableError("autocomplete").WithCause(err)
	}
	return l, nil
}

func (v *ViewContext) renderCompleted(ctx context.Context, ev ui.RenderCompleted) error {
	notice, changed := v.runner.OnRenderCompleted(ev.RecordCount)
	if changed {
		v.svc.publish(ctx, events.NewNoticeChanged(v.id, notice.Visible, notice.Message, v.svc.now()))
	}
	return nil
}

// onSurfaceCompleted runs on the surface's goroutine. The notice is updated
// before the event is published.
func (v *ViewContext) onSurfaceCompleted(rc ports.RenderCompleted) {
	ctx := context.Background()
	if err := v.dispatcher.Dispatch(ctx, ui.RenderCompleted{Query: rc.Query, RecordCount: rc.RecordCount}); err != nil {
		v.svc.logger.Warn("Render completion handler failed", zap.String("viewID", v.id), zap.Error(err))
	}
	v.svc.publish(ctx, events.NewRenderCompleted(v.id, rc.Query, rc.RecordCount, rc.Duration, v.svc.now()))
}

func (v *ViewContext) close() {
	v.provider.Close()
	if err := v.surface.Close(); err != nil {
		v.svc.logger.Warn("Failed to close render surface", zap.String("viewID", v.id), zap.Error(err))
	}
	v.dispatcher.ClearAll()
}
