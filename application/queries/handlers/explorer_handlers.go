package handlers

import (
	"context"

	"go.uber.org/zap"

	"devrank/application/queries"
	"devrank/application/services"
	"devrank/domain/autocomplete"
	"devrank/domain/catalog"
	"devrank/domain/forms"
	"devrank/domain/graph"
	apperrors "devrank/pkg/errors"
)

// ExplorerQueryHandler answers the read side of the explorer
type ExplorerQueryHandler struct {
	views  *services.ViewService
	names  *services.NamesService
	logger *zap.Logger
}

// NewExplorerQueryHandler creates a new handler instance
func NewExplorerQueryHandler(views *services.ViewService, names *services.NamesService, logger *zap.Logger) *ExplorerQueryHandler {
	return &ExplorerQueryHandler{
		views:  views,
		names:  names,
		logger: logger,
	}
}

// HandleListShortcuts returns the catalog in display order
func (h *ExplorerQueryHandler) HandleListShortcuts(ctx context.Context, q queries.ListShortcutsQuery) ([]catalog.QueryTemplate, error) {
	return h.views.Catalog().List(), nil
}

// HandleListFormActions returns the supported actions
func (h *ExplorerQueryHandler) HandleListFormActions(ctx context.Context, q queries.ListFormActionsQuery) ([]forms.ActionInfo, error) {
	return forms.Actions(), nil
}

// HandleBindForm binds form values with the configured binder
func (h *ExplorerQueryHandler) HandleBindForm(ctx context.Context, q queries.BindFormQuery) (*queries.BindFormResult, error) {
	action, ok := forms.ParseAction(q.Action)
	if !ok {
		return nil, apperrors.NewValidationError("unknown form action: " + q.Action)
	}
	return &queries.BindFormResult{
		Action: q.Action,
		Query:  h.views.Binder().Bind(action, forms.Values(q.Values), q.WithContributors),
	}, nil
}

// HandleListNames returns the full sorted list of a field
func (h *ExplorerQueryHandler) HandleListNames(ctx context.Context, q queries.ListNamesQuery) (*queries.NamesResult, error) {
	field, ok := autocomplete.ParseField(q.Field)
	if !ok {
		return nil, apperrors.NewValidationError("unknown autocomplete field: " + q.Field)
	}
	names, err := h.names.ListNames(ctx, field)
	if err != nil {
		h.logger.Warn("Failed to list names", zap.String("field", q.Field), zap.Error(err))
		return nil, apperrors.NewUnavailableError("graph database").WithCause(err)
	}
	return &queries.NamesResult{Field: q.Field, Names: names}, nil
}

// HandleGetViewState returns the state of one view
func (h *ExplorerQueryHandler) HandleGetViewState(ctx context.Context, q queries.GetViewStateQuery) (*services.ViewState, error) {
	v, err := h.views.Get(q.ViewID)
	if err != nil {
		return nil, err
	}
	state := v.State()
	return &state, nil
}

// HandleGetFrame returns the view's frame
func (h *ExplorerQueryHandler) HandleGetFrame(ctx context.Context, q queries.GetFrameQuery) (*graph.Frame, error) {
	v, err := h.views.Get(q.ViewID)
	if err != nil {
		return nil, err
	}
	if !q.Wait {
		frame := v.Frame()
		return &frame, nil
	}
	frame, err := v.AwaitFrame(ctx)
	if err != nil {
		return nil, apperrors.NewTimeoutError("render").WithCause(err)
	}
	return &frame, nil
}

// HandleGetSuggestions runs a lookup and returns the resulting list. The
// list is empty when no lookup has delivered for the field yet.
func (h *ExplorerQueryHandler) HandleGetSuggestions(ctx context.Context, q queries.GetSuggestionsQuery) (*queries.SuggestionsResult, error) {
	v, err := h.views.Get(q.ViewID)
	if err != nil {
		return nil, err
	}
	names, err := v.Suggest(ctx, q.Field, q.Term)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &queries.SuggestionsResult{Field: q.Field, Term: q.Term, Names: names}, nil
}
