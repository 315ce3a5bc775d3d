package handlers

import (
	"context"

	"go.uber.org/zap"

	"devrank/application/commands"
	"devrank/application/services"
	"devrank/application/ui"
)

// ViewCommandHandler handles the commands that change view state. Each
// command is translated into the UI event a browser would have raised.
type ViewCommandHandler struct {
	views  *services.ViewService
	logger *zap.Logger
}

// NewViewCommandHandler creates a new handler instance
func NewViewCommandHandler(views *services.ViewService, logger *zap.Logger) *ViewCommandHandler {
	return &ViewCommandHandler{
		views:  views,
		logger: logger,
	}
}

// HandleOpenView opens a view
func (h *ViewCommandHandler) HandleOpenView(ctx context.Context, cmd commands.OpenViewCommand) error {
	_, err := h.views.OpenView(ctx, cmd.ViewID)
	return err
}

// HandleCloseView closes a view
func (h *ViewCommandHandler) HandleCloseView(ctx context.Context, cmd commands.CloseViewCommand) error {
	reason := cmd.Reason
	if reason == "" {
		reason = services.CloseReasonClient
	}
	return h.views.CloseView(ctx, cmd.ViewID, reason)
}

// HandleSelectQuery sets the active query
func (h *ViewCommandHandler) HandleSelectQuery(ctx context.Context, cmd commands.SelectQueryCommand) error {
	v, err := h.views.Get(cmd.ViewID)
	if err != nil {
		return err
	}
	return v.Select(ctx, cmd.Query, cmd.Run)
}

// HandleSelectShortcut activates a catalog entry
func (h *ViewCommandHandler) HandleSelectShortcut(ctx context.Context, cmd commands.SelectShortcutCommand) error {
	return h.dispatch(ctx, cmd.ViewID, ui.ShortcutClick{Name: cmd.Name})
}

// HandleSubmitForm binds and activates a form query
func (h *ViewCommandHandler) HandleSubmitForm(ctx context.Context, cmd commands.SubmitFormCommand) error {
	return h.dispatch(ctx, cmd.ViewID, ui.FormSubmit{
		Action:           cmd.Action,
		Values:           cmd.Values,
		WithContributors: cmd.WithContributors,
	})
}

// HandleSetSearchText records a search box edit
func (h *ViewCommandHandler) HandleSetSearchText(ctx context.Context, cmd commands.SetSearchTextCommand) error {
	return h.dispatch(ctx, cmd.ViewID, ui.SearchInput{Text: cmd.Text})
}

// HandleSubmitSearch renders the search box text
func (h *ViewCommandHandler) HandleSubmitSearch(ctx context.Context, cmd commands.SubmitSearchCommand) error {
	return h.dispatch(ctx, cmd.ViewID, ui.SearchKeyDown{Key: ui.KeyEnter})
}

// HandleDispatchEvent delivers a raw UI event
func (h *ViewCommandHandler) HandleDispatchEvent(ctx context.Context, cmd commands.DispatchEventCommand) error {
	return h.dispatch(ctx, cmd.ViewID, cmd.Event)
}

func (h *ViewCommandHandler) dispatch(ctx context.Context, viewID string, ev ui.Event) error {
	v, err := h.views.Get(viewID)
	if err != nil {
		return err
	}
	if err := v.Dispatch(ctx, ev); err != nil {
		h.logger.Debug("UI event handling failed",
			zap.String("viewID", viewID),
			zap.String("eventType", string(ev.Type())),
			zap.Error(err),
		)
		return err
	}
	return nil
}
