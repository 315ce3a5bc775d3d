package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devrank/application/commands"
	"devrank/application/commands/bus"
	"devrank/application/queries"
	querybus "devrank/application/queries/bus"
	"devrank/application/ui"
	"devrank/pkg/common"
	apperrors "devrank/pkg/errors"
)

// ViewHandler handles view-related HTTP requests
type ViewHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *apperrors.ErrorHandler,
	logger *zap.Logger,
) *ViewHandler {
	return &ViewHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
	}
}

// OpenViewRequest lets a client choose its view id
type OpenViewRequest struct {
	ViewID string `json:"view_id,omitempty"`
}

// SelectRequest is the body of POST /views/{viewID}/select. Run defaults to
// true.
type SelectRequest struct {
	Query string `json:"query"`
	Run   *bool  `json:"run,omitempty"`
}

// SearchTextRequest is the body of PUT /views/{viewID}/search
type SearchTextRequest struct {
	Text string `json:"text"`
}

// send executes cmd and replies with the resulting view state
func (h *ViewHandler) send(w http.ResponseWriter, r *http.Request, viewID string, cmd bus.Command, status int) {
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	h.respondState(w, r, viewID, status)
}

func (h *ViewHandler) respondState(w http.ResponseWriter, r *http.Request, viewID string, status int) {
	state, err := h.queryBus.Ask(r.Context(), queries.GetViewStateQuery{ViewID: viewID})
	if err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	common.RespondJSON(w, status, state)
}

// OpenView handles POST /views
func (h *ViewHandler) OpenView(w http.ResponseWriter, r *http.Request) {
	var req OpenViewRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if req.ViewID == "" {
		req.ViewID = uuid.NewString()
	}

	h.logger.Debug("Opening view", zap.String("viewID", req.ViewID))
	h.send(w, r, req.ViewID, commands.OpenViewCommand{ViewID: req.ViewID}, http.StatusCreated)
}

// GetView handles GET /views/{viewID}
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, pathParam(r, "viewID"), http.StatusOK)
}

// CloseView handles DELETE /views/{viewID}
func (h *ViewHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	cmd := commands.CloseViewCommand{ViewID: pathParam(r, "viewID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	common.RespondNoContent(w)
}

// Select handles POST /views/{viewID}/select
func (h *ViewHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	run := true
	if req.Run != nil {
		run = *req.Run
	}

	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.SelectQueryCommand{ViewID: viewID, Query: req.Query, Run: run}, http.StatusOK)
}

// SelectShortcut handles POST /views/{viewID}/shortcuts/{name}
func (h *ViewHandler) SelectShortcut(w http.ResponseWriter, r *http.Request) {
	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.SelectShortcutCommand{ViewID: viewID, Name: pathParam(r, "name")}, http.StatusOK)
}

// SubmitForm handles POST /views/{viewID}/forms/{action}
func (h *ViewHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var req BindFormRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.SubmitFormCommand{
		ViewID:           viewID,
		Action:           pathParam(r, "action"),
		Values:           req.Values,
		WithContributors: req.WithContributors,
	}, http.StatusOK)
}

// SetSearchText handles PUT /views/{viewID}/search
func (h *ViewHandler) SetSearchText(w http.ResponseWriter, r *http.Request) {
	var req SearchTextRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.SetSearchTextCommand{ViewID: viewID, Text: req.Text}, http.StatusOK)
}

// SubmitSearch handles POST /views/{viewID}/search
func (h *ViewHandler) SubmitSearch(w http.ResponseWriter, r *http.Request) {
	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.SubmitSearchCommand{ViewID: viewID}, http.StatusOK)
}

// DispatchEvent handles POST /views/{viewID}/events
func (h *ViewHandler) DispatchEvent(w http.ResponseWriter, r *http.Request) {
	data, err := common.ReadBody(w, r, common.MaxBodyBytes)
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	ev, err := ui.Decode(data)
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	viewID := pathParam(r, "viewID")
	h.send(w, r, viewID, commands.DispatchEventCommand{ViewID: viewID, Event: ev}, http.StatusOK)
}

// Suggestions handles GET /views/{viewID}/suggestions/{field}?term=
func (h *ViewHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetSuggestionsQuery{
		ViewID: pathParam(r, "viewID"),
		Field:  pathParam(r, "field"),
		Term:   r.URL.Query().Get("term"),
	})
	if err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Frame handles GET /views/{viewID}/frame?wait=true
func (h *ViewHandler) Frame(w http.ResponseWriter, r *http.Request) {
	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.errors.Handle(w, r, apperrors.NewValidationError("wait must be a boolean"))
			return
		}
		wait = parsed
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetFrameQuery{ViewID: pathParam(r, "viewID"), Wait: wait})
	if err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
