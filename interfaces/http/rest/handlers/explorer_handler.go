package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"devrank/application/queries"
	querybus "devrank/application/queries/bus"
	"devrank/pkg/common"
	apperrors "devrank/pkg/errors"
)

// ExplorerHandler serves the view-independent parts of the explorer: the
// shortcut catalog, the form actions and the name lists.
type ExplorerHandler struct {
	queryBus *querybus.QueryBus
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewExplorerHandler creates a new explorer handler
func NewExplorerHandler(queryBus *querybus.QueryBus, errs *apperrors.ErrorHandler, logger *zap.Logger) *ExplorerHandler {
	return &ExplorerHandler{queryBus: queryBus, errors: errs, logger: logger}
}

// BindFormRequest is the body of a form bind or submit
type BindFormRequest struct {
	Values           map[string]string `json:"values"`
	WithContributors bool              `json:"with_contributors"`
}

func (h *ExplorerHandler) ask(w http.ResponseWriter, r *http.Request, q querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), q)
	if err != nil {
		h.errors.Handle(w, r, toAppError(err))
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListShortcuts handles GET /shortcuts
func (h *ExplorerHandler) ListShortcuts(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListShortcutsQuery{})
}

// ListFormActions handles GET /forms/actions
func (h *ExplorerHandler) ListFormActions(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListFormActionsQuery{})
}

// BindForm handles POST /forms/{action}/bind
func (h *ExplorerHandler) BindForm(w http.ResponseWriter, r *http.Request) {
	var req BindFormRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.ask(w, r, queries.BindFormQuery{
		Action:           pathParam(r, "action"),
		Values:           req.Values,
		WithContributors: req.WithContributors,
	})
}

// ListNames handles GET /names/{field}
func (h *ExplorerHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.ListNamesQuery{Field: pathParam(r, "field")})
}
