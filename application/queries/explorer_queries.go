package queries

import (
	"fmt"

	"devrank/domain/forms"
	"devrank/pkg/utils"
)

// ListShortcutsQuery lists the shortcut catalog
type ListShortcutsQuery struct{}

// Validate validates the query
func (q ListShortcutsQuery) Validate() error { return nil }

// ListFormActionsQuery lists the supported form actions
type ListFormActionsQuery struct{}

// Validate validates the query
func (q ListFormActionsQuery) Validate() error { return nil }

// BindFormQuery binds form values into query text without touching a view
type BindFormQuery struct {
	Action           string            `json:"action" validate:"required"`
	Values           map[string]string `json:"values" validate:"max=8,dive,max=500"`
	WithContributors bool              `json:"with_contributors"`
}

// Validate validates the query
func (q BindFormQuery) Validate() error {
	if err := utils.ValidateStruct(q); err != nil {
		return err
	}
	if _, ok := forms.ParseAction(q.Action); !ok {
		return fmt.Errorf("unknown form action %q", q.Action)
	}
	return nil
}

// BindFormResult is the bound query text
type BindFormResult struct {
	Action string `json:"action"`
	Query  string `json:"query"`
}

// ListNamesQuery lists every name of an autocomplete field
type ListNamesQuery struct {
	Field string `json:"field" validate:"required,oneof=user repo language"`
}

// Validate validates the query
func (q ListNamesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// NamesResult holds a sorted name list
type NamesResult struct {
	Field string   `json:"field"`
	Names []string `json:"names"`
}

// GetViewStateQuery returns the client-visible state of a view
type GetViewStateQuery struct {
	ViewID string `json:"view_id" validate:"required"`
}

// Validate validates the query
func (q GetViewStateQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetFrameQuery returns the latest frame of a view, optionally waiting for
// the render in flight.
type GetFrameQuery struct {
	ViewID string `json:"view_id" validate:"required"`
	Wait   bool   `json:"wait"`
}

// Validate validates the query
func (q GetFrameQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetSuggestionsQuery issues a lookup for Term and returns the field's list
// once it settles.
type GetSuggestionsQuery struct {
	ViewID string `json:"view_id" validate:"required"`
	Field  string `json:"field" validate:"required,oneof=user repo language"`
	Term   string `json:"term" validate:"max=200"`
}

// Validate validates the query
func (q GetSuggestionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// SuggestionsResult is the list shown under a field
type SuggestionsResult struct {
	Field string   `json:"field"`
	Term  string   `json:"term"`
	Names []string `json:"names"`
}
