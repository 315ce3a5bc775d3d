package commands

import (
	"devrank/application/ui"
	"devrank/pkg/utils"
)

// OpenViewCommand opens a view with a client-chosen id
type OpenViewCommand struct {
	ViewID string `json:"view_id" validate:"required,uuid"`
}

// Validate validates the command
func (c OpenViewCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CloseViewCommand tears a view down
type CloseViewCommand struct {
	ViewID string `json:"view_id" validate:"required"`
	Reason string `json:"reason"`
}

// Validate validates the command
func (c CloseViewCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SelectQueryCommand makes a query the active query of a view
type SelectQueryCommand struct {
	ViewID string `json:"view_id" validate:"required"`
	Query  string `json:"query" validate:"max=20000"`
	Run    bool   `json:"run"`
}

// Validate validates the command
func (c SelectQueryCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SelectShortcutCommand activates a catalog entry
type SelectShortcutCommand struct {
	ViewID string `json:"view_id" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

// Validate validates the command
func (c SelectShortcutCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SubmitFormCommand binds a form action and activates the result
type SubmitFormCommand struct {
	ViewID           string            `json:"view_id" validate:"required"`
	Action           string            `json:"action" validate:"required,form_action"`
	Values           map[string]string `json:"values" validate:"max=8,dive,max=500"`
	WithContributors bool              `json:"with_contributors"`
}

// Validate validates the command
func (c SubmitFormCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetSearchTextCommand records an edit of the search box
type SetSearchTextCommand struct {
	ViewID string `json:"view_id" validate:"required"`
	Text   string `json:"text" validate:"max=20000"`
}

// Validate validates the command
func (c SetSearchTextCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SubmitSearchCommand renders the search box text
type SubmitSearchCommand struct {
	ViewID string `json:"view_id" validate:"required"`
}

// Validate validates the command
func (c SubmitSearchCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DispatchEventCommand delivers a raw UI event to a view
type DispatchEventCommand struct {
	ViewID string   `json:"view_id" validate:"required"`
	Event  ui.Event `json:"-" validate:"required"`
}

// Validate validates the command
func (c DispatchEventCommand) Validate() error {
	return utils.ValidateStruct(c)
}
