package services

import (
	"context"

	"devrank/application/ui"
)

// bindDefaults wires the UI events of a view to its handlers.
func (v *ViewContext) bindDefaults() {
	d := v.dispatcher

	d.Subscribe(ui.EventShortcutClick, func(ctx context.Context, ev ui.Event) error {
		e := ev.(ui.ShortcutClick)
		return v.selectShortcut(ctx, e.Name)
	})

	d.Subscribe(ui.EventFormSubmit, func(ctx context.Context, ev ui.Event) error {
		return v.submitForm(ctx, ev.(ui.FormSubmit))
	})

	d.Subscribe(ui.EventSearchInput, func(ctx context.Context, ev ui.Event) error {
		v.runner.SetSearchText(ev.(ui.SearchInput).Text)
		return nil
	})

	d.Subscribe(ui.EventSearchKeyDown, func(ctx context.Context, ev ui.Event) error {
		if ev.(ui.SearchKeyDown).Key != ui.KeyEnter {
			return nil
		}
		return v.submitSearch(ctx)
	})

	d.Subscribe(ui.EventFieldInput, func(ctx context.Context, ev ui.Event) error {
		e := ev.(ui.FieldInput)
		_, err := v.fieldInput(ctx, e.Field, e.Text)
		return err
	})

	d.Subscribe(ui.EventRenderCompleted, func(ctx context.Context, ev ui.Event) error {
		return v.renderCompleted(ctx, ev.(ui.RenderCompleted))
	})
}
