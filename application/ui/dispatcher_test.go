package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	d.Subscribe(EventSearchInput, func(ctx context.Context, ev Event) error {
		order = append(order, 1)
		return nil
	})
	d.Subscribe(EventSearchInput, func(ctx context.Context, ev Event) error {
		order = append(order, 2)
		return nil
	})
	d.Subscribe(EventShortcutClick, func(ctx context.Context, ev Event) error {
		order = append(order, 99)
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), SearchInput{Text: "x"}))

	assert.Equal(t, []int{1, 2}, order)
}

func TestDispatcher_CollectsErrors(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Subscribe(EventFieldInput, func(ctx context.Context, ev Event) error {
		calls++
		return errors.New("first")
	})
	d.Subscribe(EventFieldInput, func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})
	d.Subscribe(EventFieldInput, func(ctx context.Context, ev Event) error {
		calls++
		return errors.New("third")
	})

	err := d.Dispatch(context.Background(), FieldInput{Field: "user"})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "third")
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewDispatcher()

	assert.NoError(t, d.Dispatch(context.Background(), RenderCompleted{RecordCount: 1}))
}

func TestDispatcher_ClearAll(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.Subscribe(EventSearchInput, func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})

	d.ClearAll()
	require.NoError(t, d.Dispatch(context.Background(), SearchInput{Text: "MATCH"}))
	assert.Equal(t, 0, calls)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{"shortcut", `{"type":"shortcut.click","payload":{"name":"User knows"}}`, ShortcutClick{Name: "User knows"}},
		{"form", `{"type":"form.submit","payload":{"action":"user-contributes","values":{"user":"alice"},"with_contributors":true}}`,
			FormSubmit{Action: "user-contributes", Values: map[string]string{"user": "alice"}, WithContributors: true}},
		{"keydown", `{"type":"search.keydown","payload":{"key":"Enter"}}`, SearchKeyDown{Key: KeyEnter}},
		{"field", `{"type":"field.input","payload":{"field":"repo","text":"cc"}}`, FieldInput{Field: "repo", Text: "cc"}},
		{"render", `{"type":"render.completed","payload":{"record_count":0}}`, RenderCompleted{}},
		{"no payload", `{"type":"search.input"}`, SearchInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"type":"mouse.move"}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = Decode([]byte(`not json`))
	assert.ErrorContains(t, err, "invalid event envelope")

	_, err = Decode([]byte(`{"type":"field.input","payload":{"text":5}}`))
	assert.ErrorContains(t, err, "invalid field.input payload")
}
