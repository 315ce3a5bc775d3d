package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"devrank/application/commands"
	"devrank/application/ports"
	"devrank/application/services"
	"devrank/application/ui"
	"devrank/domain/catalog"
	"devrank/domain/forms"
	"devrank/domain/graph"
	"devrank/infrastructure/render"
	apperrors "devrank/pkg/errors"
)

type emptySession struct{}

func (emptySession) Run(context.Context, string, map[string]interface{}) ([]ports.Record, error) {
	return nil, nil
}
func (emptySession) Ping(context.Context) error  { return nil }
func (emptySession) Close(context.Context) error { return nil }

func newViewHandler(t *testing.T) (*ViewCommandHandler, *services.ViewService) {
	t.Helper()
	logger := zap.NewNop()
	views := services.NewViewService(
		catalog.Default(),
		forms.NewBinder(),
		emptySession{},
		render.NewFactory(emptySession{}, render.Options{}, logger, nil),
		nil,
		services.ViewOptions{Display: graph.DefaultDisplay()},
		logger,
		nil,
	)
	return NewViewCommandHandler(views, logger), views
}

func openView(t *testing.T, h *ViewCommandHandler, views *services.ViewService) *services.ViewContext {
	t.Helper()
	cmd := commands.OpenViewCommand{ViewID: "0b7d4a8e-8f7e-4c59-9b3a-0d2f5e6c7a81"}
	require.NoError(t, cmd.Validate())
	require.NoError(t, h.HandleOpenView(context.Background(), cmd))
	v, err := views.Get(cmd.ViewID)
	require.NoError(t, err)
	return v
}

func TestViewCommandHandler_Shortcut(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, views := newViewHandler(t)
	defer views.Shutdown(context.Background())
	v := openView(t, h, views)

	err := h.HandleSelectShortcut(context.Background(), commands.SelectShortcutCommand{ViewID: v.ID(), Name: "User knows"})
	require.NoError(t, err)

	want := "MATCH p=(:User{login:'maximelovino'})-[:KNOWS]->() RETURN p"
	assert.Equal(t, want, v.State().ActiveQuery)
	frame, err := v.AwaitFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, frame.Query)

	err = h.HandleSelectShortcut(context.Background(), commands.SelectShortcutCommand{ViewID: v.ID(), Name: "Nope"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestViewCommandHandler_FormAndSearch(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, views := newViewHandler(t)
	defer views.Shutdown(context.Background())
	v := openView(t, h, views)

	require.NoError(t, h.HandleSubmitForm(context.Background(), commands.SubmitFormCommand{
		ViewID: v.ID(),
		Action: "user-knows",
		Values: map[string]string{"user": "alice"},
	}))
	bound := "MATCH (u1:User { login: 'alice' })-[k:KNOWS]->(u2) RETURN *"
	assert.Equal(t, bound, v.State().ActiveQuery)

	require.NoError(t, h.HandleSetSearchText(context.Background(), commands.SetSearchTextCommand{ViewID: v.ID(), Text: "MATCH (n) RETURN n"}))
	require.NoError(t, h.HandleSubmitSearch(context.Background(), commands.SubmitSearchCommand{ViewID: v.ID()}))

	frame, err := v.AwaitFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", frame.Query)
	assert.Equal(t, bound, v.State().ActiveQuery)
}

func TestViewCommandHandler_SelectAndDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, views := newViewHandler(t)
	defer views.Shutdown(context.Background())
	v := openView(t, h, views)

	require.NoError(t, h.HandleSelectQuery(context.Background(), commands.SelectQueryCommand{ViewID: v.ID(), Query: "RETURN 1", Run: false}))
	assert.Equal(t, "RETURN 1", v.State().ActiveQuery)
	assert.Equal(t, catalog.InitialQuery, v.Frame().Query)

	require.NoError(t, h.HandleDispatchEvent(context.Background(), commands.DispatchEventCommand{
		ViewID: v.ID(),
		Event:  ui.ShortcutClick{Name: "Repository and languages"},
	}))
	assert.Equal(t, "MATCH p=(:Repo)-[r:CONTAINS]->(:Language) RETURN p", v.State().ActiveQuery)
}

func TestViewCommandHandler_Close(t *testing.T) {
	defer goleak.VerifyNone(t)
	h, views := newViewHandler(t)
	v := openView(t, h, views)

	require.NoError(t, h.HandleCloseView(context.Background(), commands.CloseViewCommand{ViewID: v.ID()}))
	assert.Empty(t, views.IDs())

	err := h.HandleCloseView(context.Background(), commands.CloseViewCommand{ViewID: v.ID()})
	assert.True(t, apperrors.IsNotFound(err))

	err = h.HandleSubmitSearch(context.Background(), commands.SubmitSearchCommand{ViewID: v.ID()})
	assert.True(t, apperrors.IsNotFound(err))
}
