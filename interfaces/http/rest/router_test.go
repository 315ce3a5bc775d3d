package rest_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devrank/application/ports"
	"devrank/application/services"
	"devrank/domain/catalog"
	"devrank/domain/forms"
	"devrank/domain/graph"
	"devrank/infrastructure/di"
	"devrank/infrastructure/render"
	"devrank/interfaces/http/rest"
	"devrank/pkg/auth"
)

// graphStub answers name lookups with names and renders with no records.
type graphStub struct {
	names   []string
	pingErr error
}

func (s graphStub) Run(ctx context.Context, cypher string, params map[string]interface{}) ([]ports.Record, error) {
	if !strings.Contains(cypher, "RETURN n.") {
		return nil, nil
	}
	var records []ports.Record
	for _, n := range s.names {
		records = append(records, ports.Record{Keys: []string{"name"}, Values: []interface{}{n}})
	}
	return records, nil
}

func (s graphStub) Ping(context.Context) error { return s.pingErr }
func (graphStub) Close(context.Context) error  { return nil }
func (graphStub) BreakerState() string         { return "closed" }

type harness struct {
	handler http.Handler
	views   *services.ViewService
}

func newHarness(t *testing.T, session graphStub, opts rest.Options) *harness {
	t.Helper()
	logger := zap.NewNop()

	views := services.NewViewService(
		catalog.Default(),
		forms.NewBinder(),
		session,
		render.NewFactory(session, render.Options{}, logger, nil),
		nil,
		services.ViewOptions{Display: graph.DefaultDisplay()},
		logger,
		nil,
	)
	cache := di.NewInMemoryCache(time.Hour)
	names := services.NewNamesService(session, cache, time.Minute, nil, logger, nil)

	commandBus, err := di.ProvideCommandBus(di.ProvideViewCommandHandler(views, logger), logger)
	require.NoError(t, err)
	queryBus, err := di.ProvideQueryBus(di.ProvideExplorerQueryHandler(views, names, logger), cache, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		views.Shutdown(context.Background())
		cache.Stop()
	})
	return &harness{
		handler: rest.NewRouter(commandBus, queryBus, session, opts, logger).Setup(),
		views:   views,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
}

func (h *harness) do(t *testing.T, method, path string, body interface{}, header ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

type viewState struct {
	ID          string `json:"id"`
	ActiveQuery string `json:"active_query"`
	Search      struct {
		Text    string `json:"text"`
		Focused bool   `json:"focused"`
	} `json:"search"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRouter_Health(t *testing.T) {
	h := newHarness(t, graphStub{}, rest.Options{})
	code, _ := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env := h.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"status": "ready", "breaker": "closed"}, decode[map[string]string](t, env.Data))

	down := newHarness(t, graphStub{pingErr: ports.ErrGraphUnavailable}, rest.Options{})
	code, env = down.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "UNAVAILABLE", env.Type)
}

func TestRouter_CatalogAndForms(t *testing.T) {
	h := newHarness(t, graphStub{names: []string{"bob", "Alice"}}, rest.Options{})

	code, env := h.do(t, http.MethodGet, "/api/v1/shortcuts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]catalog.QueryTemplate](t, env.Data), 8)

	code, env = h.do(t, http.MethodPost, "/api/v1/forms/user-knows/bind", map[string]interface{}{
		"values": map[string]string{"user": "alice"},
	})
	require.Equal(t, http.StatusOK, code)
	bound := decode[struct {
		Query string `json:"query"`
	}](t, env.Data)
	assert.Equal(t, "MATCH (u1:User { login: 'alice' })-[k:KNOWS]->(u2) RETURN *", bound.Query)

	code, env = h.do(t, http.MethodPost, "/api/v1/forms/drop-database/bind", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION", env.Type)

	code, env = h.do(t, http.MethodGet, "/api/v1/names/user", nil)
	require.Equal(t, http.StatusOK, code)
	names := decode[struct {
		Names []string `json:"names"`
	}](t, env.Data)
	assert.Equal(t, []string{"Alice", "bob"}, names.Names)

	code, _ = h.do(t, http.MethodGet, "/api/v1/names/planet", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_ViewLifecycle(t *testing.T) {
	h := newHarness(t, graphStub{names: []string{"maximelovino", "Max"}}, rest.Options{})

	code, env := h.do(t, http.MethodPost, "/api/v1/views", nil)
	require.Equal(t, http.StatusCreated, code)
	state := decode[viewState](t, env.Data)
	require.NotEmpty(t, state.ID)
	assert.Equal(t, catalog.InitialQuery, state.ActiveQuery)
	base := "/api/v1/views/" + state.ID

	code, env = h.do(t, http.MethodPost, base+"/shortcuts/User%20knows", nil)
	require.Equal(t, http.StatusOK, code)
	want := "MATCH p=(:User{login:'maximelovino'})-[:KNOWS]->() RETURN p"
	state = decode[viewState](t, env.Data)
	assert.Equal(t, want, state.ActiveQuery)
	assert.Equal(t, want, state.Search.Text)
	assert.True(t, state.Search.Focused)

	code, env = h.do(t, http.MethodGet, base+"/frame?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	frame := decode[graph.Frame](t, env.Data)
	assert.Equal(t, want, frame.Query)
	assert.Equal(t, graph.FrameDone, frame.State)

	code, env = h.do(t, http.MethodPut, base+"/search", map[string]string{"text": "MATCH (n) RETURN n"})
	require.Equal(t, http.StatusOK, code)
	state = decode[viewState](t, env.Data)
	assert.Equal(t, want, state.ActiveQuery)
	assert.Equal(t, "MATCH (n) RETURN n", state.Search.Text)

	code, _ = h.do(t, http.MethodPost, base+"/search", nil)
	require.Equal(t, http.StatusOK, code)
	code, env = h.do(t, http.MethodGet, base+"/frame?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "MATCH (n) RETURN n", decode[graph.Frame](t, env.Data).Query)

	code, env = h.do(t, http.MethodGet, base+"/suggestions/user?term=max", nil)
	require.Equal(t, http.StatusOK, code)
	suggestions := decode[struct {
		Names []string `json:"names"`
	}](t, env.Data)
	assert.Equal(t, []string{"Max", "maximelovino"}, suggestions.Names)

	code, env = h.do(t, http.MethodPost, base+"/events", map[string]interface{}{
		"type":    "form.submit",
		"payload": map[string]interface{}{"action": "repo-languages", "values": map[string]string{"repo": "devrank"}},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "MATCH (u1:Repo { name: 'devrank' })-[k:CONTAINS]->(l) RETURN *", decode[viewState](t, env.Data).ActiveQuery)

	code, _ = h.do(t, http.MethodPost, base+"/events", map[string]string{"type": "mouse.wheel"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, env = h.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Type)
}

func TestRouter_SelectWithoutRun(t *testing.T) {
	h := newHarness(t, graphStub{}, rest.Options{})
	_, env := h.do(t, http.MethodPost, "/api/v1/views", nil)
	base := "/api/v1/views/" + decode[viewState](t, env.Data).ID

	code, env := h.do(t, http.MethodPost, base+"/select", map[string]interface{}{"query": "MATCH (n) RETURN n", "run": false})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "MATCH (n) RETURN n", decode[viewState](t, env.Data).ActiveQuery)

	_, env = h.do(t, http.MethodGet, base+"/frame?wait=true", nil)
	assert.Equal(t, catalog.InitialQuery, decode[graph.Frame](t, env.Data).Query)

	code, _ = h.do(t, http.MethodPost, base+"/select", map[string]interface{}{"query": 42})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = h.do(t, http.MethodPost, "/api/v1/views", map[string]string{"view_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRouter_Authentication(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "s3cret", Issuer: "devrank-explorer"})
	require.NoError(t, err)
	h := newHarness(t, graphStub{}, rest.Options{Validator: validator})

	code, env := h.do(t, http.MethodGet, "/api/v1/shortcuts", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", env.Type)

	gen, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{SecretKey: "s3cret", Issuer: "devrank-explorer"})
	require.NoError(t, err)
	token, err := gen.GenerateToken("u-1", "", nil)
	require.NoError(t, err)

	code, _ = h.do(t, http.MethodGet, "/api/v1/shortcuts", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}

type denyAfter struct{ n int }

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	d.n--
	return d.n >= 0, nil
}
func (d *denyAfter) Reset(context.Context, string) error { return nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("table missing")
}
func (brokenLimiter) Reset(context.Context, string) error { return nil }

func TestRouter_SuggestionRateLimit(t *testing.T) {
	h := newHarness(t, graphStub{names: []string{"go"}}, rest.Options{SuggestLimiter: &denyAfter{n: 1}, SuggestLimit: 1})
	_, env := h.do(t, http.MethodPost, "/api/v1/views", nil)
	base := "/api/v1/views/" + decode[viewState](t, env.Data).ID

	code, _ := h.do(t, http.MethodGet, base+"/suggestions/language?term=g", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = h.do(t, http.MethodGet, base+"/suggestions/language?term=go", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMIT", env.Type)

	open := newHarness(t, graphStub{}, rest.Options{SuggestLimiter: brokenLimiter{}})
	_, env = open.do(t, http.MethodPost, "/api/v1/views", nil)
	code, _ = open.do(t, http.MethodGet, "/api/v1/views/"+decode[viewState](t, env.Data).ID+"/suggestions/repo?term=x", nil)
	assert.Equal(t, http.StatusOK, code)
}
