package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"devrank/application/commands"
	"devrank/application/commands/bus"
	commandhandlers "devrank/application/commands/handlers"
	"devrank/application/ports"
	"devrank/application/queries"
	querybus "devrank/application/queries/bus"
	queryhandlers "devrank/application/queries/handlers"
	"devrank/application/services"
	"devrank/domain/autocomplete"
	"devrank/domain/catalog"
	"devrank/domain/forms"
	"devrank/infrastructure/config"
	"devrank/infrastructure/messaging/eventbridge"
	"devrank/infrastructure/persistence/dynamodb"
	"devrank/infrastructure/persistence/neo4j"
	"devrank/infrastructure/render"
	"devrank/interfaces/http/rest"
	"devrank/pkg/auth"
	"devrank/pkg/observability"
)

const (
	serviceName      = "devrank-explorer"
	metricsNamespace = "devrank_explorer"

	// catalogCacheTTL applies to queries whose answer never changes while
	// the process runs, in seconds.
	catalogCacheTTL = 3600
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() || cfg.IsLambda {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// Metrics bundles the recorder handed to components with the backends
// behind it. At most one backend is set.
type Metrics struct {
	Recorder   observability.Recorder
	Collector  *observability.Collector
	CloudWatch *observability.CloudWatchRecorder
}

// Handler returns the prometheus endpoint, or nil outside server mode
func (m *Metrics) Handler() http.Handler {
	if m.Collector == nil {
		return nil
	}
	return m.Collector.Handler()
}

// Flush pushes buffered CloudWatch datums; a no-op for other backends
func (m *Metrics) Flush(ctx context.Context) error {
	if m.CloudWatch == nil {
		return nil
	}
	return m.CloudWatch.Flush(ctx)
}

// ProvideMetrics picks prometheus in server mode and CloudWatch in Lambda,
// where there is no process to scrape.
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client) *Metrics {
	switch {
	case !cfg.EnableMetrics:
		return &Metrics{Recorder: observability.NopRecorder{}}
	case cfg.IsLambda:
		cw := observability.NewCloudWatchRecorder(serviceName, client)
		return &Metrics{Recorder: cw, CloudWatch: cw}
	default:
		c := observability.NewCollector(metricsNamespace)
		return &Metrics{Recorder: c, Collector: c}
	}
}

// ProvideRecorder exposes the active recorder to components
func ProvideRecorder(m *Metrics) observability.Recorder {
	return m.Recorder
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideGraphSession creates the shared graph database session
func ProvideGraphSession(
	cfg *config.Config,
	tracer *observability.Tracer,
	metrics observability.Recorder,
	logger *zap.Logger,
) (ports.GraphSession, func(), error) {
	session, err := neo4j.NewSession(neo4j.Config{
		URI:                   cfg.Neo4jURI,
		User:                  cfg.Neo4jUser,
		Password:              cfg.Neo4jPassword,
		Database:              cfg.Neo4jDatabase,
		MaxConnectionPoolSize: cfg.Neo4jPoolSize,
		ConnectTimeout:        10 * time.Second,
	}, neo4j.DefaultBreakerSettings(), tracer, metrics, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := session.Close(ctx); err != nil {
			logger.Warn("Failed to close graph database driver", zap.Error(err))
		}
	}
	return session, cleanup, nil
}

// ProvideSurfaceFactory creates the render surface factory
func ProvideSurfaceFactory(
	session ports.GraphSession,
	cfg *config.Config,
	logger *zap.Logger,
	metrics observability.Recorder,
) ports.SurfaceFactory {
	return render.NewFactory(session, render.Options{Timeout: cfg.RenderTimeout}, logger, metrics)
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured
// and only logs events otherwise.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NewLoggingPublisher(logger)
	}
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideConnectionStore creates the WebSocket connection registry
func ProvideConnectionStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ConnectionStore {
	return dynamodb.NewConnectionStore(client, cfg.ConnectionsTable, logger)
}

// ProvideInMemoryCache creates the process-local cache
func ProvideInMemoryCache() (*InMemoryCache, func()) {
	c := NewInMemoryCache(time.Minute)
	return c, c.Stop
}

// ProvideCatalog returns the shortcut catalog
func ProvideCatalog() *catalog.Catalog {
	return catalog.Default()
}

// ProvideBinder creates the form binder
func ProvideBinder(cfg *config.Config) *forms.Binder {
	return forms.NewBinder(forms.WithRawInterpolation(cfg.FormRawInterpolation))
}

// ProvideAutocompleteSpecs applies the configured thresholds to the default
// field specs.
func ProvideAutocompleteSpecs(cfg *config.Config) map[autocomplete.Field]autocomplete.FieldSpec {
	specs := autocomplete.DefaultSpecs()
	for field, min := range map[autocomplete.Field]int{
		autocomplete.FieldUser:     cfg.AutocompleteUserMin,
		autocomplete.FieldRepo:     cfg.AutocompleteRepoMin,
		autocomplete.FieldLanguage: cfg.AutocompleteLanguageMin,
	} {
		spec := specs[field]
		spec.MinLength = min
		specs[field] = spec
	}
	return specs
}

// ProvideViewService creates the view registry
func ProvideViewService(
	cfg *config.Config,
	cat *catalog.Catalog,
	binder *forms.Binder,
	session ports.GraphSession,
	surfaces ports.SurfaceFactory,
	publisher ports.EventPublisher,
	specs map[autocomplete.Field]autocomplete.FieldSpec,
	logger *zap.Logger,
	metrics observability.Recorder,
) (*services.ViewService, func(), error) {
	display, err := cfg.Display()
	if err != nil {
		return nil, nil, err
	}

	views := services.NewViewService(cat, binder, session, surfaces, publisher, services.ViewOptions{
		ServerURL:  cfg.Neo4jURI,
		ServerUser: cfg.Neo4jUser,
		Display:    display,
		Autocomplete: services.AutocompleteOptions{
			Specs:   specs,
			Limit:   cfg.AutocompleteLimit,
			Timeout: cfg.AutocompleteTimeout,
		},
		IdleTimeout: cfg.ViewIdleTimeout,
	}, logger, metrics)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		views.Shutdown(ctx)
	}
	return views, cleanup, nil
}

// ProvideNamesService creates the cached name-list service
func ProvideNamesService(
	cfg *config.Config,
	session ports.GraphSession,
	cache ports.Cache,
	specs map[autocomplete.Field]autocomplete.FieldSpec,
	logger *zap.Logger,
	metrics observability.Recorder,
) *services.NamesService {
	return services.NewNamesService(session, cache, cfg.NamesCacheTTL, specs, logger, metrics)
}

// ProvideViewCommandHandler creates the view command handler
func ProvideViewCommandHandler(views *services.ViewService, logger *zap.Logger) *commandhandlers.ViewCommandHandler {
	return commandhandlers.NewViewCommandHandler(views, logger)
}

// ProvideExplorerQueryHandler creates the explorer query handler
func ProvideExplorerQueryHandler(
	views *services.ViewService,
	names *services.NamesService,
	logger *zap.Logger,
) *queryhandlers.ExplorerQueryHandler {
	return queryhandlers.NewExplorerQueryHandler(views, names, logger)
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// commandAdapter binds a typed handler method to the bus
func commandAdapter[C bus.Command](handle func(context.Context, C) error) *CommandHandlerAdapter {
	return &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			typed, ok := cmd.(C)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			return handle(ctx, typed)
		},
	}
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(h *commandhandlers.ViewCommandHandler, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.OpenViewCommand{}, commandAdapter(h.HandleOpenView)},
		{commands.CloseViewCommand{}, commandAdapter(h.HandleCloseView)},
		{commands.SelectQueryCommand{}, commandAdapter(h.HandleSelectQuery)},
		{commands.SelectShortcutCommand{}, commandAdapter(h.HandleSelectShortcut)},
		{commands.SubmitFormCommand{}, commandAdapter(h.HandleSubmitForm)},
		{commands.SetSearchTextCommand{}, commandAdapter(h.HandleSetSearchText)},
		{commands.SubmitSearchCommand{}, commandAdapter(h.HandleSubmitSearch)},
		{commands.DispatchEventCommand{}, commandAdapter(h.HandleDispatchEvent)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

func queryAdapter[Q querybus.Query, R any](handle func(context.Context, Q) (R, error)) *QueryHandlerAdapter {
	return &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			typed, ok := query.(Q)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return handle(ctx, typed)
		},
	}
}

// ProvideQueryBus creates a query bus with registered handlers. Catalog and
// bind queries are pure, so their answers are cached.
func ProvideQueryBus(
	h *queryhandlers.ExplorerQueryHandler,
	cache ports.Cache,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	logging := querybus.NewLoggingMiddleware(logger, 2*time.Second)
	caching := querybus.NewCachingMiddleware(cache, catalogCacheTTL)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.ListShortcutsQuery{}, caching.Wrap(queryAdapter(h.HandleListShortcuts))},
		{queries.ListFormActionsQuery{}, caching.Wrap(queryAdapter(h.HandleListFormActions))},
		{queries.BindFormQuery{}, caching.Wrap(queryAdapter(h.HandleBindForm))},
		{queries.ListNamesQuery{}, queryAdapter(h.HandleListNames)},
		{queries.GetViewStateQuery{}, queryAdapter(h.HandleGetViewState)},
		{queries.GetFrameQuery{}, queryAdapter(h.HandleGetFrame)},
		{queries.GetSuggestionsQuery{}, queryAdapter(h.HandleGetSuggestions)},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, logging.Wrap(reg.handler)); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideJWTValidator returns nil when JWT_SECRET is unset, which leaves the
// API unauthenticated.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideSuggestLimiter keeps limiter state in DynamoDB under Lambda, where
// instances do not share memory, and in process otherwise.
func ProvideSuggestLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.SuggestRateLimit <= 0 {
		return nil
	}
	if cfg.IsLambda {
		return auth.NewDistributedRateLimiter(client, cfg.ConnectionsTable, cfg.SuggestRateLimit, time.Minute, "SUGGEST")
	}
	return auth.NewKeyedLimiter(auth.NewSlidingWindowLimiter(cfg.SuggestRateLimit, time.Minute), "suggest:")
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	session ports.GraphSession,
	validator *auth.JWTValidator,
	limiter auth.RateLimiter,
	metrics *Metrics,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, session, rest.Options{
		Validator:      validator,
		SuggestLimiter: limiter,
		SuggestLimit:   cfg.SuggestRateLimit,
		Metrics:        metrics.Recorder,
		MetricsHandler: metrics.Handler(),
		EnableCORS:     cfg.EnableCORS,
		CORSOrigins:    cfg.CORSOrigins,
		Debug:          cfg.IsDevelopment(),
	}, logger)
}
