package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"devrank/application/commands/bus"
	querybus "devrank/application/queries/bus"
	"devrank/interfaces/http/rest/handlers"
	"devrank/interfaces/http/rest/middleware"
	"devrank/pkg/auth"
	"devrank/pkg/common"
	apperrors "devrank/pkg/errors"
	"devrank/pkg/observability"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the state of a dependency's circuit breaker
type BreakerReporter interface {
	BreakerState() string
}

// Options configures the optional parts of the router
type Options struct {
	// Validator enables bearer authentication of /api routes when set
	Validator *auth.JWTValidator

	// SuggestLimiter throttles suggestion lookups when set
	SuggestLimiter auth.RateLimiter
	SuggestLimit   int

	Metrics        observability.Recorder
	MetricsHandler http.Handler

	EnableCORS  bool
	CORSOrigins []string

	Debug bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	readiness  Pinger
	opts       Options
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	readiness Pinger,
	opts Options,
	logger *zap.Logger,
) *Router {
	if opts.Metrics == nil {
		opts.Metrics = observability.NopRecorder{}
	}
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		readiness:  readiness,
		opts:       opts,
		errors:     apperrors.NewErrorHandler(logger, opts.Debug),
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.opts.Metrics))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsHandler != nil {
		router.Handle("/metrics", rt.opts.MetricsHandler)
	}

	explorer := handlers.NewExplorerHandler(rt.queryBus, rt.errors, rt.logger)
	views := handlers.NewViewHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		if rt.opts.Validator != nil {
			r.Use(middleware.Authenticate(rt.opts.Validator, rt.errors, rt.logger))
		}

		r.Get("/shortcuts", explorer.ListShortcuts)
		r.Get("/forms/actions", explorer.ListFormActions)
		r.Post("/forms/{action}/bind", explorer.BindForm)
		r.Get("/names/{field}", explorer.ListNames)

		r.Route("/views", func(r chi.Router) {
			r.Post("/", views.OpenView)
			r.Route("/{viewID}", func(r chi.Router) {
				r.Get("/", views.GetView)
				r.Delete("/", views.CloseView)
				r.Post("/select", views.Select)
				r.Post("/shortcuts/{name}", views.SelectShortcut)
				r.Post("/forms/{action}", views.SubmitForm)
				r.Put("/search", views.SetSearchText)
				r.Post("/search", views.SubmitSearch)
				r.Post("/events", views.DispatchEvent)
				r.Get("/frame", views.Frame)

				r.Group(func(r chi.Router) {
					if rt.opts.SuggestLimiter != nil {
						r.Use(middleware.RateLimit(rt.opts.SuggestLimiter, rt.opts.SuggestLimit, rt.errors, rt.logger))
					}
					r.Get("/suggestions/{field}", views.Suggestions)
				})
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck pings the graph database
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ready"}
	if rt.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := rt.readiness.Ping(ctx); err != nil {
			rt.errors.Handle(w, r, apperrors.NewUnavailableError("graph database").WithCause(err))
			return
		}
		if b, ok := rt.readiness.(BreakerReporter); ok {
			status["breaker"] = b.BreakerState()
		}
	}
	common.RespondJSON(w, http.StatusOK, status)
}
