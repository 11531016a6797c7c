package routes

import (
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/zatekoja/firstresponder/backend/internal/api/handlers"
	"github.com/zatekoja/firstresponder/backend/internal/api/middleware"
	"github.com/zatekoja/firstresponder/backend/internal/infrastructure/observability"
)

// Router holds all route handlers. Handlers left nil are not mounted, so the
// dispatch API and the triage proxy can run from the same router.
type Router struct {
	mux *http.ServeMux

	healthHandler    *handlers.HealthHandler
	emergencyHandler *handlers.EmergencyHandler
	responderHandler *handlers.ResponderHandler
	directoryHandler *handlers.DirectoryHandler
	sseHandler       *handlers.SSEHandler
	triageHandler    *handlers.TriageHandler

	sessions middleware.SessionResolver
	limiter  *limiter.Limiter
	metrics  *observability.Metrics
}

// Option mounts an optional part of the API
type Option func(*Router)

// WithDispatch mounts the patient, responder and stream endpoints
func WithDispatch(
	emergencyHandler *handlers.EmergencyHandler,
	responderHandler *handlers.ResponderHandler,
	directoryHandler *handlers.DirectoryHandler,
	sseHandler *handlers.SSEHandler,
	sessions middleware.SessionResolver,
) Option {
	return func(r *Router) {
		r.emergencyHandler = emergencyHandler
		r.responderHandler = responderHandler
		r.directoryHandler = directoryHandler
		r.sseHandler = sseHandler
		r.sessions = sessions
	}
}

// WithTriage mounts the triage proxy endpoints
func WithTriage(triageHandler *handlers.TriageHandler) Option {
	return func(r *Router) {
		r.triageHandler = triageHandler
	}
}

// WithRateLimit limits every non-health request
func WithRateLimit(l *limiter.Limiter) Option {
	return func(r *Router) {
		r.limiter = l
	}
}

// NewRouter creates a new router
func NewRouter(healthHandler *handlers.HealthHandler, metrics *observability.Metrics, opts ...Option) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		healthHandler: healthHandler,
		metrics:       metrics,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	api := http.NewServeMux()

	if r.emergencyHandler != nil {
		// Patient alert endpoints
		api.HandleFunc("POST /api/emergencies", r.emergencyHandler.RaiseAlert)
		api.HandleFunc("GET /api/emergencies", r.emergencyHandler.ListAlerts)
		api.HandleFunc("GET /api/emergencies/{id}", r.emergencyHandler.GetAlert)
		api.HandleFunc("POST /api/emergencies/{id}/cancel", r.emergencyHandler.CancelAlert)
		api.HandleFunc("POST /api/emergencies/{id}/notify", r.emergencyHandler.RetryNotify)
	}

	if r.responderHandler != nil {
		// Responder dashboard endpoints
		api.HandleFunc("GET /api/responders/me/emergencies", r.responderHandler.ListAssigned)
		api.HandleFunc("POST /api/responses/{id}/respond", r.responderHandler.Respond)
	}

	if r.directoryHandler != nil {
		api.HandleFunc("GET /api/frontline-types", r.directoryHandler.ListFrontlineTypes)
		api.HandleFunc("GET /api/me", r.directoryHandler.Me)
	}

	if r.sseHandler != nil {
		// Live streams
		api.HandleFunc("GET /api/stream/emergencies/{id}", r.sseHandler.StreamAlert)
		api.HandleFunc("GET /api/stream/responders/me", r.sseHandler.StreamAssignments)
	}

	if r.triageHandler != nil {
		// Triage proxy
		api.HandleFunc("POST /triage/chat", r.triageHandler.Chat)
		api.HandleFunc("POST /triage/transcribe", r.triageHandler.Transcribe)
		api.HandleFunc("POST /triage/speak", r.triageHandler.Speak)
		api.HandleFunc("DELETE /triage/conversations/{id}", r.triageHandler.EndConversation)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = api
	if r.limiter != nil {
		handler = middleware.RateLimitMiddleware(r.limiter)(handler)
	}
	r.mux.Handle("/", handler)
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	handler = middleware.LoggingMiddleware(r.mux)
	if r.sessions != nil {
		handler = middleware.SessionMiddleware(r.sessions)(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests never reach the session check
	handler = middleware.CORSMiddleware(handler)

	return handler
}
