// Package api wires the HTTP surface: the JSON:API user resource and the
// auth flows, composed from the access controller, the attribute schema and
// the token service.
package api

import (
	"errors"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/config"
	"github.com/meshwork-app/meshwork-api/pkg/httputil"
	"github.com/meshwork-app/meshwork-api/pkg/mailer"
	"github.com/meshwork-app/meshwork-api/pkg/middleware"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/store"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

// Server is the HTTP API.
type Server struct {
	router *mux.Router

	stores *store.Stores
	tokens *token.Service
	hasher *password.Hasher
	mail   mailer.Mailer
	logger *observability.Logger

	origin string
}

// Options carries the collaborators the server composes.
type Options struct {
	Stores    *store.Stores
	Tokens    *token.Service
	Hasher    *password.Hasher
	Mailer    mailer.Mailer
	Logger    *observability.Logger
	AccessLog *logrus.Logger

	// Redis enables rate limiting on the credential endpoints; nil disables
	// it (tests, local development without Redis).
	Redis *redis.Client

	Config *config.Config
}

// NewServer builds the router and all middleware.
func NewServer(opts Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		stores: opts.Stores,
		tokens: opts.Tokens,
		hasher: opts.Hasher,
		mail:   opts.Mailer,
		logger: opts.Logger,
	}
	if opts.Config != nil {
		s.origin = opts.Config.Server.Origin
	}
	s.setupRoutes(opts)
	return s
}

func (s *Server) setupRoutes(opts Options) {
	s.router.Use(middleware.RequestID)
	if opts.AccessLog != nil {
		s.router.Use(middleware.RequestLogger(opts.AccessLog))
	}
	s.router.Use(middleware.Negotiate)

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.notFound)

	// Credential endpoints carry the rate limit; they are the online
	// guessing surface.
	var limit mux.MiddlewareFunc = passthrough
	if opts.Redis != nil {
		cfg := middleware.AuthRateLimitConfig()
		if opts.Config != nil && opts.Config.Auth.RateLimitPerMinute > 0 {
			cfg.RequestsPerWindow = opts.Config.Auth.RateLimitPerMinute
		}
		limiter := middleware.NewRateLimiter(opts.Redis, cfg, "meshwork:auth", opts.Logger)
		limit = limiter.Handler
	}

	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.Handle("/authorize", limit(http.HandlerFunc(s.authorize))).Methods(http.MethodPost)
	auth.Handle("/recover", limit(http.HandlerFunc(s.recover))).Methods(http.MethodPost)
	auth.HandleFunc("/reset", s.reset).Methods(http.MethodPost)
	auth.HandleFunc("/confirm", s.confirm).Methods(http.MethodPost)

	// Signup is the only unauthenticated resource operation.
	s.router.HandleFunc("/users", s.createUser).Methods(http.MethodPost)

	gate := middleware.AuthGate(s.tokens, token.KindAccess)
	users := s.router.PathPrefix("/users").Subrouter()
	users.Use(gate)
	users.HandleFunc("", s.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.readUser).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.updateUser).Methods(http.MethodPatch)
	users.HandleFunc("/{id}", s.deleteUser).Methods(http.MethodDelete)
}

func passthrough(next http.Handler) http.Handler { return next }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// notFound renders unknown routes in the JSON:API error envelope.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, apierror.NotFound())
}

// fail logs the cause of 5xx errors and renders err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var oauthErr *apierror.OAuthError
	if errors.As(err, &oauthErr) {
		httputil.WriteError(w, oauthErr)
		return
	}
	apiErr := apierror.AsError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		observability.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	httputil.WriteError(w, apiErr)
}
