// Package httpapi is the JSON surface of storyshare.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/orgball2608/storyshare/internal/feed"
	"github.com/orgball2608/storyshare/internal/identity"
	"github.com/orgball2608/storyshare/internal/publish"
	"github.com/orgball2608/storyshare/internal/ratelimit"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/config"
	"github.com/orgball2608/storyshare/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Opts struct {
	fx.In

	Identity   identity.Service
	Publish    publish.Pipeline
	Feed       feed.Service
	Store      storage.ObjectStore
	Limiter    ratelimit.Limiter
	Config     *config.Config
	Logger     logger.Logger
	Clock      clockwork.Clock
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	DB         Pinger `optional:"true"`
}

type Server struct {
	identity identity.Service
	publish  publish.Pipeline
	feed     feed.Service
	store    storage.ObjectStore
	limiter  ratelimit.Limiter
	db       Pinger
	clock    clockwork.Clock
	logger   logger.Logger
	metrics  *metrics

	trustProxy bool

	handler http.Handler
	srv     *http.Server
}

func New(opts Opts) (*Server, error) {
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	s := &Server{
		identity: opts.Identity,
		publish:  opts.Publish,
		feed:     opts.Feed,
		store:    opts.Store,
		limiter:  opts.Limiter,
		db:       opts.DB,
		clock:    opts.Clock,
		logger:   opts.Logger.WithComponent("HTTP"),
		metrics:  m,
	}
	if opts.Config != nil {
		s.trustProxy = opts.Config.App.TrustProxy
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.handler = s.routes(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	port := 8080
	if opts.Config != nil && opts.Config.App.Port != 0 {
		port = opts.Config.App.Port
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(metricsHandler http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(s.monitorMiddleware)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/media/{bucket}/{key:.+}", s.serveMedia).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/auth/signup", s.signUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", s.signIn).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/auth/signout", s.signOut).Methods(http.MethodPost)
	protected.HandleFunc("/stories", s.listStories).Methods(http.MethodGet)
	protected.HandleFunc("/stories", s.createStory).Methods(http.MethodPost)
	protected.HandleFunc("/stories/{id}", s.deleteStory).Methods(http.MethodDelete)
	protected.HandleFunc("/stories/{id}/like", s.likeStory).Methods(http.MethodPost)
	protected.HandleFunc("/me/stories", s.myStories).Methods(http.MethodGet)
	protected.HandleFunc("/me/profile", s.myProfile).Methods(http.MethodGet)
	protected.HandleFunc("/me/profile", s.updateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/profiles/{username}", s.findProfile).Methods(http.MethodGet)

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	return cors(gorillaHandlers.CombinedLoggingHandler(logWriter{s.logger}, r))
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener synchronously so a taken port fails startup.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.srv.Addr)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.srv.Shutdown(ctx)
}

// logWriter feeds the access log into the structured logger.
type logWriter struct {
	logger logger.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Debug("Access", "line", string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1]
	}
	return p
}
