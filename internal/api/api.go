package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/middleware"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/queue"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Tokens validates bearer tokens for authenticated routes.
	Tokens middleware.TokenParser
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	routeRegistrars     []RouteRegistrar
	tokens              middleware.TokenParser
	cors                middleware.CORSConfig
	metrics             *metrics
	log                 *zap.Logger
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, opts Options, registrars ...RouteRegistrar) *APIServer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		routeRegistrars:     registrars,
		tokens:              opts.Tokens,
		cors:                middleware.DefaultCORSConfig(opts.AllowedOrigins),
		metrics:             newMetrics(reg, listenAddr, rqm),
		log:                 log.Named("api"),
	}
}

// Handler builds the full instrumented mux.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())
	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.listenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped", zap.String("addr", s.listenAddr))
	return nil
}

func (s *APIServer) Tokens() middleware.TokenParser {
	return s.tokens
}

func (s *APIServer) Logger() *zap.Logger {
	return s.log
}
