// Package mockserver assembles the in-memory development backend: a seeded
// LMS store behind the gin router, with token issuing and metrics.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/smartsql-client/internal/handler"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/internal/service"
	"github.com/noah-isme/smartsql-client/pkg/config"
)

const defaultShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Port            int
	Env             string
	JWTSecret       string
	TokenTTL        time.Duration
	AllowedOrigins  []string
	PasswordCost    int
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	// SkipSeed starts with an empty store.
	SkipSeed bool
}

// OptionsFromConfig maps the shared configuration onto server options.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	return Options{
		Port:           cfg.Mock.Port,
		Env:            cfg.Env,
		JWTSecret:      cfg.Mock.JWTSecret,
		TokenTTL:       cfg.Mock.TokenTTL,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	}
}

// Server is the development backend.
type Server struct {
	store   *repository.LMSStore
	tokens  *service.TokenService
	metrics *service.MetricsService
	handler http.Handler
	server  *http.Server
	logger  *zap.Logger
	timeout time.Duration
}

// New seeds the store and builds the router.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("mockserver: jwt secret required")
	}
	cost := opts.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	store := repository.NewLMSStore(repository.LMSStoreOptions{PasswordCost: cost})
	if !opts.SkipSeed {
		if err := store.SeedDemoData(); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	tokens := service.NewTokenService(opts.JWTSecret, opts.TokenTTL)
	metrics := service.NewMetricsService(service.MetricsNamespaceMock)

	router := handler.NewRouter(handler.RouterConfig{
		Store:          store,
		Tokens:         tokens,
		Metrics:        metrics,
		Logger:         logger,
		Env:            opts.Env,
		AllowedOrigins: opts.AllowedOrigins,
	})

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		store:   store,
		tokens:  tokens,
		metrics: metrics,
		handler: router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Handler returns the HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler { return s.handler }

// Store exposes the backing store.
func (s *Server) Store() *repository.LMSStore { return s.store }

// Metrics exposes the server's metrics.
func (s *Server) Metrics() *service.MetricsService { return s.metrics }

// Addr is the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()
	s.logger.Info("mock backend listening", zap.String("addr", s.server.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.logger.Info("mock backend shutting down")
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
