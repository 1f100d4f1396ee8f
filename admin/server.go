package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storekit/backstop/breaker"
	"github.com/storekit/backstop/queue"
)

// Config configures the admin server.
type Config struct {
	// Addr is the listen address.
	// Default: ":9090"
	Addr string

	// APIKeys are accepted values for the X-API-Key header.
	APIKeys []string

	// JWTSecret enables HMAC bearer token auth when non-empty.
	JWTSecret string

	// Breakers is the circuit registry to expose. Required.
	Breakers *breaker.Registry

	// Queues is the queue manager to expose. Required.
	Queues *queue.Manager

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds
	ShutdownTimeout time.Duration
}

// Server is the operational HTTP server.
type Server struct {
	config   Config
	auth     *authenticator
	breakers *breaker.Registry
	queues   *queue.Manager
	logger   *zap.Logger
	httpSrv  *http.Server
}

// NewServer creates an admin server over the given registries.
func NewServer(config Config) *Server {
	if config.Breakers == nil || config.Queues == nil {
		panic("admin: Breakers and Queues are required")
	}
	if config.Addr == "" {
		config.Addr = ":9090"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		config:   config,
		auth:     newAuthenticator(config.APIKeys, config.JWTSecret),
		breakers: config.Breakers,
		queues:   config.Queues,
		logger:   config.Logger,
	}
	s.httpSrv = &http.Server{
		Addr:              config.Addr,
		Handler:           s.withRequestID(s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, mostly for tests and for
// mounting under an existing server.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves until the context is cancelled, then shuts down
// gracefully. It blocks.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", s.config.Addr))
		if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("admin server shutting down")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// withRequestID tags every request with an id and logs it at debug.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		s.logger.Debug("admin request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))

		next.ServeHTTP(w, r)
	})
}
