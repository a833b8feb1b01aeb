package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/flock"

	"clientbook/internal/chat"
	"clientbook/internal/clients"
	"clientbook/internal/config"
	"clientbook/internal/ingest"
	"clientbook/internal/logging"
	"clientbook/internal/metrics"
	"clientbook/internal/reconcile"
)

// ErrAlreadyRunning is returned when another gateway holds the data directory lock.
var ErrAlreadyRunning = errors.New("another clientbook gateway is already running")

// Server is the HTTP gateway.
type Server struct {
	cfg      *config.Config
	store    *clients.Store
	router   *chat.Router
	transfer *reconcile.Reconciler
	metrics  *metrics.Metrics
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New wires the pipeline, reconciler, and chat router around store.
func New(cfg *config.Config, store *clients.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("gateway: config and store are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	m := metrics.New()
	pipeline := ingest.New(store,
		ingest.WithLogger(logger),
		ingest.WithRecorder(m),
		ingest.WithDefaultSubmitter(cfg.Ingest.DefaultSubmitter),
		ingest.WithMaxBatchSize(cfg.Ingest.MaxBatchSize),
	)
	transfer := reconcile.New(cfg, store,
		reconcile.WithLogger(logger),
		reconcile.WithRecorder(m),
	)

	return &Server{
		cfg:      cfg,
		store:    store,
		router:   chat.NewRouter(pipeline, transfer, logger),
		transfer: transfer,
		metrics:  m,
		logger:   logging.NewComponentLogger(logger, "gateway"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.Server.APIToken))
		r.Post("/messages", s.handleMessage)
		r.Post("/import", s.handleImport)
		r.Get("/export", s.handleExport)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start acquires the instance lock and begins serving. The server shuts down
// when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, s.lockPath)
	}

	bind := strings.TrimSpace(s.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("gateway listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("gateway listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
	)
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and releases the instance lock.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("gateway shutdown incomplete", logging.Error(err))
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release gateway lock", logging.Error(err))
	}
	s.logger.Info("gateway stopped")
}

// Run starts the server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}
