package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/building-data/internal/dataset"
	"github.com/nerrad567/building-data/internal/history"
	"github.com/nerrad567/building-data/internal/infrastructure/config"
	"github.com/nerrad567/building-data/internal/infrastructure/logging"
	"github.com/nerrad567/building-data/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// RunHistory reads recorded import runs. *history.Repository satisfies it.
type RunHistory interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id uuid.UUID) (history.Run, error)
}

// ImportRunner starts an import job and waits for it.
// *pipeline.Runner satisfies it.
type ImportRunner interface {
	Run(ctx context.Context, origin string) (history.Run, error)
}

// Connection reports the state of an optional downstream client.
type Connection interface {
	IsConnected() bool
}

// PoolStats reports database pool statistics. *database.DB satisfies it.
type PoolStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Store    *dataset.Store
	History  RunHistory
	Runner   ImportRunner
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil serves the default registry
	MQTT     Connection
	InfluxDB Connection
	DB       PoolStats
	Version  string
}

// Server is the HTTP API server for the building dataset.
//
// It serves the currently loaded dataset, the import history and the
// Prometheus metrics. The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	store     *dataset.Store
	history   RunHistory
	runner    ImportRunner
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	mqtt      Connection
	influx    Connection
	db        PoolStats
	version   string
	startTime time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If the logger or the dataset store is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("dataset store is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		history:   deps.History,
		runner:    deps.Runner,
		metrics:   deps.Metrics,
		gatherer:  gatherer,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
