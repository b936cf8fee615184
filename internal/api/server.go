package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EventPublisher publishes device lifecycle events. *mqtt.Client satisfies it.
type EventPublisher interface {
	PublishEvent(topic string, payload []byte) error
	Topics() mqtt.Topics
}

// Telemetry records request and registry measurements. *influxdb.Client
// satisfies it.
type Telemetry interface {
	WriteRequest(method, route string, status int, duration time.Duration)
	WriteDeviceRegistered(deviceID, deviceType string)
	WriteEchoMessage(size int)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Store     *device.Store
	Events    EventPublisher // optional
	Telemetry Telemetry      // optional
	Version   string
}

// Server is the HTTP API server for the device registry.
//
// It manages the HTTP listener, routes, middleware, and the echo session hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	store     *device.Store
	events    EventPublisher
	telemetry Telemetry
	version   string
	server    *http.Server
	listener  net.Listener
	hub       *Hub
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, store) and optional
//     event publisher and telemetry sink
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("device store is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		store:     deps.Store,
		events:    deps.Events,
		telemetry: deps.Telemetry,
		version:   deps.Version,
	}
	s.hub = NewHub(s.logger)

	return s, nil
}

// Start binds the listener and serves HTTP in a background goroutine.
//
// The listener is bound before Start returns, so a port conflict is reported
// to the caller instead of only being logged. The server can be stopped with
// Close().
//
// Parameters:
//   - ctx: Parent context for the echo hub; cancelling it closes live sessions
//
// Returns:
//   - error: If the listen address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// Live echo sessions are closed first; hijacked connections are not tracked
// by http.Server.Shutdown. In-flight requests get up to 10 seconds to finish.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}
	// Upgrades that finish after this point are refused by the hub.
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and its store answers.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	return nil
}
