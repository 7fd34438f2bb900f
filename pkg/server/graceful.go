// Package server serves the Prometheus metrics of a clustering run over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/cluso-louvain/pkg/logging"
	"github.com/dd0wney/cluso-louvain/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for in-flight scrapes
const DefaultShutdownTimeout = 5 * time.Second

// GracefulServer wraps an HTTP server with graceful shutdown
type GracefulServer struct {
	server       *http.Server
	listener     net.Listener
	logger       logging.Logger
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewMetricsServer creates a server exposing reg on /metrics
func NewMetricsServer(addr string, reg *metrics.Registry, logger logging.Logger) *GracefulServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	return NewGracefulServer(addr, mux, logger)
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:     logger.With(logging.Component("metrics_server")),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start binds the listen address and serves in the background.
// Serve errors after a successful bind are logged.
func (gs *GracefulServer) Start() error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		close(gs.done)
		return err
	}
	gs.listener = ln

	go func() {
		defer close(gs.done)
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gs.logger.Error("metrics server failed", logging.Error(err))
		}
	}()

	gs.logger.Info("serving metrics", logging.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (gs *GracefulServer) Addr() string {
	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.server.Addr
}

// Shutdown stops accepting scrapes and waits up to timeout for in-flight ones
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Warn("metrics server shutdown incomplete", logging.Error(err))
			return
		}
		if gs.listener != nil {
			<-gs.done
		}
		gs.logger.Debug("metrics server stopped")
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}
