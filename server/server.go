// Package server runs the manager proxy service.
//
// The backend runtime is started before the listener opens and stopped after the listener
// is fully shut down, on every path out of Run.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/backend"
	"ocm.software/open-component-model/managerproxy/builtin/memory"
	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
	"ocm.software/open-component-model/managerproxy/factory"
	"ocm.software/open-component-model/managerproxy/factory/wasm"
	"ocm.software/open-component-model/managerproxy/handle"
	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/metrics"
	"ocm.software/open-component-model/managerproxy/service"
)

// Server serves the manager proxy service. A Server runs once.
type Server struct {
	cfg     configv1.Config
	logger  *slog.Logger
	base    *slog.Logger // handed to components, which add their own realm
	sources []factory.Source

	ready       chan struct{}
	readyOnce   sync.Once
	mu          sync.Mutex
	addr        net.Addr
	metricsAddr net.Addr
	runtime     *backend.Runtime
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger of the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSources adds plugin sources that take precedence over the configured ones.
func WithSources(sources ...factory.Source) Option {
	return func(s *Server) {
		s.sources = append(s.sources, sources...)
	}
}

// New creates a server for cfg. Unset fields of cfg are defaulted.
func New(cfg *configv1.Config, opts ...Option) *Server {
	s := &Server{
		logger: slog.Default(),
		ready:  make(chan struct{}),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	s.cfg.Default()
	for _, opt := range opts {
		opt(s)
	}
	s.base = s.logger
	s.logger = s.base.With(slog.String("realm", "server"))
	return s
}

// Ready is closed once the server accepts calls, or when Run returns without ever accepting
// calls. Addr reports nil in the latter case.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Addr returns the address of the RPC listener. It is nil until the server is ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// MetricsAddr returns the address of the metrics listener, if enabled.
func (s *Server) MetricsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsAddr
}

// Runtime returns the backend runtime of the server. It is nil until Run was called.
func (s *Server) Runtime() *backend.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime
}

// Run serves until ctx is cancelled or serving fails.
func (s *Server) Run(ctx context.Context) (err error) {
	defer s.markReady()

	rt := backend.New(backend.Options{
		QueueSize: s.cfg.BackendQueueSize,
		Logger:    s.base,
	})
	s.mu.Lock()
	s.runtime = rt
	s.mu.Unlock()

	if err := rt.Start(ctx); err != nil {
		return err
	}
	// cleanup must complete even though ctx is typically cancelled by now.
	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		err = errors.Join(err, rt.Stop(cleanupCtx))
	}()

	f := factory.New(s.pluginSources(rt), factory.WithLogger(s.base))
	defer func() {
		err = errors.Join(err, rt.Do(cleanupCtx, f.Close))
	}()

	svc := service.New(f, rt, handle.New[manager.Manager](handle.WithMaxEntries(s.cfg.MaxInstances)), service.Options{
		StrictDestroy: s.cfg.StrictDestroy,
		Logger:        s.base,
	})
	defer func() {
		err = errors.Join(err, svc.Shutdown(cleanupCtx))
	}()

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(svc.UnaryInterceptors()...))
	v1.RegisterManagerProxyServer(grpcServer, svc)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	var metricsServer *http.Server
	var metricsLis net.Listener
	if s.cfg.MetricsAddress != "" {
		if metricsLis, err = lc.Listen(ctx, "tcp", s.cfg.MetricsAddress); err != nil {
			return errors.Join(fmt.Errorf("failed to listen on %s: %w", s.cfg.MetricsAddress, err), lis.Close())
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		eg.Go(func() error {
			if err := metricsServer.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve metrics: %w", err)
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-egctx.Done()
		s.logger.InfoContext(cleanupCtx, "gracefully shutting down manager proxy")
		healthServer.Shutdown()

		timeout := s.cfg.ShutdownTimeout.Get(configv1.DefaultShutdownTimeout)
		s.stop(cleanupCtx, grpcServer, timeout)
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(cleanupCtx, timeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down metrics server: %w", err)
			}
		}
		return nil
	})

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	s.mu.Lock()
	s.addr = lis.Addr()
	if metricsLis != nil {
		s.metricsAddr = metricsLis.Addr()
	}
	s.mu.Unlock()
	s.markReady()
	s.logger.InfoContext(ctx, "manager proxy listening", "address", lis.Addr().String())

	return eg.Wait()
}

// stop stops srv gracefully and forcefully closes remaining calls after timeout.
func (s *Server) stop(ctx context.Context, srv *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		s.logger.WarnContext(ctx, "graceful shutdown timed out, closing remaining calls", "timeout", timeout)
		srv.Stop()
		<-stopped
	}
}

func (s *Server) pluginSources(rt *backend.Runtime) []factory.Source {
	sources := append([]factory.Source(nil), s.sources...)
	if !s.cfg.DisableBuiltin {
		registry := factory.NewRegistry()
		if err := memory.Register(registry); err != nil {
			s.logger.Warn("failed to register builtin manager", "error", err)
		}
		sources = append(sources, registry)
	}
	paths := append(append([]string(nil), s.cfg.PluginPaths...), wasm.PathsFromEnv()...)
	if len(paths) > 0 {
		sources = append(sources, wasm.NewSource(paths,
			wasm.WithLogger(s.base),
			wasm.WithRuntimeConfig(rt.WasmRuntimeConfig),
		))
	}
	return sources
}
