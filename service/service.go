// Package service implements the manager proxy RPC service.
//
// Every call decodes its request, resolves the handle it carries and executes the manager
// operation on the backend, then encodes the result. Handles are resolved on the backend too,
// so a call never reaches an instance that Destroy has closed. Manager instances live in a
// handle table whose lock is never held while backend code runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/backend"
	"ocm.software/open-component-model/managerproxy/handle"
	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/wire"
)

// Factory provides manager instances.
type Factory interface {
	Identifiers(ctx context.Context) ([]string, error)
	Instantiate(ctx context.Context, identifier string) (manager.Manager, error)
}

// Options configures the service.
type Options struct {
	// StrictDestroy makes Destroy fail for handles that are not registered.
	// By default such calls are logged as a warning and succeed.
	StrictDestroy bool
	// Logger is the base logger of the service.
	Logger *slog.Logger
}

// Service implements v1.ManagerProxyServer.
type Service struct {
	v1.UnimplementedManagerProxyServer

	factory   Factory
	backend   backend.Executor
	instances *handle.Table[manager.Manager]
	opts      Options
	// base is the logger without realm, host session loggers derive from it.
	base *slog.Logger
}

var _ v1.ManagerProxyServer = (*Service)(nil)

// New creates a service handing out instances created by factory. All factory and manager
// calls are executed through exec.
func New(factory Factory, exec backend.Executor, instances *handle.Table[manager.Manager], opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	base := opts.Logger
	opts.Logger = base.With(slog.String("realm", "service"))
	if instances == nil {
		instances = handle.New[manager.Manager]()
	}
	return &Service{
		factory:   factory,
		backend:   exec,
		instances: instances,
		opts:      opts,
		base:      base,
	}
}

// Logger returns the base logger of the service.
func (s *Service) Logger() *slog.Logger {
	return s.opts.Logger
}

func (s *Service) ListIdentifiers(ctx context.Context, _ *v1.ListIdentifiersRequest) (*v1.ListIdentifiersResponse, error) {
	ids, err := backend.Call(ctx, s.backend, s.factory.Identifiers)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &v1.ListIdentifiersResponse{Identifiers: ids}, nil
}

func (s *Service) Instantiate(ctx context.Context, req *v1.InstantiateRequest) (*v1.InstantiateResponse, error) {
	m, err := backend.Call(ctx, s.backend, func(ctx context.Context) (manager.Manager, error) {
		return s.factory.Instantiate(ctx, req.Identifier)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	h, err := s.instances.Register(m)
	if err != nil {
		if cerr := s.close(ctx, m); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, s.fail(ctx, err)
	}
	LiveInstancesGauge.Inc()

	log(ctx).DebugContext(ctx, "instantiated manager", "identifier", req.Identifier, "handle", h)
	return &v1.InstantiateResponse{Handle: h}, nil
}

func (s *Service) Destroy(ctx context.Context, req *v1.DestroyRequest) (*v1.DestroyResponse, error) {
	m, ok := s.instances.Remove(req.Handle)
	if !ok {
		if s.opts.StrictDestroy {
			return nil, s.fail(ctx, invalidHandle(req.Handle))
		}
		log(ctx).WarnContext(ctx, "destroy requested for unknown handle", "handle", req.Handle)
		return &v1.DestroyResponse{}, nil
	}
	LiveInstancesGauge.Dec()

	if err := s.close(ctx, m); err != nil {
		return nil, s.fail(ctx, err)
	}
	log(ctx).DebugContext(ctx, "destroyed manager", "handle", req.Handle)
	return &v1.DestroyResponse{}, nil
}

func (s *Service) GetIdentifier(ctx context.Context, req *v1.GetIdentifierRequest) (*v1.GetIdentifierResponse, error) {
	id, err := withManager(ctx, s, req.Handle, func(ctx context.Context, m manager.Manager) (string, error) {
		return m.Identifier(ctx)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &v1.GetIdentifierResponse{Identifier: id}, nil
}

func (s *Service) GetDisplayName(ctx context.Context, req *v1.GetDisplayNameRequest) (*v1.GetDisplayNameResponse, error) {
	name, err := withManager(ctx, s, req.Handle, func(ctx context.Context, m manager.Manager) (string, error) {
		return m.DisplayName(ctx)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &v1.GetDisplayNameResponse{DisplayName: name}, nil
}

func (s *Service) GetInfo(ctx context.Context, req *v1.GetInfoRequest) (*v1.GetInfoResponse, error) {
	info, err := withManager(ctx, s, req.Handle, func(ctx context.Context, m manager.Manager) (manager.InfoDictionary, error) {
		return m.Info(ctx)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	encoded, err := encodeResult(info)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &v1.GetInfoResponse{Info: encoded}, nil
}

func (s *Service) GetSettings(ctx context.Context, req *v1.GetSettingsRequest) (*v1.GetSettingsResponse, error) {
	session := wire.DecodeHostSession(req.HostSession, s.base)
	settings, err := withManager(ctx, s, req.Handle, func(ctx context.Context, m manager.Manager) (manager.InfoDictionary, error) {
		return m.Settings(ctx, session)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	encoded, err := encodeResult(settings)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &v1.GetSettingsResponse{Settings: encoded}, nil
}

// Initialize applies settings to the manager. Key names are not validated here,
// that is up to the manager.
func (s *Service) Initialize(ctx context.Context, req *v1.InitializeRequest) (*v1.InitializeResponse, error) {
	settings, err := wire.DecodeSettings(req.Settings)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	session := wire.DecodeHostSession(req.HostSession, s.base)
	_, err = withManager(ctx, s, req.Handle, func(ctx context.Context, m manager.Manager) (struct{}, error) {
		return struct{}{}, m.Initialize(ctx, settings, session)
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	log(ctx).DebugContext(ctx, "initialized manager", "handle", req.Handle, "hostSession", session.ID)
	return &v1.InitializeResponse{}, nil
}

// Shutdown destroys every live manager instance.
func (s *Service) Shutdown(ctx context.Context) error {
	drained := s.instances.Drain()
	LiveInstancesGauge.Sub(float64(len(drained)))

	var errs []error
	for h, m := range drained {
		if err := s.close(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("failed to close manager %s: %w", h, err))
		}
	}
	if len(drained) > 0 {
		s.opts.Logger.InfoContext(ctx, "destroyed live managers on shutdown", "count", len(drained))
	}
	return errors.Join(errs...)
}

// withManager resolves h and calls fn with the instance, both on the backend. Destroy closes
// instances on the backend as well, so fn either runs before the close or h is already gone.
func withManager[T any](ctx context.Context, s *Service, h string, fn func(context.Context, manager.Manager) (T, error)) (T, error) {
	return backend.Call(ctx, s.backend, func(ctx context.Context) (T, error) {
		m, ok := s.instances.Resolve(h)
		if !ok {
			var zero T
			return zero, invalidHandle(h)
		}
		return fn(ctx, m)
	})
}

// close releases m on the backend. The close is not abandoned if the caller goes away.
func (s *Service) close(ctx context.Context, m manager.Manager) error {
	closer, ok := m.(manager.Closer)
	if !ok {
		return nil
	}
	return s.backend.Do(context.WithoutCancel(ctx), closer.Close)
}

// fail classifies err, logs it and converts it into a status error.
func (s *Service) fail(ctx context.Context, err error) error {
	err = classify(err)
	switch {
	case errors.Is(err, manager.ErrInvalidHandle), errors.Is(err, manager.ErrBackendFault):
		log(ctx).ErrorContext(ctx, "call failed", "error", err)
	default:
		log(ctx).DebugContext(ctx, "call failed", "error", err)
	}
	return v1.Error(err)
}

var domainErrors = []error{
	manager.ErrUnknownIdentifier,
	manager.ErrInvalidHandle,
	manager.ErrInvalidSettings,
	manager.ErrInstanceLimit,
	manager.ErrBackendUnavailable,
	manager.ErrBackendFault,
	context.Canceled,
	context.DeadlineExceeded,
}

// classify reports every error that is not a known failure kind as a fault of the backend.
func classify(err error) error {
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", manager.ErrBackendFault, err)
}

func invalidHandle(h string) error {
	return fmt.Errorf("%w: %q", manager.ErrInvalidHandle, h)
}

func encodeResult(dict manager.InfoDictionary) (v1.Settings, error) {
	encoded, err := wire.EncodeSettings(dict)
	if err != nil {
		return nil, fmt.Errorf("%w: manager returned %w", manager.ErrBackendFault, err)
	}
	return encoded, nil
}

func log(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx)
}
