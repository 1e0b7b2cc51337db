package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/backend"
	"ocm.software/open-component-model/managerproxy/builtin/memory"
	"ocm.software/open-component-model/managerproxy/client"
	"ocm.software/open-component-model/managerproxy/factory"
	"ocm.software/open-component-model/managerproxy/handle"
	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/service"
)

const faultyIdentifier = "test.faulty"

type env struct {
	client  *client.Client
	rpc     v1.ManagerProxyClient
	service *service.Service
	runtime *backend.Runtime
}

type envOptions struct {
	service service.Options
	table   []handle.Option
	sources []factory.Source
}

func newEnv(t *testing.T, opts envOptions) *env {
	t.Helper()
	rt := backend.New(backend.Options{})
	require.NoError(t, rt.Start(t.Context()))

	svc := service.New(factory.New(opts.sources), rt, handle.New[manager.Manager](opts.table...), opts.service)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(svc.UnaryInterceptors()...))
	v1.RegisterManagerProxyServer(srv, svc)
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, conn.Close())
		srv.Stop()
		ctx := context.Background()
		assert.NoError(t, svc.Shutdown(ctx))
		if rt.Running() {
			assert.NoError(t, rt.Stop(ctx))
		}
	})

	return &env{
		client:  client.NewFromConn(conn),
		rpc:     v1.NewManagerProxyClient(conn),
		service: svc,
		runtime: rt,
	}
}

func memoryRegistry(t *testing.T) *factory.Registry {
	t.Helper()
	registry := factory.NewRegistry()
	require.NoError(t, memory.Register(registry))
	return registry
}

// faultyManager fails every operation except Identifier.
type faultyManager struct {
	closed *atomic.Int32
}

func (m *faultyManager) Identifier(context.Context) (string, error) { return faultyIdentifier, nil }

func (m *faultyManager) DisplayName(context.Context) (string, error) {
	panic("display name exploded")
}

func (m *faultyManager) Info(context.Context) (manager.InfoDictionary, error) {
	return manager.InfoDictionary{"unencodable": []string{"x"}}, nil
}

func (m *faultyManager) Settings(context.Context, *manager.HostSession) (manager.InfoDictionary, error) {
	return nil, errors.New("settings unavailable")
}

func (m *faultyManager) Initialize(context.Context, manager.InfoDictionary, *manager.HostSession) error {
	return errors.New("initialization failed")
}

func (m *faultyManager) Close(context.Context) error {
	if m.closed != nil {
		m.closed.Add(1)
	}
	return nil
}

func TestListIdentifiersWithoutImplementations(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, envOptions{})

	resp, err := e.rpc.ListIdentifiers(t.Context(), &v1.ListIdentifiersRequest{})
	r.NoError(err)
	r.NotNil(resp.Identifiers)
	r.Empty(resp.Identifiers)
}

func TestListIdentifiers(t *testing.T) {
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})
	ids, err := e.client.Identifiers(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{memory.Identifier}, ids)
}

func TestInstantiateUnknownIdentifier(t *testing.T) {
	r := require.New(t)
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})

	_, err := e.client.Instantiate(t.Context(), "nonexistent-plugin")
	r.ErrorIs(err, manager.ErrUnknownIdentifier)
	r.Equal(codes.NotFound, status.Code(err))
	r.Contains(err.Error(), "nonexistent-plugin")
}

func TestInvalidHandle(t *testing.T) {
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})
	ctx := t.Context()

	calls := map[string]func() error{
		"GetIdentifier": func() error {
			_, err := e.client.Identifier(ctx, "garbage-handle")
			return err
		},
		"GetDisplayName": func() error {
			_, err := e.client.DisplayName(ctx, "garbage-handle")
			return err
		},
		"GetInfo": func() error {
			_, err := e.client.Info(ctx, "garbage-handle")
			return err
		},
		"GetSettings": func() error {
			_, err := e.client.Settings(ctx, "garbage-handle", "host")
			return err
		},
		"Initialize": func() error {
			return e.client.Initialize(ctx, "garbage-handle", manager.InfoDictionary{}, "host")
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.ErrorIs(t, err, manager.ErrInvalidHandle)
			require.Equal(t, codes.FailedPrecondition, status.Code(err))
		})
	}
}

func TestManagerLifecycle(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})

	h, err := e.client.Instantiate(ctx, memory.Identifier)
	r.NoError(err)
	r.NotEmpty(h)

	id, err := e.client.Identifier(ctx, h)
	r.NoError(err)
	r.Equal(memory.Identifier, id)

	name, err := e.client.DisplayName(ctx, h)
	r.NoError(err)
	r.Equal(memory.DefaultDisplayName, name)

	info, err := e.client.Info(ctx, h)
	r.NoError(err)
	r.Equal(memory.EntityReferencePrefix, info["entityReferencePrefix"])

	r.NoError(e.client.Initialize(ctx, h, manager.InfoDictionary{
		memory.DisplayNameKey: "Configured",
		"retries":             int64(3),
		"ratio":               2.0,
		"not.a.known.key":     true,
	}, "host-1"))

	settings, err := e.client.Settings(ctx, h, "host-1")
	r.NoError(err)
	r.Equal(int64(3), settings["retries"])
	r.Equal(2.0, settings["ratio"])
	r.Equal(true, settings["not.a.known.key"])

	name, err = e.client.DisplayName(ctx, h)
	r.NoError(err)
	r.Equal("Configured", name)

	r.NoError(e.client.Destroy(ctx, h))
	_, err = e.client.Identifier(ctx, h)
	r.ErrorIs(err, manager.ErrInvalidHandle)

	r.NoError(e.client.Destroy(ctx, h), "destroying an unknown handle succeeds by default")
}

func TestStrictDestroy(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	e := newEnv(t, envOptions{
		sources: []factory.Source{memoryRegistry(t)},
		service: service.Options{StrictDestroy: true},
	})

	h, err := e.client.Instantiate(ctx, memory.Identifier)
	r.NoError(err)
	r.NoError(e.client.Destroy(ctx, h))

	err = e.client.Destroy(ctx, h)
	r.ErrorIs(err, manager.ErrInvalidHandle)
	r.Equal(codes.FailedPrecondition, status.Code(err))
}

func TestConcurrentInstancesAreIndependent(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})

	const n = 16
	handles := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := e.client.Instantiate(ctx, memory.Identifier)
			if !assert.NoError(t, err) {
				return
			}
			handles[i] = h
			assert.NoError(t, e.client.Initialize(ctx, h, manager.InfoDictionary{
				memory.DisplayNameKey: fmt.Sprintf("manager-%d", i),
			}, fmt.Sprintf("host-%d", i)))
		}()
	}
	wg.Wait()

	seen := map[string]struct{}{}
	for i, h := range handles {
		r.NotContains(seen, h)
		seen[h] = struct{}{}
		name, err := e.client.DisplayName(ctx, h)
		r.NoError(err)
		r.Equal(fmt.Sprintf("manager-%d", i), name)
	}
}

func TestInitializeRejectsNonPrimitiveSettings(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})

	h, err := e.client.Instantiate(ctx, memory.Identifier)
	r.NoError(err)

	_, err = e.rpc.Initialize(ctx, &v1.InitializeRequest{
		Handle:      h,
		Settings:    v1.Settings{"nested": map[string]any{"a": 1}},
		HostSession: v1.HostSession{ID: "host"},
	})
	r.Equal(codes.InvalidArgument, status.Code(err))
	r.Equal(v1.ReasonInvalidSettings, v1.ReasonOf(status.Convert(err)))

	_, err = e.client.Identifier(ctx, h)
	r.NoError(err, "rejected settings must not affect the instance")
}

func TestBackendFaultKeepsInstance(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	registry := factory.NewRegistry()
	registry.MustRegister(faultyIdentifier, func() manager.Manager { return &faultyManager{} })
	e := newEnv(t, envOptions{sources: []factory.Source{registry}})

	h, err := e.client.Instantiate(ctx, faultyIdentifier)
	r.NoError(err)

	err = e.client.Initialize(ctx, h, manager.InfoDictionary{"k": "v"}, "host")
	r.ErrorIs(err, manager.ErrBackendFault)
	r.Equal(codes.Internal, status.Code(err))

	_, err = e.client.DisplayName(ctx, h)
	r.ErrorIs(err, manager.ErrBackendFault)
	r.Contains(err.Error(), "display name exploded")

	_, err = e.client.Info(ctx, h)
	r.ErrorIs(err, manager.ErrBackendFault, "unencodable results are a backend fault")

	_, err = e.client.Settings(ctx, h, "host")
	r.ErrorIs(err, manager.ErrBackendFault)

	id, err := e.client.Identifier(ctx, h)
	r.NoError(err, "the instance must stay registered after faults")
	r.Equal(faultyIdentifier, id)
}

func TestInstanceLimit(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	var closed atomic.Int32
	registry := factory.NewRegistry()
	registry.MustRegister(faultyIdentifier, func() manager.Manager { return &faultyManager{closed: &closed} })
	e := newEnv(t, envOptions{
		sources: []factory.Source{registry},
		table:   []handle.Option{handle.WithMaxEntries(1)},
	})

	h, err := e.client.Instantiate(ctx, faultyIdentifier)
	r.NoError(err)
	_, err = e.client.Instantiate(ctx, faultyIdentifier)
	r.ErrorIs(err, manager.ErrInstanceLimit)
	r.Equal(codes.ResourceExhausted, status.Code(err))
	r.EqualValues(1, closed.Load(), "rejected instance must be closed")

	r.NoError(e.client.Destroy(ctx, h))
	r.EqualValues(2, closed.Load())
	_, err = e.client.Instantiate(ctx, faultyIdentifier)
	r.NoError(err)
}

func TestShutdownClosesInstances(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	var closed atomic.Int32
	registry := factory.NewRegistry()
	registry.MustRegister(faultyIdentifier, func() manager.Manager { return &faultyManager{closed: &closed} })
	e := newEnv(t, envOptions{sources: []factory.Source{registry}})

	before := testutil.ToFloat64(service.LiveInstancesGauge)
	var handles []string
	for range 3 {
		h, err := e.client.Instantiate(ctx, faultyIdentifier)
		r.NoError(err)
		handles = append(handles, h)
	}
	r.InDelta(before+3, testutil.ToFloat64(service.LiveInstancesGauge), 0)

	r.NoError(e.service.Shutdown(ctx))
	r.EqualValues(3, closed.Load())
	r.InDelta(before, testutil.ToFloat64(service.LiveInstancesGauge), 0)

	for _, h := range handles {
		_, err := e.client.Identifier(ctx, h)
		r.ErrorIs(err, manager.ErrInvalidHandle)
	}
}

func TestBackendUnavailable(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	e := newEnv(t, envOptions{sources: []factory.Source{memoryRegistry(t)}})
	r.NoError(e.runtime.Stop(ctx))

	_, err := e.client.Identifiers(ctx)
	r.ErrorIs(err, manager.ErrBackendUnavailable)
	r.Equal(codes.Unavailable, status.Code(err))
}

// countingManager records how many of its calls execute at the same time.
type countingManager struct {
	memory.Manager
	active, peak *atomic.Int32
}

func (m *countingManager) DisplayName(ctx context.Context) (string, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return m.Manager.DisplayName(ctx)
}

func TestBackendCallsAreSerialized(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	var active, peak atomic.Int32
	registry := factory.NewRegistry()
	registry.MustRegister("test.counting", func() manager.Manager {
		return &countingManager{Manager: *memory.New(), active: &active, peak: &peak}
	})
	e := newEnv(t, envOptions{sources: []factory.Source{registry}})

	var handles []string
	for range 4 {
		h, err := e.client.Instantiate(ctx, "test.counting")
		r.NoError(err)
		handles = append(handles, h)
	}

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.client.DisplayName(ctx, handles[i%len(handles)])
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	r.EqualValues(1, peak.Load())
}

func TestCallMetrics(t *testing.T) {
	e := newEnv(t, envOptions{})
	counter := service.CallsCounterTotal.WithLabelValues("GetIdentifier", codes.FailedPrecondition.String())
	before := testutil.ToFloat64(counter)

	_, err := e.client.Identifier(t.Context(), "garbage-handle")
	require.Error(t, err)
	require.InDelta(t, before+1, testutil.ToFloat64(counter), 0)
}

// interleavingExecutor runs before once, right before the next function is handed to the backend.
type interleavingExecutor struct {
	backend.Executor
	before atomic.Pointer[func()]
}

func (e *interleavingExecutor) Do(ctx context.Context, fn func(context.Context) error) error {
	if hook := e.before.Swap(nil); hook != nil {
		(*hook)()
	}
	return e.Executor.Do(ctx, fn)
}

func TestDestroyBeforeQueuedCall(t *testing.T) {
	calls := map[string]func(ctx context.Context, svc *service.Service, h string) error{
		"GetIdentifier": func(ctx context.Context, svc *service.Service, h string) error {
			_, err := svc.GetIdentifier(ctx, &v1.GetIdentifierRequest{Handle: h})
			return err
		},
		"GetDisplayName": func(ctx context.Context, svc *service.Service, h string) error {
			_, err := svc.GetDisplayName(ctx, &v1.GetDisplayNameRequest{Handle: h})
			return err
		},
		"GetInfo": func(ctx context.Context, svc *service.Service, h string) error {
			_, err := svc.GetInfo(ctx, &v1.GetInfoRequest{Handle: h})
			return err
		},
		"GetSettings": func(ctx context.Context, svc *service.Service, h string) error {
			_, err := svc.GetSettings(ctx, &v1.GetSettingsRequest{Handle: h, HostSession: v1.HostSession{ID: "host"}})
			return err
		},
		"Initialize": func(ctx context.Context, svc *service.Service, h string) error {
			_, err := svc.Initialize(ctx, &v1.InitializeRequest{
				Handle:      h,
				Settings:    v1.Settings{"k": "v"},
				HostSession: v1.HostSession{ID: "host"},
			})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			ctx := t.Context()
			rt := backend.New(backend.Options{})
			r.NoError(rt.Start(ctx))
			t.Cleanup(func() { assert.NoError(t, rt.Stop(context.Background())) })

			exec := &interleavingExecutor{Executor: rt}
			svc := service.New(factory.New([]factory.Source{memoryRegistry(t)}), exec, nil, service.Options{})
			resp, err := svc.Instantiate(ctx, &v1.InstantiateRequest{Identifier: memory.Identifier})
			r.NoError(err)

			destroy := func() {
				_, err := svc.Destroy(ctx, &v1.DestroyRequest{Handle: resp.Handle})
				assert.NoError(t, err)
			}
			exec.before.Store(&destroy)

			err = call(ctx, svc, resp.Handle)
			r.Nil(exec.before.Load(), "destroy must have run")
			st := status.Convert(err)
			r.Equal(codes.FailedPrecondition, st.Code(), st.Message())
			r.Equal(v1.ReasonInvalidHandle, v1.ReasonOf(st))
		})
	}
}

// closeAwareManager fails calls made after Close.
type closeAwareManager struct {
	memory.Manager
	closed  atomic.Bool
	running chan struct{}
	release chan struct{}
}

func (m *closeAwareManager) DisplayName(ctx context.Context) (string, error) {
	close(m.running)
	<-m.release
	if m.closed.Load() {
		return "", errors.New("called after close")
	}
	return m.Manager.DisplayName(ctx)
}

func (m *closeAwareManager) Close(ctx context.Context) error {
	m.closed.Store(true)
	return m.Manager.Close(ctx)
}

func TestDestroyWaitsForRunningCall(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	m := &closeAwareManager{Manager: *memory.New(), running: make(chan struct{}), release: make(chan struct{})}
	registry := factory.NewRegistry()
	registry.MustRegister("test.closeaware", func() manager.Manager { return m })
	e := newEnv(t, envOptions{sources: []factory.Source{registry}})

	h, err := e.client.Instantiate(ctx, "test.closeaware")
	r.NoError(err)

	nameErr := make(chan error, 1)
	go func() {
		_, err := e.client.DisplayName(ctx, h)
		nameErr <- err
	}()
	<-m.running

	destroyErr := make(chan error, 1)
	go func() {
		destroyErr <- e.client.Destroy(ctx, h)
	}()
	// the destroy can not close the instance while the call is running
	time.Sleep(20 * time.Millisecond)
	r.False(m.closed.Load())

	close(m.release)
	r.NoError(<-nameErr)
	r.NoError(<-destroyErr)
	r.True(m.closed.Load())
}

// lockedBuffer collects log output written from gRPC goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFailureLogLevels(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	var logs lockedBuffer
	e := newEnv(t, envOptions{service: service.Options{
		Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
	}})

	_, err := e.client.Identifier(ctx, "garbage-handle")
	r.ErrorIs(err, manager.ErrInvalidHandle)
	r.Contains(logs.String(), `"level":"ERROR","msg":"call failed"`)
	r.Contains(logs.String(), `garbage-handle`)

	r.NoError(e.client.Destroy(ctx, "garbage-handle"))
	r.Contains(logs.String(), `"level":"WARN","msg":"destroy requested for unknown handle"`)

	_, err = e.client.Instantiate(ctx, "does.not.exist")
	r.ErrorIs(err, manager.ErrUnknownIdentifier)
	r.NotContains(logs.String(), "does.not.exist", "unknown identifiers are logged at debug level")
}

func TestHostSessionLoggerRealm(t *testing.T) {
	r := require.New(t)
	ctx := t.Context()
	var logs lockedBuffer
	e := newEnv(t, envOptions{
		sources: []factory.Source{memoryRegistry(t)},
		service: service.Options{Logger: slog.New(slog.NewJSONHandler(&logs, nil))},
	})

	h, err := e.client.Instantiate(ctx, memory.Identifier)
	r.NoError(err)
	r.NoError(e.client.Initialize(ctx, h, manager.InfoDictionary{"k": "v"}, "host-7"))

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if !strings.Contains(line, "in-memory manager initialized") {
			continue
		}
		found = true
		r.Equal(1, strings.Count(line, `"realm":`), line)
		r.Contains(line, `"realm":"hostsession"`)
		r.Contains(line, `"hostSession":"host-7"`)
	}
	r.True(found)
}
