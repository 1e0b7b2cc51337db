// Package backend provides the runtime that hosts manager plugin code.
//
// The runtime is a single shared resource: it is started and stopped exactly once and every
// function that touches plugin code is executed on one dedicated worker, so no two such
// functions ever run at the same time.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"

	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/metrics"
)

var (
	// ErrNotRunning is returned when work is submitted to a runtime that is not started or already stopped.
	ErrNotRunning = fmt.Errorf("runtime is not running: %w", manager.ErrBackendUnavailable)
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("backend runtime already started")
	// ErrAlreadyStopped is returned when Stop is called more than once.
	ErrAlreadyStopped = errors.New("backend runtime already stopped")
	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("backend runtime not started")
)

type state int

const (
	stateCreated state = iota
	stateRunning
	stateStopped
)

// Hook is executed on the worker when the runtime starts or stops.
type Hook func(ctx context.Context) error

// Options configures the runtime.
type Options struct {
	// QueueSize is the number of calls that may wait for the worker without blocking the submitter.
	QueueSize int
	// Logger for the runtime.
	Logger *slog.Logger
	// OnStart is executed on the worker before any call is accepted.
	OnStart Hook
	// OnStop is executed on the worker after the last call finished.
	OnStop Hook
}

// Runtime executes backend functions one at a time on a dedicated worker.
type Runtime struct {
	Options

	mu       sync.RWMutex
	state    state
	queue    chan *task
	closing  chan struct{}
	finished chan error
	cache    wazero.CompilationCache
}

// New creates a runtime. It does nothing until Start is called.
func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	opts.Logger = opts.Logger.With(slog.String("realm", "backend"))
	return &Runtime{
		Options:  opts,
		queue:    make(chan *task, opts.QueueSize),
		closing:  make(chan struct{}),
		finished: make(chan error, 1),
	}
}

// Start brings the runtime up. It may only be called once.
// If the start hook fails, every resource acquired so far is released again and
// the runtime is unusable.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrAlreadyStopped
	}

	r.Logger.InfoContext(ctx, "starting backend runtime", "queueSize", r.QueueSize)
	r.cache = wazero.NewCompilationCache()

	started := make(chan error, 1)
	go r.work(ctx, started)

	if err := <-started; err != nil {
		r.state = stateStopped
		close(r.closing)
		err = errors.Join(err, <-r.finished, r.cache.Close(ctx))
		return fmt.Errorf("failed to start backend runtime: %w", err)
	}

	r.state = stateRunning
	return nil
}

// Stop shuts the runtime down. It may only be called once and only after Start.
// Calls still queued are rejected with ErrNotRunning, a call already executing is awaited.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case stateCreated:
		r.mu.Unlock()
		return ErrNotStarted
	case stateStopped:
		r.mu.Unlock()
		return ErrAlreadyStopped
	}
	r.state = stateStopped
	close(r.closing)
	r.mu.Unlock()

	r.Logger.InfoContext(ctx, "stopping backend runtime")

	select {
	case err := <-r.finished:
		if cerr := r.cache.Close(ctx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close compilation cache: %w", cerr))
		}
		r.Logger.InfoContext(ctx, "backend runtime stopped")
		return err
	case <-ctx.Done():
		return fmt.Errorf("backend runtime did not stop in time: %w", ctx.Err())
	}
}

// Running reports whether the runtime accepts calls.
func (r *Runtime) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == stateRunning
}

// WasmRuntimeConfig returns a wazero runtime configuration sharing the compilation cache of
// the runtime, so every plugin module is compiled only once per process.
func (r *Runtime) WasmRuntimeConfig() wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfig()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cache != nil && r.state == stateRunning {
		cfg = cfg.WithCompilationCache(r.cache)
	}
	return cfg
}

// Do executes fn on the worker and returns its error.
// The caller stops waiting if ctx ends while fn is still queued. Once fn was picked up it
// always runs to completion and Do waits for it.
// A panic in fn is reported as an error wrapping manager.ErrBackendFault.
func (r *Runtime) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	r.mu.RLock()
	if r.state != stateRunning {
		r.mu.RUnlock()
		return ErrNotRunning
	}
	select {
	case r.queue <- t:
		QueueSizeGauge.Set(float64(len(r.queue)))
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}
	r.mu.RUnlock()

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		if t.abandon() {
			return ctx.Err()
		}
		return <-t.done
	}
}

// Executor executes functions that touch backend state.
type Executor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Executor = (*Runtime)(nil)

// Call executes fn through e and returns its result. See Runtime.Do.
func Call[T any](ctx context.Context, e Executor, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

func (r *Runtime) work(ctx context.Context, started chan<- error) {
	// plugin runtimes may keep thread local state, so the worker never migrates.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx = context.WithoutCancel(ctx)

	if r.OnStart != nil {
		if err := safeCall(ctx, r.OnStart); err != nil {
			started <- err
			r.finished <- nil
			return
		}
	}
	started <- nil
	r.Logger.DebugContext(ctx, "backend worker started")

	for {
		select {
		case t := <-r.queue:
			QueueSizeGauge.Set(float64(len(r.queue)))
			r.run(t)
		case <-r.closing:
			r.drain(ctx)
			var err error
			if r.OnStop != nil {
				err = safeCall(ctx, r.OnStop)
			}
			r.finished <- err
			return
		}
	}
}

func (r *Runtime) run(t *task) {
	if !t.claim() {
		return
	}
	start := time.Now()
	t.done <- safeCall(t.ctx, t.fn)
	metrics.SetDurationObserver(CallDurationHistogram, start)
}

func (r *Runtime) drain(ctx context.Context) {
	for {
		select {
		case t := <-r.queue:
			if t.claim() {
				r.Logger.DebugContext(ctx, "rejecting queued backend call during shutdown")
				t.done <- ErrNotRunning
			}
		default:
			QueueSizeGauge.Set(0)
			return
		}
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			PanicsCounterTotal.Inc()
			err = fmt.Errorf("%w: panic: %v", manager.ErrBackendFault, rec)
		}
	}()
	return fn(ctx)
}

const (
	taskPending int32 = iota
	taskClaimed
	taskAbandoned
)

type task struct {
	ctx   context.Context
	fn    func(ctx context.Context) error
	done  chan error
	state atomic.Int32
}

// claim marks the task as picked up by the worker.
func (t *task) claim() bool {
	return t.state.CompareAndSwap(taskPending, taskClaimed)
}

// abandon marks the task as no longer awaited. It fails if the worker already claimed it.
func (t *task) abandon() bool {
	return t.state.CompareAndSwap(taskPending, taskAbandoned)
}
