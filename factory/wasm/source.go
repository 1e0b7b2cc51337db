// Package wasm provides a plugin source that loads manager implementations from WebAssembly
// modules using Extism.
//
// A manager plugin exports the following functions:
//
//	identifier    output: identifier of the implementation
//	display_name  output: human-readable name
//	initialize    input:  {"settings": {...}, "hostSession": {"id": "..."}}
//	info          output: JSON object (optional)
//	settings      input:  {"hostSession": {"id": "..."}}, output: JSON object (optional)
package wasm

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	extism "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"

	"ocm.software/open-component-model/managerproxy/manager"
)

const (
	// PluginPathEnv holds additional plugin search paths separated by the OS path list separator.
	PluginPathEnv = "OPENASSETIO_PLUGIN_PATH"
	// Extension is the file extension of manager plugins.
	Extension = ".wasm"
)

// PathsFromEnv returns the plugin search paths configured in PluginPathEnv.
func PathsFromEnv() []string {
	var paths []string
	for _, path := range filepath.SplitList(os.Getenv(PluginPathEnv)) {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// Source discovers manager plugins on a list of search paths.
// Paths are scanned on first use. If two plugins report the same identifier, the one found
// first wins.
type Source struct {
	paths         []string
	runtimeConfig func() wazero.RuntimeConfig
	logger        *slog.Logger

	mu      sync.Mutex
	scanned bool
	modules map[string]*module
}

type module struct {
	path string
	wasm []byte
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger of the source.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// WithRuntimeConfig sets the provider of the wazero runtime configuration used for every plugin.
func WithRuntimeConfig(cfg func() wazero.RuntimeConfig) Option {
	return func(s *Source) {
		s.runtimeConfig = cfg
	}
}

// NewSource creates a source scanning paths. Each path is either a directory, whose
// top-level *.wasm files are considered, or a single *.wasm file.
func NewSource(paths []string, opts ...Option) *Source {
	s := &Source{
		paths:   slices.Clone(paths),
		logger:  slog.Default(),
		modules: make(map[string]*module),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("realm", "plugin"))
	return s
}

func (s *Source) Identifiers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scan(ctx)
	return slices.Sorted(maps.Keys(s.modules)), nil
}

func (s *Source) Instantiate(ctx context.Context, identifier string) (manager.Manager, error) {
	s.mu.Lock()
	s.scan(ctx)
	mod, ok := s.modules[identifier]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", manager.ErrUnknownIdentifier, identifier)
	}

	plugin, err := s.newPlugin(ctx, mod.wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugin %s: %w", mod.path, err)
	}
	return newManager(plugin, mod.path, s.logger), nil
}

// Close forgets every discovered plugin. Live instances are not affected.
func (s *Source) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.modules)
	s.scanned = false
	return nil
}

func (s *Source) scan(ctx context.Context) {
	if s.scanned {
		return
	}
	s.scanned = true

	for _, path := range s.paths {
		for _, file := range s.candidates(ctx, path) {
			identifier, wasm, err := s.probe(ctx, file)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping unloadable manager plugin", "path", file, "error", err)
				continue
			}
			if existing, ok := s.modules[identifier]; ok {
				s.logger.WarnContext(ctx, "manager plugin identifier already provided, skipping",
					"identifier", identifier, "path", file, "provider", existing.path)
				continue
			}
			s.modules[identifier] = &module{path: file, wasm: wasm}
			s.logger.DebugContext(ctx, "discovered manager plugin", "identifier", identifier, "path", file)
		}
	}
}

func (s *Source) candidates(ctx context.Context, path string) []string {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.WarnContext(ctx, "plugin search path not accessible", "path", path, "error", err)
		return nil
	}
	if !info.IsDir() {
		if filepath.Ext(path) == Extension {
			return []string{path}
		}
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read plugin search path", "path", path, "error", err)
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && filepath.Ext(entry.Name()) == Extension {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files
}

func (s *Source) probe(ctx context.Context, file string) (string, []byte, error) {
	wasm, err := os.ReadFile(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	plugin, err := s.newPlugin(ctx, wasm)
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if err := plugin.Close(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to close probed manager plugin", "path", file, "error", err)
		}
	}()

	_, output, err := plugin.Call(exportIdentifier, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to call %s: %w", exportIdentifier, err)
	}
	if len(output) == 0 {
		return "", nil, fmt.Errorf("plugin reported an empty identifier")
	}
	return string(output), wasm, nil
}

func (s *Source) newPlugin(ctx context.Context, wasm []byte) (*extism.Plugin, error) {
	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmData{
				Data: wasm,
			},
		},
	}

	config := extism.PluginConfig{
		EnableWasi: true,
	}
	if s.runtimeConfig != nil {
		config.RuntimeConfig = s.runtimeConfig()
	}

	plugin, err := extism.NewPlugin(ctx, manifest, config, []extism.HostFunction{})
	if err != nil {
		return nil, fmt.Errorf("failed to create extism plugin: %w", err)
	}
	return plugin, nil
}
