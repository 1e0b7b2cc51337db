package wasm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	extism "github.com/extism/go-sdk"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/manager"
	"ocm.software/open-component-model/managerproxy/wire"
)

const (
	exportIdentifier  = "identifier"
	exportDisplayName = "display_name"
	exportInfo        = "info"
	exportSettings    = "settings"
	exportInitialize  = "initialize"
)

type initializeInput struct {
	Settings    v1.Settings    `json:"settings"`
	HostSession v1.HostSession `json:"hostSession"`
}

type settingsInput struct {
	HostSession v1.HostSession `json:"hostSession"`
}

// Manager is a manager instance backed by an Extism plugin.
type Manager struct {
	plugin *extism.Plugin
	path   string
	// logger receives the log output of the guest, it follows the latest host session.
	logger *slog.Logger
}

var (
	_ manager.Manager = (*Manager)(nil)
	_ manager.Closer  = (*Manager)(nil)
)

func newManager(plugin *extism.Plugin, path string, logger *slog.Logger) *Manager {
	m := &Manager{
		plugin: plugin,
		path:   path,
		logger: logger.With(slog.String("plugin", path)),
	}
	plugin.SetLogger(m.log)
	return m
}

func (m *Manager) log(level extism.LogLevel, msg string) {
	var l slog.Level
	switch level {
	case extism.LogLevelInfo:
		l = slog.LevelInfo
	case extism.LogLevelWarn:
		l = slog.LevelWarn
	case extism.LogLevelError:
		l = slog.LevelError
	default:
		l = slog.LevelDebug
	}
	m.logger.Log(context.Background(), l, msg)
}

func (m *Manager) call(name string, input []byte) ([]byte, error) {
	_, output, err := m.plugin.Call(name, input)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %s: %s failed: %w", manager.ErrBackendFault, m.path, name, err)
	}
	return output, nil
}

func (m *Manager) Identifier(context.Context) (string, error) {
	output, err := m.call(exportIdentifier, nil)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func (m *Manager) DisplayName(context.Context) (string, error) {
	output, err := m.call(exportDisplayName, nil)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func (m *Manager) Info(context.Context) (manager.InfoDictionary, error) {
	if !m.plugin.FunctionExists(exportInfo) {
		return manager.InfoDictionary{}, nil
	}
	output, err := m.call(exportInfo, nil)
	if err != nil {
		return nil, err
	}
	return m.decodeDictionary(exportInfo, output)
}

func (m *Manager) Settings(_ context.Context, session *manager.HostSession) (manager.InfoDictionary, error) {
	if !m.plugin.FunctionExists(exportSettings) {
		return manager.InfoDictionary{}, nil
	}
	m.follow(session)
	input, err := json.Marshal(settingsInput{HostSession: wire.EncodeHostSession(session)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s input: %w", exportSettings, err)
	}
	output, err := m.call(exportSettings, input)
	if err != nil {
		return nil, err
	}
	return m.decodeDictionary(exportSettings, output)
}

func (m *Manager) Initialize(_ context.Context, settings manager.InfoDictionary, session *manager.HostSession) error {
	encoded, err := wire.EncodeSettings(settings)
	if err != nil {
		return err
	}
	m.follow(session)
	input, err := json.Marshal(initializeInput{
		Settings:    encoded,
		HostSession: wire.EncodeHostSession(session),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s input: %w", exportInitialize, err)
	}
	_, err = m.call(exportInitialize, input)
	return err
}

// Close releases the plugin instance.
func (m *Manager) Close(ctx context.Context) error {
	if err := m.plugin.Close(ctx); err != nil {
		return fmt.Errorf("failed to close plugin %s: %w", m.path, err)
	}
	return nil
}

func (m *Manager) follow(session *manager.HostSession) {
	if session != nil && session.Logger != nil {
		m.logger = session.Logger.With(slog.String("plugin", m.path))
	}
}

func (m *Manager) decodeDictionary(export string, output []byte) (manager.InfoDictionary, error) {
	if len(output) == 0 {
		return manager.InfoDictionary{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(output))
	dec.UseNumber()
	var settings v1.Settings
	if err := dec.Decode(&settings); err != nil {
		return nil, fmt.Errorf("%w: plugin %s: invalid %s output: %w", manager.ErrBackendFault, m.path, export, err)
	}
	dict, err := wire.DecodeSettings(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %s: %w", manager.ErrBackendFault, m.path, err)
	}
	return dict, nil
}
