package v1_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "ocm.software/open-component-model/managerproxy/configuration/v1"
)

const genericConfig = `
type: generic.config.ocm.software/v1
configurations:
- type: managerproxy.config.ocm.software/v1alpha1
  address: 127.0.0.1:6000
  pluginPaths:
  - /opt/plugins
  shutdownTimeout: 30s
- type: managerproxy.config.ocm.software
  maxInstances: 10
  pluginPaths:
  - /usr/local/plugins
- type: logging.config.ocm.software/v1
  settings:
    defaultLevel: debug
`

func TestLoadGeneric(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	r.NoError(os.WriteFile(path, []byte(genericConfig), 0o600))

	doc, err := v1.Load(path)
	r.NoError(err)
	r.Len(doc.Configurations, 3)
	r.Len(doc.Filter("logging.config.ocm.software", "v1"), 1)

	cfg, err := v1.Lookup(doc)
	r.NoError(err)
	r.Equal("127.0.0.1:6000", cfg.Address)
	r.Equal([]string{"/opt/plugins", "/usr/local/plugins"}, cfg.PluginPaths)
	r.Equal(10, cfg.MaxInstances)
	r.Equal(30*time.Second, cfg.ShutdownTimeout.Get(0))
}

func TestParseSingleDocument(t *testing.T) {
	r := require.New(t)
	doc, err := v1.Parse([]byte(`{"type":"managerproxy.config.ocm.software/v1alpha1","strictDestroy":true,"shutdownTimeout":1000}`))
	r.NoError(err)

	cfg, err := v1.Lookup(doc)
	r.NoError(err)
	r.True(cfg.StrictDestroy)
	r.Equal(time.Microsecond, cfg.ShutdownTimeout.Get(0))
}

func TestDefaults(t *testing.T) {
	r := require.New(t)
	cfg, err := v1.Lookup(&v1.Document{})
	r.NoError(err)
	cfg.Default()
	r.Equal(v1.DefaultAddress, cfg.Address)
	r.Equal(v1.DefaultShutdownTimeout, cfg.ShutdownTimeout.Get(0))
	r.Equal(v1.DefaultBackendQueueSize, cfg.BackendQueueSize)
	r.Empty(cfg.MetricsAddress)
}

func TestValidation(t *testing.T) {
	tests := map[string]string{
		"unknown field":     `{"type":"managerproxy.config.ocm.software/v1alpha1","adress":"x"}`,
		"negative limit":    `{"type":"managerproxy.config.ocm.software/v1alpha1","maxInstances":-1}`,
		"bad duration":      `{"type":"managerproxy.config.ocm.software/v1alpha1","shutdownTimeout":"soon"}`,
		"wrong field type":  `{"type":"managerproxy.config.ocm.software/v1alpha1","pluginPaths":"/opt"}`,
		"nested wrong type": "type: generic.config.ocm.software/v1\nconfigurations:\n- type: managerproxy.config.ocm.software\n  strictDestroy: maybe\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			doc, err := v1.Parse([]byte(data))
			require.NoError(t, err)
			_, err = v1.Lookup(doc)
			require.Error(t, err)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := v1.Parse([]byte(`{"address":"x"}`))
	require.ErrorContains(t, err, "no type")

	_, err = v1.Parse([]byte("type: generic.config.ocm.software/v1\nconfigurations:\n- address: x\n"))
	require.ErrorContains(t, err, "entry 0 has no type")

	_, err = v1.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMatchesType(t *testing.T) {
	require.True(t, v1.MatchesType("a.b", "a.b", "v1"))
	require.True(t, v1.MatchesType("a.b/v1", "a.b", "v1"))
	require.False(t, v1.MatchesType("a.b/v2", "a.b", "v1"))
	require.False(t, v1.MatchesType("a.c/v1", "a.b", "v1"))
}

func TestSchema(t *testing.T) {
	schema, err := v1.Schema()
	require.NoError(t, err)
	require.Contains(t, string(schema), "shutdownTimeout")
}
