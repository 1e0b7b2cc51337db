package identifiers_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"ocm.software/open-component-model/managerproxy/builtin/memory"
	"ocm.software/open-component-model/managerproxy/cmd/identifiers"
	configv1 "ocm.software/open-component-model/managerproxy/configuration/v1"
	"ocm.software/open-component-model/managerproxy/internal/testserver"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := identifiers.New()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestListIdentifiers(t *testing.T) {
	srv := testserver.Start(t, nil)
	addr := srv.Addr().String()

	t.Run("table", func(t *testing.T) {
		r := require.New(t)
		out, err := run(t, "--address", addr)
		r.NoError(err)
		r.Contains(out, "IDENTIFIER")
		r.Contains(out, memory.Identifier)
		r.NotContains(out, memory.DefaultDisplayName)
	})

	t.Run("wide", func(t *testing.T) {
		r := require.New(t)
		out, err := run(t, "--address", addr, "-o", "wide")
		r.NoError(err)
		r.Contains(out, "DISPLAY NAME")
		r.Contains(out, memory.DefaultDisplayName)
	})

	t.Run("json", func(t *testing.T) {
		r := require.New(t)
		out, err := run(t, "--address", addr, "-o", "json")
		r.NoError(err)
		var impls []identifiers.Implementation
		r.NoError(json.Unmarshal([]byte(out), &impls))
		r.Equal([]identifiers.Implementation{{Identifier: memory.Identifier}}, impls)
	})

	t.Run("yaml", func(t *testing.T) {
		r := require.New(t)
		out, err := run(t, "--address", addr, "-o", "yaml")
		r.NoError(err)
		r.Equal("- identifier: "+memory.Identifier+"\n", out)
	})
}

func TestListIdentifiersEmpty(t *testing.T) {
	r := require.New(t)
	srv := testserver.Start(t, &configv1.Config{DisableBuiltin: true})
	out, err := run(t, "--address", srv.Addr().String(), "-o", "json")
	r.NoError(err)
	r.JSONEq("[]", out)
}

func TestListIdentifiersInvalidOutput(t *testing.T) {
	_, err := run(t, "-o", "xml")
	require.Error(t, err)
}
