package filter

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "ocm.software/open-component-model/managerproxy/log/config/v1"
)

type record struct {
	level slog.Level
	realm string
	msg   string
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []string
		records []record
		kept    []string
		dropped []string
	}{
		{
			name:    "backend=WARN drops info of the backend realm",
			filters: []string{"backend=WARN"},
			records: []record{
				{slog.LevelInfo, "backend", "backend info"},
				{slog.LevelWarn, "backend", "backend warn"},
				{slog.LevelInfo, "service", "service info"},
			},
			kept:    []string{"backend warn", "service info"},
			dropped: []string{"backend info"},
		},
		{
			name:    "multiple realms",
			filters: []string{"backend=WARN", "plugin=ERROR"},
			records: []record{
				{slog.LevelWarn, "plugin", "plugin warn"},
				{slog.LevelError, "plugin", "plugin error"},
				{slog.LevelDebug, "backend", "backend debug"},
				{slog.LevelDebug, "", "no realm debug"},
			},
			kept:    []string{"plugin error", "no realm debug"},
			dropped: []string{"plugin warn", "backend debug"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			filters, err := KeyFiltersFromStrings(tt.filters...)
			require.NoError(t, err)
			logger := slog.New(New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), LoggingKeyRealm, filters))

			for _, rec := range tt.records {
				if rec.realm == "" {
					logger.Log(context.Background(), rec.level, rec.msg)
					continue
				}
				logger.Log(context.Background(), rec.level, rec.msg, LoggingKeyRealm, rec.realm)
			}
			for _, msg := range tt.kept {
				assert.Contains(t, buf.String(), msg)
			}
			for _, msg := range tt.dropped {
				assert.NotContains(t, buf.String(), msg)
			}
		})
	}
}

func TestFilterWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	filters, err := KeyFiltersFromStrings("hostsession=ERROR")
	require.NoError(t, err)
	base := slog.New(New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), LoggingKeyRealm, filters))

	logger := base.With(LoggingKeyRealm, "hostsession").WithGroup("call")
	logger.Info("session info")
	logger.Error("session error")
	base.Info("unrelated info")

	assert.NotContains(t, buf.String(), "session info")
	assert.Contains(t, buf.String(), "session error")
	assert.Contains(t, buf.String(), "unrelated info")
}

func TestKeyFiltersFromStringsErrors(t *testing.T) {
	_, err := KeyFiltersFromStrings("backend")
	require.Error(t, err)
	_, err = KeyFiltersFromStrings("backend=loud")
	require.Error(t, err)
	_, err = KeyFiltersFromStrings("=warn")
	require.Error(t, err)
}

func TestRealmFiltersFromConfig(t *testing.T) {
	r := require.New(t)
	filters, err := RealmFiltersFromConfig(&v1.Config{Settings: v1.Settings{Rules: []v1.Rule{
		{Level: "warn", Conditions: []v1.Condition{{Realm: "backend"}, {Realm: "plugin"}}},
	}}})
	r.NoError(err)
	r.Equal(map[string]slog.Level{"backend": slog.LevelWarn, "plugin": slog.LevelWarn}, filters)

	_, err = RealmFiltersFromConfig(&v1.Config{Settings: v1.Settings{Rules: []v1.Rule{
		{Level: "warn", Conditions: []v1.Condition{{}}},
	}}})
	r.Error(err)

	filters, err = RealmFiltersFromConfig(nil)
	r.NoError(err)
	r.Empty(filters)
}
