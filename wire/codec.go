// Package wire converts between the RPC messages of api/v1 and native manager values.
// All conversions are pure.
package wire

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	v1 "ocm.software/open-component-model/managerproxy/api/v1"
	"ocm.software/open-component-model/managerproxy/manager"
)

// DecodeSettings converts a wire settings dictionary into its native form.
// Integral JSON numbers become int64, all other numbers float64.
// Any value that is not a primitive fails with manager.ErrInvalidSettings.
func DecodeSettings(settings v1.Settings) (manager.InfoDictionary, error) {
	dict := make(manager.InfoDictionary, len(settings))
	for key, value := range settings {
		native, err := decodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", manager.ErrInvalidSettings, key, err)
		}
		dict[key] = native
	}
	return dict, nil
}

func decodeValue(value any) (any, error) {
	switch v := value.(type) {
	case bool, string, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", v)
		}
		return f, nil
	case nil:
		return nil, fmt.Errorf("null is not a primitive value")
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}

// EncodeSettings converts a native dictionary into its wire form.
// Floats are encoded so that they decode as floats again, even if they are integral.
func EncodeSettings(dict manager.InfoDictionary) (v1.Settings, error) {
	settings := make(v1.Settings, len(dict))
	for key, value := range dict {
		switch v := value.(type) {
		case bool, string, int64:
			settings[key] = v
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: key %q: %v cannot be encoded", manager.ErrInvalidSettings, key, v)
			}
			settings[key] = encodeFloat(v)
		default:
			return nil, fmt.Errorf("%w: key %q: unsupported value of type %T", manager.ErrInvalidSettings, key, v)
		}
	}
	return settings, nil
}

func encodeFloat(f float64) json.Number {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

// DecodeHostSession creates the native host session for a request.
// Its logger is derived from logger.
func DecodeHostSession(session v1.HostSession, logger *slog.Logger) *manager.HostSession {
	return manager.NewHostSession(session.ID, logger)
}

// EncodeHostSession converts a native host session into its wire form.
func EncodeHostSession(session *manager.HostSession) v1.HostSession {
	if session == nil {
		return v1.HostSession{}
	}
	return v1.HostSession{ID: session.ID}
}
