package manager

import (
	"fmt"
	"maps"
	"slices"
)

// InfoDictionary is a mapping of string keys to primitive values.
// Allowed value types are bool, int64, float64 and string.
type InfoDictionary map[string]any

// Validate reports an error wrapping ErrInvalidSettings for every value that is not a primitive.
func (d InfoDictionary) Validate() error {
	for _, key := range slices.Sorted(maps.Keys(d)) {
		switch d[key].(type) {
		case bool, int64, float64, string:
		default:
			return fmt.Errorf("%w: value of key %q has unsupported type %T", ErrInvalidSettings, key, d[key])
		}
	}
	return nil
}

// Clone returns a shallow copy of the dictionary. Values are primitives, so the copy is independent.
func (d InfoDictionary) Clone() InfoDictionary {
	if d == nil {
		return InfoDictionary{}
	}
	return maps.Clone(d)
}

// String returns the value stored for key if it is a string.
func (d InfoDictionary) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}
