package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingKey indicates a required parameter is absent from the source.
	ErrMissingKey = errors.New("config: missing parameter")

	// ErrWrongType indicates a parameter exists but has the wrong kind of value.
	ErrWrongType = errors.New("config: parameter has wrong type")
)

// Source is a flat parameter store addressed by slash-separated keys such as
// "/uav/vtol_params/mass".
type Source interface {
	Float(key string) (float64, error)
	Floats(key string) ([]float64, error)
	Bool(key string) (bool, error)
	String(key string) (string, error)
}

// MapSource is an in-memory Source.
type MapSource map[string]any

func (m MapSource) lookup(key string) (any, error) {
	v, ok := m[normalizeKey(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

func (m MapSource) Float(key string) (float64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
	return f, nil
}

func (m MapSource) Floats(key string) ([]float64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	switch vv := v.(type) {
	case []float64:
		return append([]float64(nil), vv...), nil
	case []any:
		out := make([]float64, 0, len(vv))
		if err := flattenNumbers(vv, &out); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrWrongType, key, err)
		}
		return out, nil
	default:
		if f, ok := toFloat(v); ok {
			return []float64{f}, nil
		}
		return nil, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
}

func (m MapSource) Bool(key string) (bool, error) {
	v, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
	return b, nil
}

func (m MapSource) String(key string) (string, error) {
	v, err := m.lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
	return s, nil
}

// Keys lists every parameter key in sorted order.
func (m MapSource) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies every key of other into m, overwriting duplicates.
func (m MapSource) Merge(other MapSource) {
	for k, v := range other {
		m[k] = v
	}
}

// LoadFile reads a YAML parameter file. Nested maps become slash-separated
// keys; nested sequences of numbers are flattened row-major.
func LoadFile(path string) (MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (MapSource, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	out := make(MapSource)
	flatten("", root, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out MapSource) {
	for k, v := range node {
		key := prefix + "/" + k
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

func flattenNumbers(in []any, out *[]float64) error {
	for _, v := range in {
		if nested, ok := v.([]any); ok {
			if err := flattenNumbers(nested, out); err != nil {
				return err
			}
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("element %v is %T", v, v)
		}
		*out = append(*out, f)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func normalizeKey(key string) string {
	if !strings.HasPrefix(key, "/") {
		return "/" + key
	}
	return key
}
