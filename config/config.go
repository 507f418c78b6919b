// Package config loads the immutable, namespaced parameter set consumed by
// model constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/types"
)

var (
	// ErrConfig is the root of every configuration error.
	ErrConfig = errors.New("config error")
	// ErrKeyNotFound is returned when a mandatory key is absent.
	ErrKeyNotFound = fmt.Errorf("%w: key not found", ErrConfig)
)

// Configuration is an immutable set of parameters keyed by dotted name.
// Fields returned by Get and Lookup are shared and must not be modified.
type Configuration struct {
	params map[string]field.Field
}

// Empty returns a configuration with no entries.
func Empty() *Configuration {
	return &Configuration{params: map[string]field.Field{}}
}

// Load parses every path in order and merges the results. The format is
// chosen by extension: .hcl, .yaml and .yml have dedicated parsers and
// everything else is read as the line-oriented text format.
func Load(paths ...string) (*Configuration, error) {
	b := newBuilder()
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		var parsed *Configuration
		switch strings.ToLower(filepath.Ext(p)) {
		case ".hcl":
			parsed, err = ParseHCL(p, src)
		case ".yaml", ".yml":
			parsed, err = ParseYAML(p, src)
		default:
			parsed, err = Parse(p, strings.NewReader(string(src)))
		}
		if err != nil {
			return nil, err
		}
		if err := b.merge(p, parsed); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

// FromValues builds a configuration from Go values. Accepted value types are
// the types package scalars, vectors and matrices, plus int, []float64 of
// length 2 to 4 and [][]float64.
func FromValues(values map[string]any) (*Configuration, error) {
	b := newBuilder()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := b.set("values", k, values[k]); err != nil {
			return nil, err
		}
	}
	return b.build(), nil
}

// Get returns the entry for key, or nil if absent.
func (c *Configuration) Get(key string) field.Field {
	return c.params[key]
}

// Has reports whether key is present.
func (c *Configuration) Has(key string) bool {
	_, ok := c.params[key]
	return ok
}

// Lookup returns the entry for key or ErrKeyNotFound.
func (c *Configuration) Lookup(key string) (field.Field, error) {
	f, ok := c.params[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return f, nil
}

// Keys returns every key in lexical order.
func (c *Configuration) Keys() []string {
	keys := make([]string, 0, len(c.params))
	for k := range c.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Configuration) Len() int { return len(c.params) }

// Value returns the entry for key as a T. The stored type must be exactly T;
// an Integer is never returned as a Real.
func Value[T any](c *Configuration, key string) (T, error) {
	var zero T
	f, err := c.Lookup(key)
	if err != nil {
		return zero, err
	}
	v, err := field.Value[T](f)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return v, nil
}

// ValueOr is Value for optional keys: def is returned when key is absent.
func ValueOr[T any](c *Configuration, key string, def T) (T, error) {
	if !c.Has(key) {
		return def, nil
	}
	return Value[T](c, key)
}

type builder struct {
	params  map[string]field.Field
	sources map[string]string
}

func newBuilder() *builder {
	return &builder{
		params:  map[string]field.Field{},
		sources: map[string]string{},
	}
}

func (b *builder) add(source, key string, f field.Field) error {
	if prev, exists := b.sources[key]; exists {
		return fmt.Errorf("%w: %s: duplicate key %q (first defined in %s)", ErrConfig, source, key, prev)
	}
	b.params[key] = f
	b.sources[key] = source
	return nil
}

func (b *builder) set(source, key string, v any) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %s: invalid key %q", ErrConfig, source, key)
	}
	f, err := newParam(key, v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfig, source, err)
	}
	return b.add(source, key, f)
}

func (b *builder) merge(source string, c *Configuration) error {
	for _, k := range c.Keys() {
		if err := b.add(source, k, c.params[k]); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) build() *Configuration {
	return &Configuration{params: b.params}
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func newParam(key string, v any) (field.Field, error) {
	switch x := v.(type) {
	case types.Boolean:
		return field.NewParameter(key, x), nil
	case types.Integer:
		return field.NewParameter(key, x), nil
	case int:
		return field.NewParameter(key, types.Integer(x)), nil
	case types.Real:
		return field.NewParameter(key, x), nil
	case types.String:
		return field.NewParameter(key, x), nil
	case types.Vector2:
		return field.NewParameter(key, x), nil
	case types.Vector3:
		return field.NewParameter(key, x), nil
	case types.Vector4:
		return field.NewParameter(key, x), nil
	case []types.Real:
		return vectorParam(key, x)
	case types.Matrix:
		if x == nil {
			return nil, fmt.Errorf("%q: nil matrix", key)
		}
		return field.NewParameter(key, x), nil
	case [][]types.Real:
		m, err := types.NewMatrix(x)
		if err != nil {
			return nil, fmt.Errorf("%q: %v", key, err)
		}
		return field.NewParameter(key, m), nil
	}
	return nil, fmt.Errorf("%q: unsupported value type %T", key, v)
}

func vectorParam(key string, c []types.Real) (field.Field, error) {
	switch len(c) {
	case 2:
		return field.NewParameter(key, types.Vector2(c)), nil
	case 3:
		return field.NewParameter(key, types.Vector3(c)), nil
	case 4:
		return field.NewParameter(key, types.Vector4(c)), nil
	}
	return nil, fmt.Errorf("%q: vectors need 2 to 4 components, got %d", key, len(c))
}
