package policy

import (
	"fmt"
	"sort"
)

// Params is the raw key/value configuration of one policy instance.
type Params map[string]any

// Builder constructs a policy from validated params.
type Builder func(p Params) (Policy, error)

var registry = map[string]Builder{}

// Register adds a builder under name. Registering a duplicate name
// panics; it is a programming error.
func Register(name string, b Builder) {
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("policy: %q already registered", name))
	}
	registry[name] = b
}

// Build constructs the named policy. Unknown names and unknown or
// ill-typed parameter keys are rejected.
func Build(name string, p Params) (Policy, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("policy: unknown policy %q (known: %v)", name, Known())
	}
	pol, err := b(p)
	if err != nil {
		return nil, fmt.Errorf("policy %q: %w", name, err)
	}
	return pol, nil
}

// Known lists registered policy names, sorted.
func Known() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// args wraps Params with consumed-key tracking so builders can reject
// keys they never read.
type args struct {
	raw  Params
	seen map[string]bool
	err  error
}

func newArgs(p Params) *args {
	return &args{raw: p, seen: make(map[string]bool)}
}

func (a *args) Float(key string, def float64) float64 {
	a.seen[key] = true
	v, ok := a.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		a.fail(fmt.Errorf("parameter %q: want number, got %T", key, v))
		return def
	}
}

func (a *args) Int(key string, def int) int {
	a.seen[key] = true
	v, ok := a.raw[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		if t == float64(int(t)) {
			return int(t)
		}
		a.fail(fmt.Errorf("parameter %q: want integer, got %v", key, t))
		return def
	default:
		a.fail(fmt.Errorf("parameter %q: want integer, got %T", key, v))
		return def
	}
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

// Err returns the first parse failure, or an unknown-key error if the
// raw params carried keys no accessor consumed.
func (a *args) Err() error {
	if a.err != nil {
		return a.err
	}
	var unknown []string
	for k := range a.raw {
		if !a.seen[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown parameters %v", unknown)
	}
	return nil
}
