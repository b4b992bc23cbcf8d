// Package policy implements swappable training-time transforms. A
// policy either rewrites batches on their way into the model or
// performs one-time surgery on the model's structure. The session
// runner applies batch policies in the exact order they were declared.
package policy

import (
	"fmt"
	"math/rand"

	"trainforge/internal/data"
	"trainforge/internal/model"
)

// Scope states what a policy transforms.
type Scope int

const (
	// PerSample policies transform each sample of a batch independently.
	PerSample Scope = iota
	// PerBatch policies transform the batch as a whole, e.g. changing
	// its spatial shape.
	PerBatch
	// Structural policies modify the model once at session start.
	Structural
)

func (s Scope) String() string {
	switch s {
	case PerSample:
		return "per-sample"
	case PerBatch:
		return "per-batch"
	case Structural:
		return "structural"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// StepContext carries the progress state policies may condition on.
type StepContext struct {
	Epoch    int
	Progress float64
	// RNG is the session-scoped randomness source. Policies draw from
	// it instead of touching process-global state so sessions stay
	// independently reproducible.
	RNG *rand.Rand
}

// Policy is the common surface of every transform.
type Policy interface {
	Name() string
	Scope() Scope
	// TrainingOnly policies are skipped during evaluation passes.
	TrainingOnly() bool
}

// BatchPolicy transforms batches in place.
type BatchPolicy interface {
	Policy
	Apply(ctx StepContext, b *data.Batch) error
}

// StructuralPolicy modifies the model once, before the batch loop.
// Attach must be idempotent: reattaching to an already-modified model
// is a no-op, never a double modification.
type StructuralPolicy interface {
	Policy
	// Target names the model surface the policy replaces. Two enabled
	// structural policies sharing a target conflict.
	Target() string
	Attach(m model.Model) error
}

// Set is an ordered collection of policies. Order is significant and
// preserved: the runner applies batch policies first-to-last, so
// [A, B] produces B(A(batch)). Sets are never sorted or deduplicated.
type Set []Policy

// Validate checks every member is usable and that no two structural
// policies claim the same surgery target.
func (s Set) Validate() error {
	targets := make(map[string]string)
	for i, p := range s {
		if p == nil {
			return fmt.Errorf("policy: set entry %d is nil", i)
		}
		switch q := p.(type) {
		case StructuralPolicy:
			if prev, ok := targets[q.Target()]; ok {
				return fmt.Errorf("policy: %q and %q both modify %q", prev, q.Name(), q.Target())
			}
			targets[q.Target()] = q.Name()
		case BatchPolicy:
		default:
			return fmt.Errorf("policy: %q implements neither batch nor structural contract", p.Name())
		}
	}
	return nil
}

// BatchPolicies returns the batch-transforming members in declared
// order.
func (s Set) BatchPolicies() []BatchPolicy {
	var out []BatchPolicy
	for _, p := range s {
		if bp, ok := p.(BatchPolicy); ok {
			out = append(out, bp)
		}
	}
	return out
}

// StructuralPolicies returns the model-modifying members in declared
// order.
func (s Set) StructuralPolicies() []StructuralPolicy {
	var out []StructuralPolicy
	for _, p := range s {
		if sp, ok := p.(StructuralPolicy); ok {
			out = append(out, sp)
		}
	}
	return out
}

// Names lists member names in declared order.
func (s Set) Names() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name()
	}
	return out
}
