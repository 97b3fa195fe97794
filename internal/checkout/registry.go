package checkout

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
)

type entry struct {
	identifier string
	priority   int
	seq        int
	step       Step
}

// Registry holds the ordered steps of one checkout. Steps sort by priority
// descending; equal priorities keep registration order.
type Registry struct {
	entries []entry
	seq     int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds step under identifier.
func (r *Registry) Register(identifier string, priority int, step Step) error {
	if step == nil {
		return apperrors.InvalidStep(fmt.Sprintf("step %q is nil", identifier))
	}
	if identifier == "" || step.Identifier() != identifier {
		return apperrors.InvalidStep(fmt.Sprintf("step registered as %q identifies itself as %q", identifier, step.Identifier()))
	}
	if step.Template() == "" {
		return apperrors.InvalidStep(fmt.Sprintf("step %q has no template", identifier))
	}
	if r.IndexOf(identifier) >= 0 {
		return apperrors.DuplicateStep(identifier)
	}

	r.seq++
	r.entries = append(r.entries, entry{identifier: identifier, priority: priority, seq: r.seq, step: step})
	slices.SortFunc(r.entries, func(a, b entry) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return nil
}

// Len returns the number of registered steps.
func (r *Registry) Len() int { return len(r.entries) }

// All returns the steps in order.
func (r *Registry) All() []Step {
	steps := make([]Step, len(r.entries))
	for i, e := range r.entries {
		steps[i] = e.step
	}
	return steps
}

// Identifiers returns the step identifiers in order.
func (r *Registry) Identifiers() []string {
	ids := make([]string, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.identifier
	}
	return ids
}

// IndexOf returns the position of identifier, or -1.
func (r *Registry) IndexOf(identifier string) int {
	return slices.IndexFunc(r.entries, func(e entry) bool { return e.identifier == identifier })
}

// Get returns the step registered under identifier.
func (r *Registry) Get(identifier string) (Step, error) {
	i := r.IndexOf(identifier)
	if i < 0 {
		return nil, apperrors.StepNotFound(identifier)
	}
	return r.entries[i].step, nil
}

// First returns the first step, or nil for an empty registry.
func (r *Registry) First() Step {
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[0].step
}

// HasNext reports whether a step follows identifier.
func (r *Registry) HasNext(identifier string) bool {
	i := r.IndexOf(identifier)
	return i >= 0 && i < len(r.entries)-1
}

// HasPrevious reports whether a step precedes identifier.
func (r *Registry) HasPrevious(identifier string) bool {
	return r.IndexOf(identifier) > 0
}

// Next returns the step after identifier.
func (r *Registry) Next(identifier string) (Step, error) {
	if !r.HasNext(identifier) {
		return nil, apperrors.StepNotFound("next of " + identifier)
	}
	return r.entries[r.IndexOf(identifier)+1].step, nil
}

// Previous returns the step before identifier.
func (r *Registry) Previous(identifier string) (Step, error) {
	if !r.HasPrevious(identifier) {
		return nil, apperrors.StepNotFound("previous of " + identifier)
	}
	return r.entries[r.IndexOf(identifier)-1].step, nil
}

// AllPrevious returns every step before identifier, nearest first. An unknown
// identifier has no predecessors.
func (r *Registry) AllPrevious(identifier string) []Step {
	i := r.IndexOf(identifier)
	if i <= 0 {
		return nil
	}
	prev := make([]Step, 0, i)
	for j := i - 1; j >= 0; j-- {
		prev = append(prev, r.entries[j].step)
	}
	return prev
}
