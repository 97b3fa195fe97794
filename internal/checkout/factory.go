package checkout

import (
	"sort"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// DefaultType is the checkout type served when none is configured.
const DefaultType = "default"

// Definition describes one step of a pipeline. New must return a fresh step
// on every call.
type Definition struct {
	Priority int
	New      func() Step
}

// Factory builds per-request registries from the pipelines defined at
// startup.
type Factory struct {
	pipelines map[string][]Definition
}

// NewFactory creates a factory with no pipelines.
func NewFactory() *Factory {
	return &Factory{pipelines: make(map[string][]Definition)}
}

// Define registers the pipeline for checkoutType. The pipeline is built once
// with every step so that duplicate or malformed steps fail at startup.
func (f *Factory) Define(checkoutType string, defs ...Definition) error {
	if checkoutType == "" {
		return apperrors.Configuration("checkout type must not be empty")
	}
	if len(defs) == 0 {
		return apperrors.Configuration("checkout type %q has no steps", checkoutType)
	}
	reg := NewRegistry()
	for _, def := range defs {
		if def.New == nil {
			return apperrors.InvalidStep("definition without constructor in checkout type " + checkoutType)
		}
		step := def.New()
		if step == nil {
			return apperrors.InvalidStep("nil step in checkout type " + checkoutType)
		}
		if err := reg.Register(step.Identifier(), def.Priority, step); err != nil {
			return err
		}
	}
	f.pipelines[checkoutType] = defs
	return nil
}

// Types returns the defined checkout types, sorted.
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.pipelines))
	for t := range f.pipelines {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds the registry for one request. Optional steps not required
// for this event and request are left out.
func (f *Factory) Create(checkoutType string, event *model.EventConfig, req *Request) (*Registry, error) {
	defs, ok := f.pipelines[checkoutType]
	if !ok {
		return nil, apperrors.Configuration("unknown checkout type %q", checkoutType)
	}
	reg := NewRegistry()
	for _, def := range defs {
		step := def.New()
		if opt, ok := step.(Optional); ok && !opt.IsRequired(event, req) {
			continue
		}
		if err := reg.Register(step.Identifier(), def.Priority, step); err != nil {
			return nil, err
		}
	}
	if reg.Len() == 0 {
		return nil, apperrors.Configuration("checkout type %q has no required steps for event %s", checkoutType, event.ID)
	}
	return reg, nil
}
