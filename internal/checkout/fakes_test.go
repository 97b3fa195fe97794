package checkout

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

type fakeStep struct {
	id          string
	forward     bool
	commitOK    bool
	commitErr   error
	prepareErr  error
	prepareData map[string]any
	commits     int
	initialized bool
}

func newFake(id string) *fakeStep { return &fakeStep{id: id} }

func (s *fakeStep) Identifier() string { return s.id }
func (s *fakeStep) Template() string   { return "tpl_" + s.id }

func (s *fakeStep) Initialize(context.Context, *Checkout) error {
	s.initialized = true
	return nil
}

func (s *fakeStep) AutoForward(context.Context, *Checkout) (bool, error) { return s.forward, nil }

func (s *fakeStep) Commit(context.Context, *Checkout) (bool, error) {
	s.commits++
	return s.commitOK, s.commitErr
}

func (s *fakeStep) Prepare(context.Context, *Checkout) (map[string]any, error) {
	return s.prepareData, s.prepareErr
}

type validatingStep struct {
	*fakeStep
	valid bool
	calls int
}

func (s *validatingStep) Validate(context.Context, *Checkout) (bool, error) {
	s.calls++
	return s.valid, nil
}

type redirectingStep struct {
	*fakeStep
	target string
}

func (s *redirectingStep) Response(context.Context, *Checkout) (*Response, error) {
	return RedirectTo(s.target), nil
}

type optionalStep struct {
	*fakeStep
	required bool
}

func (s *optionalStep) IsRequired(*model.EventConfig, *Request) bool { return s.required }

// fixed returns a definition that always yields step.
func fixed(priority int, step Step) Definition {
	return Definition{Priority: priority, New: func() Step { return step }}
}
