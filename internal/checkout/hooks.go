package checkout

import (
	"context"
)

// ResolveStepHook may replace the requested step (nil when the request named
// none or an unknown one) or answer the request itself with a response.
type ResolveStepHook func(ctx context.Context, co *Checkout, step Step) (Step, *Response, error)

// BeforeRenderHook inspects the data of a step about to be rendered. A
// non-nil Interruption stops rendering.
type BeforeRenderHook func(ctx context.Context, co *Checkout, step Step, data map[string]any) (*Interruption, error)

// Interruption stops a render. Message is flashed to the next page; without
// a Response the booker is sent to the first step.
type Interruption struct {
	Message  Message
	Response *Response
}

// Hooks are the ordered extension points of the orchestrator.
type Hooks struct {
	ResolveStep  []ResolveStepHook
	BeforeRender []BeforeRenderHook
}
