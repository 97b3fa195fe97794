// Package checkout drives a booking request through an ordered pipeline of
// checkout steps.
package checkout

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// Step is one stage of a checkout pipeline. Steps are instantiated per
// request by the Factory, so implementations may keep request state set up
// in Initialize.
type Step interface {
	Identifier() string
	Template() string
	// Initialize runs before Commit and Prepare. An error is fatal.
	Initialize(ctx context.Context, co *Checkout) error
	// AutoForward reports whether a valid step should be skipped.
	AutoForward(ctx context.Context, co *Checkout) (bool, error)
	// Commit handles a submission. It returns true when the checkout may
	// advance.
	Commit(ctx context.Context, co *Checkout) (bool, error)
	// Prepare returns the data rendered for this step. An error is fatal.
	Prepare(ctx context.Context, co *Checkout) (map[string]any, error)
}

// Validator is implemented by steps whose completion can be checked. A step
// without it never blocks its successors.
type Validator interface {
	Validate(ctx context.Context, co *Checkout) (bool, error)
}

// Optional is implemented by steps that are only part of the pipeline for
// some events.
type Optional interface {
	IsRequired(event *model.EventConfig, req *Request) bool
}

// Redirector is implemented by steps that decide where to go after a
// successful commit. The last step of every pipeline must implement it.
type Redirector interface {
	Response(ctx context.Context, co *Checkout) (*Response, error)
}

// Checkout is the per-request state shared by the orchestrator, its hooks and
// the steps.
type Checkout struct {
	Event    *model.EventConfig
	Request  *Request
	Messages []Message
}

// AddMessage queues a message for the rendered step.
func (c *Checkout) AddMessage(kind MessageType, text string) {
	c.Messages = append(c.Messages, Message{Type: kind, Text: text})
}

// MessageType classifies a user-facing message.
type MessageType string

const (
	MessageInfo         MessageType = "info"
	MessageError        MessageType = "error"
	MessageConfirmation MessageType = "confirmation"
)

// Message is shown to the booker next to the rendered step.
type Message struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}
