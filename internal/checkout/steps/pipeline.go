package steps

import "github.com/Shivanand-hulikatti/event-checkout/internal/checkout"

// Step priorities of the default pipeline; higher runs earlier.
const (
	SubscriptionPriority = 20
	FinalisationPriority = 10
)

// DefaultPipeline returns the subscription and finalisation steps.
func DefaultPipeline(sub SubscriptionConfig, fin FinalisationConfig) []checkout.Definition {
	return []checkout.Definition{
		{Priority: FinalisationPriority, New: func() checkout.Step { return NewFinalisation(fin) }},
		{Priority: SubscriptionPriority, New: func() checkout.Step { return NewSubscription(sub) }},
	}
}
