package model

import "fmt"

// BookingState is the lifecycle state of a registration.
type BookingState string

const (
	StateUndefined         BookingState = "undefined"
	StateNotConfirmed      BookingState = "not_confirmed"
	StateWaitingForPayment BookingState = "waiting_for_payment"
	StateConfirmed         BookingState = "confirmed"
	StateWaitingList       BookingState = "waiting_list"
	StateRejected          BookingState = "rejected"
	StateUnsubscribed      BookingState = "unsubscribed"
)

// AllBookingStates lists every booking state in declaration order.
var AllBookingStates = []BookingState{
	StateUndefined,
	StateNotConfirmed,
	StateWaitingForPayment,
	StateConfirmed,
	StateWaitingList,
	StateRejected,
	StateUnsubscribed,
}

// transitions is the strict transition graph. Undefined may move anywhere.
var transitions = map[BookingState][]BookingState{
	StateNotConfirmed:      {StateConfirmed, StateRejected, StateWaitingList, StateWaitingForPayment, StateUnsubscribed},
	StateWaitingForPayment: {StateConfirmed, StateRejected, StateUnsubscribed},
	StateWaitingList:       {StateNotConfirmed, StateConfirmed, StateRejected, StateUnsubscribed},
	StateConfirmed:         {StateUnsubscribed, StateRejected},
	StateRejected:          {},
	StateUnsubscribed:      {},
}

// Valid reports whether s is one of the known states.
func (s BookingState) Valid() bool {
	for _, known := range AllBookingStates {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the strict graph allows s -> next.
// Staying in the same state is always allowed.
func (s BookingState) CanTransitionTo(next BookingState) bool {
	if s == next || s == StateUndefined || s == "" {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseBookingState converts a raw string into a BookingState.
func ParseBookingState(raw string) (BookingState, error) {
	s := BookingState(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking state %q", raw)
	}
	return s, nil
}
