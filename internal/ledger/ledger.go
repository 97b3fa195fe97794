// Package ledger answers seat and waiting-list questions for an event from
// the current registration counts.
//
// Two counts exist for every question. Reporting counts only registrations
// whose checkout completed. Admission also counts registrations still held
// by an open cart, so a seat in someone's checkout is not offered twice.
package ledger

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// AvailabilityHook may replace the computed status of an event. Hooks run
// in registration order; each sees the status returned by the previous one.
type AvailabilityHook func(ctx context.Context, event *model.EventConfig, numSeats int, status model.EventStatus) model.EventStatus

// Ledger computes counts and admission decisions.
type Ledger struct {
	regs  repository.RegistrationRepository
	clock clock.Clock
	hooks []AvailabilityHook
}

// New creates a Ledger reading from regs.
func New(regs repository.RegistrationRepository, clk clock.Clock, hooks ...AvailabilityHook) *Ledger {
	return &Ledger{regs: regs, clock: clk, hooks: hooks}
}

// WithRepository returns a copy of l reading from regs, typically the
// repository of an open transaction.
func (l *Ledger) WithRepository(regs repository.RegistrationRepository) *Ledger {
	cp := *l
	cp.regs = regs
	return &cp
}

// CountByState sums quantities over registrations of the event in states.
func (l *Ledger) CountByState(ctx context.Context, eventID string, states []model.BookingState, onlyCompleted bool) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}
	n, err := l.regs.SumQuantity(ctx, eventID, states, onlyCompleted)
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

// RegistrationTotal counts registrations in the calendar's capacity states.
func (l *Ledger) RegistrationTotal(ctx context.Context, event *model.EventConfig, onlyCompleted bool) (int, error) {
	states, err := totalStates(event)
	if err != nil {
		return 0, err
	}
	return l.CountByState(ctx, event.ID, states, onlyCompleted)
}

// FreeSeats is bookingMax minus completed registrations, never negative.
// An unlimited event (bookingMax 0) reports 0; callers must check
// BookingMax before treating that as full.
func (l *Ledger) FreeSeats(ctx context.Context, event *model.EventConfig) (int, error) {
	total, err := l.RegistrationTotal(ctx, event, true)
	if err != nil {
		return 0, err
	}
	return max(event.BookingMax-total, 0), nil
}

// WaitingListCount counts waiting-list seats. It is 0 when the waiting list
// is disabled or has no limit.
func (l *Ledger) WaitingListCount(ctx context.Context, event *model.EventConfig, onlyCompleted bool) (int, error) {
	if !event.HasWaitingList() || event.WaitingListLimit() == 0 {
		return 0, nil
	}
	return l.CountByState(ctx, event.ID, []model.BookingState{model.StateWaitingList}, onlyCompleted)
}

// FreeWaitingListSeats is the waiting-list limit minus its count, never negative.
func (l *Ledger) FreeWaitingListSeats(ctx context.Context, event *model.EventConfig) (int, error) {
	count, err := l.WaitingListCount(ctx, event, true)
	if err != nil {
		return 0, err
	}
	return max(event.WaitingListLimit()-count, 0), nil
}

// IsWaitingListFull reports whether no further waiting-list booking fits.
// A disabled waiting list, or an enabled one with limit 0, is full.
func (l *Ledger) IsWaitingListFull(ctx context.Context, event *model.EventConfig) (bool, error) {
	if !event.HasWaitingList() || event.WaitingListLimit() == 0 {
		return true, nil
	}
	count, err := l.WaitingListCount(ctx, event, true)
	if err != nil {
		return false, err
	}
	return count >= event.WaitingListLimit(), nil
}

// IsFullyBooked ignores the waiting list.
func (l *Ledger) IsFullyBooked(ctx context.Context, event *model.EventConfig) (bool, error) {
	total, err := l.RegistrationTotal(ctx, event, true)
	if err != nil {
		return false, err
	}
	return event.BookingMax > 0 && total >= event.BookingMax, nil
}

func totalStates(event *model.EventConfig) ([]model.BookingState, error) {
	if event == nil {
		return nil, apperrors.Configuration("event configuration is missing")
	}
	states, err := event.TotalStates()
	if err != nil {
		return nil, apperrors.Configuration("can not find a matching calendar for event %s", event.ID)
	}
	return states, nil
}
