package ledger

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// CanAdmit decides whether numSeats more seats may be booked for the event.
//
// The order of checks is fixed: booking form and window, cart item limit,
// hard capacity, then the waiting list. Capacity comparisons are inclusive,
// so a request that exactly fills the last seat is admitted. Pending
// checkouts count toward both capacities.
func (l *Ledger) CanAdmit(ctx context.Context, event *model.EventConfig, cart *model.Cart, numSeats int) (model.Admission, error) {
	return l.CanAdmitItems(ctx, event, cart, 1, numSeats)
}

// CanAdmitItems is CanAdmit for a batch of numItems line items holding
// numSeats seats in total. The whole batch must fit the cart item limit.
func (l *Ledger) CanAdmitItems(ctx context.Context, event *model.EventConfig, cart *model.Cart, numItems, numSeats int) (model.Admission, error) {
	status, err := l.status(ctx, event, cart, numItems, numSeats)
	if err != nil {
		return model.Admission{}, err
	}
	for _, hook := range l.hooks {
		status = hook(ctx, event, numSeats, status)
	}
	return model.Admission{Decision: decisionFor(status), Status: status}, nil
}

// Status reports the booking status of the event for a request of numSeats.
func (l *Ledger) Status(ctx context.Context, event *model.EventConfig, numSeats int) (model.EventStatus, error) {
	a, err := l.CanAdmit(ctx, event, nil, numSeats)
	if err != nil {
		return "", err
	}
	return a.Status, nil
}

func (l *Ledger) status(ctx context.Context, event *model.EventConfig, cart *model.Cart, numItems, numSeats int) (model.EventStatus, error) {
	if event == nil || !event.Bookable {
		return model.StatusNotBookable, nil
	}

	now := l.clock.Now()
	if !event.BookingStartDate.IsZero() && event.BookingStartDate.After(now) {
		return model.StatusNotYetPossible, nil
	}
	if event.BookingEndDate.IsZero() || event.BookingEndDate.Before(now) {
		return model.StatusNoLongerPossible, nil
	}

	if !cartHasRoom(event, cart, numItems) {
		return model.StatusCartFull, nil
	}

	ok, err := l.fitsCapacity(ctx, event, numSeats)
	if err != nil {
		return "", err
	}
	if ok {
		return model.StatusBookingPossible, nil
	}

	ok, err = l.fitsWaitingList(ctx, event, numSeats)
	if err != nil {
		return "", err
	}
	if ok {
		return model.StatusWaitingList, nil
	}
	return model.StatusFullyBooked, nil
}

func (l *Ledger) fitsCapacity(ctx context.Context, event *model.EventConfig, numSeats int) (bool, error) {
	states, err := totalStates(event)
	if err != nil {
		return false, err
	}
	if event.BookingMax == 0 {
		return true, nil
	}
	total, err := l.CountByState(ctx, event.ID, states, false)
	if err != nil {
		return false, err
	}
	return total+numSeats <= event.BookingMax, nil
}

func (l *Ledger) fitsWaitingList(ctx context.Context, event *model.EventConfig, numSeats int) (bool, error) {
	if !event.HasWaitingList() {
		return false, nil
	}
	limit := event.WaitingListLimit()
	if limit == 0 {
		return true, nil
	}
	total, err := l.WaitingListCount(ctx, event, false)
	if err != nil {
		return false, err
	}
	return total+numSeats <= limit, nil
}

// cartHasRoom: no cart or limit 0 means unlimited.
func cartHasRoom(event *model.EventConfig, cart *model.Cart, numItems int) bool {
	if cart == nil || event.MaxItemsPerCart == 0 {
		return true
	}
	return len(cart.Items)+max(numItems, 1) <= event.MaxItemsPerCart
}

func decisionFor(status model.EventStatus) model.Decision {
	switch status {
	case model.StatusBookingPossible:
		return model.Admit
	case model.StatusWaitingList:
		return model.AdmitToWaitingList
	default:
		return model.Reject
	}
}

// Availability collects the reporting view of the event.
func (l *Ledger) Availability(ctx context.Context, event *model.EventConfig) (*model.Availability, error) {
	total, err := l.RegistrationTotal(ctx, event, true)
	if err != nil {
		return nil, err
	}
	free, err := l.FreeSeats(ctx, event)
	if err != nil {
		return nil, err
	}
	full, err := l.IsFullyBooked(ctx, event)
	if err != nil {
		return nil, err
	}
	wlCount, err := l.WaitingListCount(ctx, event, true)
	if err != nil {
		return nil, err
	}
	wlFull, err := l.IsWaitingListFull(ctx, event)
	if err != nil {
		return nil, err
	}
	status, err := l.Status(ctx, event, 1)
	if err != nil {
		return nil, err
	}
	return &model.Availability{
		EventID:           event.ID,
		BookingMax:        event.BookingMax,
		RegistrationTotal: total,
		FreeSeats:         free,
		Unlimited:         event.BookingMax == 0,
		FullyBooked:       full,
		WaitingListCount:  wlCount,
		WaitingListLimit:  event.WaitingListLimit(),
		WaitingListFull:   wlFull,
		Status:            status,
	}, nil
}
