package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

type calendarRepo struct{ st *state }

func (r *calendarRepo) Create(_ context.Context, c *model.Calendar) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.d.calendars[c.ID] = copyCalendar(*c)
	return nil
}

func (r *calendarRepo) GetByID(_ context.Context, id string) (*model.Calendar, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	c, ok := r.st.d.calendars[id]
	if !ok {
		return nil, apperrors.NotFound("calendar", id)
	}
	c = copyCalendar(c)
	return &c, nil
}

type eventRepo struct{ st *state }

func (r *eventRepo) Create(_ context.Context, e *model.EventConfig) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored := copyEvent(*e)
	stored.Calendar = nil
	r.st.d.events[e.ID] = stored
	return nil
}

func (r *eventRepo) List(_ context.Context) ([]model.EventConfig, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	events := make([]model.EventConfig, 0, len(r.st.d.events))
	for _, e := range r.st.d.events {
		events = append(events, r.withCalendar(e))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (r *eventRepo) GetByID(_ context.Context, id string) (*model.EventConfig, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	e, ok := r.st.d.events[id]
	if !ok {
		return nil, apperrors.NotFound("event", id)
	}
	e = r.withCalendar(e)
	return &e, nil
}

// Lock only checks existence: transactions already run one at a time.
func (r *eventRepo) Lock(_ context.Context, id string) error {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	if _, ok := r.st.d.events[id]; !ok {
		return apperrors.NotFound("event", id)
	}
	return nil
}

// withCalendar must be called with mu held.
func (r *eventRepo) withCalendar(e model.EventConfig) model.EventConfig {
	e = copyEvent(e)
	if c, ok := r.st.d.calendars[e.CalendarID]; ok {
		c = copyCalendar(c)
		e.Calendar = &c
	}
	return e
}

type registrationRepo struct{ st *state }

func (r *registrationRepo) SumQuantity(_ context.Context, eventID string, states []model.BookingState, onlyCompleted bool) (int, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var total int
	for _, reg := range r.st.d.registrations {
		if reg.EventID == eventID && reg.CountsToward(states, onlyCompleted) {
			total += reg.Quantity
		}
	}
	return total, nil
}

func (r *registrationRepo) Create(_ context.Context, reg *model.Registration) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.d.nextRegID++
	reg.ID = r.st.d.nextRegID
	r.st.d.registrations[reg.UUID] = copyRegistration(*reg)
	return nil
}

func (r *registrationRepo) Update(_ context.Context, reg *model.Registration) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	existing, ok := r.st.d.registrations[reg.UUID]
	if !ok {
		return apperrors.RegistrationNotFound(reg.UUID)
	}
	updated := copyRegistration(*reg)
	updated.ID = existing.ID
	updated.EventID = existing.EventID
	r.st.d.registrations[reg.UUID] = updated
	return nil
}

func (r *registrationRepo) GetByUUID(_ context.Context, uuid string) (*model.Registration, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	reg, ok := r.st.d.registrations[uuid]
	if !ok {
		return nil, apperrors.RegistrationNotFound(uuid)
	}
	reg = copyRegistration(reg)
	return &reg, nil
}

func (r *registrationRepo) DeleteByUUID(_ context.Context, uuid string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	delete(r.st.d.registrations, uuid)
	return nil
}

func (r *registrationRepo) EmailExists(_ context.Context, eventID, email string) (bool, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, reg := range r.st.d.registrations {
		if reg.EventID == eventID && strings.ToLower(strings.TrimSpace(reg.Email)) == needle {
			return true, nil
		}
	}
	return false, nil
}

func (r *registrationRepo) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var regs []model.Registration
	for _, reg := range r.st.d.registrations {
		if reg.EventID == eventID {
			regs = append(regs, copyRegistration(reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].DateAdded.Equal(regs[j].DateAdded) {
			return regs[i].DateAdded.Before(regs[j].DateAdded)
		}
		return regs[i].ID < regs[j].ID
	})
	return regs, nil
}

type cartRepo struct{ st *state }

func (r *cartRepo) Create(_ context.Context, c *model.Cart) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.d.carts[c.UUID] = copyCart(*c)
	return nil
}

func (r *cartRepo) Update(_ context.Context, c *model.Cart) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.d.carts[c.UUID]; !ok {
		return apperrors.CartNotFound(c.UUID)
	}
	r.st.d.carts[c.UUID] = copyCart(*c)
	return nil
}

func (r *cartRepo) GetByUUID(_ context.Context, uuid string) (*model.Cart, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	c, ok := r.st.d.carts[uuid]
	if !ok {
		return nil, apperrors.CartNotFound(uuid)
	}
	c = copyCart(c)
	return &c, nil
}

type orderRepo struct{ st *state }

func (r *orderRepo) Create(_ context.Context, o *model.Order) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.d.orders[o.UUID] = copyOrder(*o)
	return nil
}

func (r *orderRepo) GetByUUID(_ context.Context, uuid string) (*model.Order, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	o, ok := r.st.d.orders[uuid]
	if !ok {
		return nil, apperrors.NotFound("order", uuid)
	}
	o = copyOrder(o)
	return &o, nil
}

type paymentRepo struct{ st *state }

func (r *paymentRepo) Create(_ context.Context, p *model.Payment) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.d.payments[p.UUID] = *p
	return nil
}

func (r *paymentRepo) GetByUUID(_ context.Context, uuid string) (*model.Payment, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.d.payments[uuid]
	if !ok {
		return nil, apperrors.NotFound("payment", uuid)
	}
	return &p, nil
}

type sweepRepo struct{ st *state }

func (r *sweepRepo) DeleteExpiredRegistrations(_ context.Context, before time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for uuid, reg := range r.st.d.registrations {
		if !reg.CheckoutCompleted && reg.UpdatedAt.Before(before) {
			delete(r.st.d.registrations, uuid)
			n++
		}
	}
	return n, nil
}

func (r *sweepRepo) DeleteOrphanedCarts(_ context.Context, before time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	referenced := make(map[string]bool)
	for _, reg := range r.st.d.registrations {
		referenced[reg.CartUUID] = true
	}
	var n int64
	for uuid, c := range r.st.d.carts {
		if c.UpdatedAt.Before(before) && !referenced[uuid] {
			delete(r.st.d.carts, uuid)
			n++
		}
	}
	return n, nil
}

func (r *sweepRepo) DeleteOrphanedOrders(_ context.Context, before time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	referenced := make(map[string]bool)
	for _, reg := range r.st.d.registrations {
		referenced[reg.OrderUUID] = true
	}
	var n int64
	for uuid, o := range r.st.d.orders {
		if o.UpdatedAt.Before(before) && !referenced[uuid] {
			delete(r.st.d.orders, uuid)
			n++
		}
	}
	return n, nil
}

func (r *sweepRepo) DeleteOrphanedPayments(_ context.Context, before time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	referenced := make(map[string]bool)
	for _, o := range r.st.d.orders {
		referenced[o.PaymentUUID] = true
	}
	var n int64
	for uuid, p := range r.st.d.payments {
		if p.UpdatedAt.Before(before) && !referenced[uuid] {
			delete(r.st.d.payments, uuid)
			n++
		}
	}
	return n, nil
}
