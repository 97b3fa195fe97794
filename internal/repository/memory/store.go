// Package memory implements the repository contracts in process memory.
//
// Transactions are serialized store-wide: WithTx holds an exclusive lock for
// the duration of fn, snapshots the data on entry and restores the snapshot
// when fn fails. Writes made outside WithTx while a transaction is open are
// lost if that transaction rolls back.
package memory

import (
	"context"
	"sync"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

type data struct {
	calendars     map[string]model.Calendar
	events        map[string]model.EventConfig
	registrations map[string]model.Registration
	carts         map[string]model.Cart
	orders        map[string]model.Order
	payments      map[string]model.Payment
	nextRegID     int64
}

func newData() *data {
	return &data{
		calendars:     make(map[string]model.Calendar),
		events:        make(map[string]model.EventConfig),
		registrations: make(map[string]model.Registration),
		carts:         make(map[string]model.Cart),
		orders:        make(map[string]model.Order),
		payments:      make(map[string]model.Payment),
	}
}

func (d *data) clone() *data {
	c := &data{
		calendars:     make(map[string]model.Calendar, len(d.calendars)),
		events:        make(map[string]model.EventConfig, len(d.events)),
		registrations: make(map[string]model.Registration, len(d.registrations)),
		carts:         make(map[string]model.Cart, len(d.carts)),
		orders:        make(map[string]model.Order, len(d.orders)),
		payments:      make(map[string]model.Payment, len(d.payments)),
		nextRegID:     d.nextRegID,
	}
	for k, v := range d.calendars {
		c.calendars[k] = copyCalendar(v)
	}
	for k, v := range d.events {
		c.events[k] = copyEvent(v)
	}
	for k, v := range d.registrations {
		c.registrations[k] = copyRegistration(v)
	}
	for k, v := range d.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	return c
}

type state struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
}

// Store implements repository.Store in memory.
type Store struct {
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: &state{d: newData()}}
}

// Calendars returns the calendar repository.
func (s *Store) Calendars() repository.CalendarRepository { return &calendarRepo{st: s.st} }

// Events returns the event repository.
func (s *Store) Events() repository.EventRepository { return &eventRepo{st: s.st} }

// Registrations returns the registration repository.
func (s *Store) Registrations() repository.RegistrationRepository { return &registrationRepo{st: s.st} }

// Carts returns the cart repository.
func (s *Store) Carts() repository.CartRepository { return &cartRepo{st: s.st} }

// Orders returns the order repository.
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{st: s.st} }

// Payments returns the payment repository.
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{st: s.st} }

// Sweeps returns the sweep repository.
func (s *Store) Sweeps() repository.SweepRepository { return &sweepRepo{st: s.st} }

// WithTx runs fn exclusively and undoes its writes when it fails. Calls
// made from inside fn join the open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snapshot := s.st.d.clone()
	s.st.mu.RUnlock()

	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.d = snapshot
		s.st.mu.Unlock()
		return err
	}
	return nil
}
