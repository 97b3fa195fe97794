// Package repository declares the persistence contracts of the checkout
// engine. Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// CalendarRepository persists calendars.
type CalendarRepository interface {
	Create(ctx context.Context, c *model.Calendar) error
	GetByID(ctx context.Context, id string) (*model.Calendar, error)
}

// EventRepository persists event configurations.
type EventRepository interface {
	Create(ctx context.Context, e *model.EventConfig) error
	List(ctx context.Context) ([]model.EventConfig, error)
	// GetByID loads an event with its calendar attached.
	GetByID(ctx context.Context, id string) (*model.EventConfig, error)
	// Lock takes an exclusive lock on the event for the rest of the
	// surrounding transaction. Outside a transaction it is a no-op.
	Lock(ctx context.Context, id string) error
}

// RegistrationRepository persists registrations.
type RegistrationRepository interface {
	// SumQuantity sums quantity over registrations of the event whose state
	// is in states. With onlyCompleted, pending checkouts are left out.
	SumQuantity(ctx context.Context, eventID string, states []model.BookingState, onlyCompleted bool) (int, error)
	Create(ctx context.Context, r *model.Registration) error
	Update(ctx context.Context, r *model.Registration) error
	GetByUUID(ctx context.Context, uuid string) (*model.Registration, error)
	DeleteByUUID(ctx context.Context, uuid string) error
	EmailExists(ctx context.Context, eventID, email string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// CartRepository persists carts.
type CartRepository interface {
	Create(ctx context.Context, c *model.Cart) error
	Update(ctx context.Context, c *model.Cart) error
	GetByUUID(ctx context.Context, uuid string) (*model.Cart, error)
}

// OrderRepository persists orders.
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	GetByUUID(ctx context.Context, uuid string) (*model.Order, error)
}

// PaymentRepository persists payment records.
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByUUID(ctx context.Context, uuid string) (*model.Payment, error)
}

// SweepRepository deletes abandoned checkout artifacts last touched
// before the given instant. Each method returns the number of deleted rows.
type SweepRepository interface {
	DeleteExpiredRegistrations(ctx context.Context, before time.Time) (int64, error)
	DeleteOrphanedCarts(ctx context.Context, before time.Time) (int64, error)
	DeleteOrphanedOrders(ctx context.Context, before time.Time) (int64, error)
	DeleteOrphanedPayments(ctx context.Context, before time.Time) (int64, error)
}

// Store groups the repositories over a single connection or transaction.
type Store interface {
	Calendars() CalendarRepository
	Events() EventRepository
	Registrations() RegistrationRepository
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Sweeps() SweepRepository

	// WithTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
