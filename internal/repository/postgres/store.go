// Package postgres implements the repository contracts on PostgreSQL
// through pgx. It uses plain SQL, no ORM.
package postgres

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// Store implements repository.Store over a pool or a transaction.
type Store struct {
	db database.DBTX
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a Store over db.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// Calendars returns the calendar repository.
func (s *Store) Calendars() repository.CalendarRepository {
	return &CalendarRepository{db: s.db}
}

// Events returns the event repository.
func (s *Store) Events() repository.EventRepository {
	return &EventRepository{db: s.db}
}

// Registrations returns the registration repository.
func (s *Store) Registrations() repository.RegistrationRepository {
	return &RegistrationRepository{db: s.db}
}

// Carts returns the cart repository.
func (s *Store) Carts() repository.CartRepository {
	return &CartRepository{db: s.db}
}

// Orders returns the order repository.
func (s *Store) Orders() repository.OrderRepository {
	return &OrderRepository{db: s.db}
}

// Payments returns the payment repository.
func (s *Store) Payments() repository.PaymentRepository {
	return &PaymentRepository{db: s.db}
}

// Sweeps returns the sweep repository.
func (s *Store) Sweeps() repository.SweepRepository {
	return &SweepRepository{db: s.db}
}

// WithTx runs fn inside a transaction. Nested calls open a savepoint.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperrors.Storage("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(NewStore(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return apperrors.Storage("commit transaction", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
