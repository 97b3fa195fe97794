package postgres

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
)

// SweepRepository implements repository.SweepRepository.
type SweepRepository struct {
	db database.DBTX
}

// DeleteExpiredRegistrations removes registrations whose checkout never
// completed.
func (r *SweepRepository) DeleteExpiredRegistrations(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "sweep registrations",
		`DELETE FROM registrations WHERE checkout_completed = FALSE AND updated_at < $1`, before)
}

// DeleteOrphanedCarts removes carts no registration points at.
func (r *SweepRepository) DeleteOrphanedCarts(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "sweep carts",
		`DELETE FROM carts c WHERE c.updated_at < $1
		 AND NOT EXISTS (SELECT 1 FROM registrations r WHERE r.cart_uuid = c.uuid)`, before)
}

// DeleteOrphanedOrders removes orders no registration points at.
func (r *SweepRepository) DeleteOrphanedOrders(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "sweep orders",
		`DELETE FROM orders o WHERE o.updated_at < $1
		 AND NOT EXISTS (SELECT 1 FROM registrations r WHERE r.order_uuid = o.uuid)`, before)
}

// DeleteOrphanedPayments removes payments no order points at.
func (r *SweepRepository) DeleteOrphanedPayments(ctx context.Context, before time.Time) (int64, error) {
	return r.exec(ctx, "sweep payments",
		`DELETE FROM payments p WHERE p.updated_at < $1
		 AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.payment_uuid = p.uuid)`, before)
}

func (r *SweepRepository) exec(ctx context.Context, op, query string, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, apperrors.Storage(op, err)
	}
	return tag.RowsAffected(), nil
}
