package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	db database.DBTX
}

// Create inserts an order.
func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	details, err := marshalFormData(o.Details)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO orders (uuid, event_id, member_id, payment_uuid, details, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.UUID, o.EventID, o.MemberID, o.PaymentUUID, details, o.Description, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("insert order", err)
	}
	return nil
}

// GetByUUID returns an order or ErrNotFound.
func (r *OrderRepository) GetByUUID(ctx context.Context, uuid string) (*model.Order, error) {
	var (
		o       model.Order
		details []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT uuid, event_id, member_id, payment_uuid, details, description, created_at, updated_at
		 FROM orders WHERE uuid = $1`, uuid,
	).Scan(&o.UUID, &o.EventID, &o.MemberID, &o.PaymentUUID, &details, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", uuid)
		}
		return nil, apperrors.Storage("get order", err)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &o.Details); err != nil {
			return nil, fmt.Errorf("decode order details: %w", err)
		}
	}
	return &o, nil
}

// PaymentRepository implements repository.PaymentRepository.
type PaymentRepository struct {
	db database.DBTX
}

// Create inserts a payment record.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (uuid, number, total_amount, currency_code, state, paid_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.UUID, p.Number, p.TotalAmount, p.CurrencyCode, p.State, nullTime(p.PaidAt), p.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("insert payment", err)
	}
	return nil
}

// GetByUUID returns a payment or ErrNotFound.
func (r *PaymentRepository) GetByUUID(ctx context.Context, uuid string) (*model.Payment, error) {
	var (
		p      model.Payment
		paidAt *time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT uuid, number, total_amount, currency_code, state, paid_at, updated_at
		 FROM payments WHERE uuid = $1`, uuid,
	).Scan(&p.UUID, &p.Number, &p.TotalAmount, &p.CurrencyCode, &p.State, &paidAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", uuid)
		}
		return nil, apperrors.Storage("get payment", err)
	}
	p.PaidAt = fromNullTime(paidAt)
	return &p, nil
}
