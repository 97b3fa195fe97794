package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/database"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// CartRepository implements repository.CartRepository. Items are stored
// as a JSONB array on the cart row.
type CartRepository struct {
	db database.DBTX
}

// Create inserts a cart.
func (r *CartRepository) Create(ctx context.Context, c *model.Cart) error {
	items, err := marshalItems(c.Items)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO carts (uuid, event_id, items, checkout_completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.UUID, c.EventID, items, c.CheckoutCompleted, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("insert cart", err)
	}
	return nil
}

// Update writes items, completion flag and timestamp.
func (r *CartRepository) Update(ctx context.Context, c *model.Cart) error {
	items, err := marshalItems(c.Items)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE carts SET items = $2, checkout_completed = $3, updated_at = $4 WHERE uuid = $1`,
		c.UUID, items, c.CheckoutCompleted, c.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage("update cart", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.CartNotFound(c.UUID)
	}
	return nil
}

// GetByUUID returns a cart or ErrCartNotFound.
func (r *CartRepository) GetByUUID(ctx context.Context, uuid string) (*model.Cart, error) {
	var (
		c     model.Cart
		items []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT uuid, event_id, items, checkout_completed, created_at, updated_at
		 FROM carts WHERE uuid = $1`, uuid,
	).Scan(&c.UUID, &c.EventID, &items, &c.CheckoutCompleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.CartNotFound(uuid)
		}
		return nil, apperrors.Storage("get cart", err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &c.Items); err != nil {
			return nil, fmt.Errorf("decode cart items: %w", err)
		}
	}
	return &c, nil
}

func marshalItems(items []model.CartItem) ([]byte, error) {
	if items == nil {
		items = []model.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}
	return b, nil
}
