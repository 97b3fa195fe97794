// Package cart manages the session-scoped cart of pending registrations.
package cart

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

// Service reads and mutates carts. A completed cart is immutable; every
// mutation on it fails with ErrCartClosed.
type Service struct {
	store    repository.Store
	sessions session.Store
	clock    clock.Clock
}

// NewService creates a cart service.
func NewService(store repository.Store, sessions session.Store, clk clock.Clock) *Service {
	return &Service{store: store, sessions: sessions, clock: clk}
}

// WithStore returns a copy of s writing through store, typically an open
// transaction.
func (s *Service) WithStore(store repository.Store) *Service {
	cp := *s
	cp.store = store
	return &cp
}

// Find returns the cart bound to the session, or nil when there is none.
func (s *Service) Find(ctx context.Context, sessionID string) (*model.Cart, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CartID == "" {
		return nil, nil
	}
	c, err := s.store.Carts().GetByUUID(ctx, sess.CartID)
	if errors.Is(err, apperrors.ErrCartNotFound) {
		return nil, nil
	}
	return c, err
}

// Get returns the session's cart, creating and binding a new one for
// eventID when the session has none or its cart was purged.
func (s *Service) Get(ctx context.Context, sessionID, eventID string) (*model.Cart, error) {
	c, err := s.Find(ctx, sessionID)
	if err != nil || c != nil {
		return c, err
	}

	now := s.clock.Now()
	c = &model.Cart{
		UUID:      uuid.New().String(),
		EventID:   eventID,
		Items:     []model.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Carts().Create(ctx, c); err != nil {
		return nil, err
	}

	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.EventID = eventID
	sess.CartID = c.UUID
	if err := s.sessions.Save(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return c, nil
}

// AddRegistrations appends items to the cart and persists it.
func (s *Service) AddRegistrations(ctx context.Context, c *model.Cart, items ...model.CartItem) error {
	if c.CheckoutCompleted {
		return apperrors.CartClosed(c.UUID)
	}
	c.Items = append(c.Items, items...)
	return s.save(ctx, c)
}

// RemoveRegistration drops one item from the cart and deletes its pending
// registration row. Removing an unknown item is a no-op.
func (s *Service) RemoveRegistration(ctx context.Context, c *model.Cart, regUUID string) error {
	if c.CheckoutCompleted {
		return apperrors.CartClosed(c.UUID)
	}
	i := c.IndexOf(regUUID)
	if i < 0 {
		return nil
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	if err := s.store.Registrations().DeleteByUUID(ctx, regUUID); err != nil {
		return err
	}
	return s.save(ctx, c)
}

// ListRegistrations loads the persisted registration of every cart item.
func (s *Service) ListRegistrations(ctx context.Context, c *model.Cart) ([]model.Registration, error) {
	regs := make([]model.Registration, 0, len(c.Items))
	for _, item := range c.Items {
		reg, err := s.store.Registrations().GetByUUID(ctx, item.UUID)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, nil
}

// MarkCompleted closes the cart.
func (s *Service) MarkCompleted(ctx context.Context, c *model.Cart) error {
	if c.CheckoutCompleted {
		return apperrors.CartClosed(c.UUID)
	}
	c.CheckoutCompleted = true
	return s.save(ctx, c)
}

func (s *Service) save(ctx context.Context, c *model.Cart) error {
	c.UpdatedAt = s.clock.Now()
	return s.store.Carts().Update(ctx, c)
}
