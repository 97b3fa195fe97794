package steps

import (
	"context"
	"log/slog"
	"net/url"
	"slices"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/cart"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

// FinalisationConfig wires a Finalisation step.
type FinalisationConfig struct {
	Template string
	Store    repository.Store
	Carts    *cart.Service
	Sessions session.Store
	Clock    clock.Clock
	// CompletionURL is where the booker lands after the order is committed.
	CompletionURL string
	Listeners     []PostBookingListener
	Logger        *slog.Logger
}

// Finalisation turns the cart into an order. It is the terminal step of the
// default pipeline.
type Finalisation struct {
	cfg     FinalisationConfig
	cart    *model.Cart
	orderID string
}

// NewFinalisation creates a Finalisation step.
func NewFinalisation(cfg FinalisationConfig) *Finalisation {
	if cfg.Template == "" {
		cfg.Template = "checkout_step_finalisation"
	}
	return &Finalisation{cfg: cfg}
}

// Identifier returns the step id.
func (f *Finalisation) Identifier() string { return FinalisationID }

// Template returns the template the step renders with.
func (f *Finalisation) Template() string { return f.cfg.Template }

// Initialize loads the cart bound to the session, if any.
func (f *Finalisation) Initialize(ctx context.Context, co *checkout.Checkout) error {
	c, err := f.cfg.Carts.Find(ctx, co.Request.SessionID)
	if err != nil {
		return err
	}
	f.cart = c
	return nil
}

// AutoForward never skips the step.
func (f *Finalisation) AutoForward(context.Context, *checkout.Checkout) (bool, error) {
	return false, nil
}

// Commit creates the order and completes every registration of the cart in
// one transaction. On failure nothing is written and the cart stays open.
func (f *Finalisation) Commit(ctx context.Context, co *checkout.Checkout) (bool, error) {
	if f.cart == nil {
		return false, apperrors.CartNotFound(co.Request.SessionID)
	}
	if f.cart.CheckoutCompleted {
		return false, apperrors.CartClosed(f.cart.UUID)
	}

	// Work on a copy so a rolled back commit leaves f.cart untouched.
	working := *f.cart
	working.Items = slices.Clone(f.cart.Items)

	now := f.cfg.Clock.Now()
	order := &model.Order{
		UUID:      uuid.New().String(),
		EventID:   co.Event.ID,
		MemberID:  co.Request.MemberID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var regs []model.Registration

	err := f.cfg.Store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		for _, item := range working.Items {
			reg, err := tx.Registrations().GetByUUID(ctx, item.UUID)
			if err != nil {
				return err
			}
			reg.CheckoutCompleted = true
			reg.OrderUUID = order.UUID
			reg.DateAdded = now
			reg.UpdatedAt = now
			if reg.BookingState == model.StateConfirmed {
				confirmed := now
				reg.ConfirmedOn = &confirmed
			}
			if err := tx.Registrations().Update(ctx, reg); err != nil {
				return err
			}
			regs = append(regs, *reg)
		}
		return f.cfg.Carts.WithStore(tx).MarkCompleted(ctx, &working)
	})
	if err != nil {
		return false, err
	}
	f.cart = &working
	f.orderID = order.UUID
	metrics.OrdersCommitted.Inc()

	// The order is committed from here on; later failures are only logged.
	log := logger.WithContext(ctx, f.cfg.Logger)
	if err := f.bindOrder(ctx, co.Request.SessionID, order.UUID); err != nil {
		log.ErrorContext(ctx, "bind order to session failed",
			slog.String("order_uuid", order.UUID),
			slog.String("error", err.Error()),
		)
	}

	done := &model.CompletedCheckout{
		Order:         *order,
		Cart:          working,
		EventID:       co.Event.ID,
		Registrations: regs,
	}
	for _, listener := range f.cfg.Listeners {
		if err := listener(ctx, co, done); err != nil {
			log.ErrorContext(ctx, "post booking listener failed",
				slog.String("order_uuid", order.UUID),
				slog.String("error", err.Error()),
			)
		}
	}
	return true, nil
}

func (f *Finalisation) bindOrder(ctx context.Context, sessionID, orderUUID string) error {
	sess, err := f.cfg.Sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.OrderID = orderUUID
	return f.cfg.Sessions.Save(ctx, sessionID, sess)
}

// Response redirects to the completion page and ends the checkout session.
func (f *Finalisation) Response(ctx context.Context, co *checkout.Checkout) (*checkout.Response, error) {
	if f.cfg.CompletionURL == "" {
		return nil, apperrors.Configuration("no checkout completion url configured")
	}
	target, err := url.Parse(f.cfg.CompletionURL)
	if err != nil {
		return nil, apperrors.Configuration("invalid checkout completion url %q: %v", f.cfg.CompletionURL, err)
	}

	orderID := f.orderID
	if orderID == "" {
		sess, err := f.cfg.Sessions.Load(ctx, co.Request.SessionID)
		if err != nil {
			return nil, err
		}
		orderID = sess.OrderID
	}
	if orderID == "" {
		return nil, apperrors.Configuration("session %s holds no order after commit", co.Request.SessionID)
	}

	q := target.Query()
	q.Set("events", co.Event.Alias)
	q.Set("order", orderID)
	target.RawQuery = q.Encode()

	if err := f.cfg.Sessions.Destroy(ctx, co.Request.SessionID); err != nil {
		logger.WithContext(ctx, f.cfg.Logger).ErrorContext(ctx, "destroy checkout session failed",
			slog.String("order_uuid", orderID),
			slog.String("error", err.Error()),
		)
	}
	return checkout.RedirectTo(target.String()), nil
}

// Prepare exposes the registrations of the cart.
func (f *Finalisation) Prepare(context.Context, *checkout.Checkout) (map[string]any, error) {
	items := []model.CartItem{}
	if f.cart != nil {
		items = f.cart.Items
	}
	return map[string]any{"registrations": items}, nil
}
