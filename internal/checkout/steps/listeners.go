package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/notification"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

// PostBookingListener runs after an order has been committed. Errors are
// logged; the booking stands regardless.
type PostBookingListener func(ctx context.Context, co *checkout.Checkout, done *model.CompletedCheckout) error

// DefaultListeners returns the log, flash and notification listeners in that
// order.
func DefaultListeners(sessions session.Store, dispatcher notification.Dispatcher, log *slog.Logger) []PostBookingListener {
	return []PostBookingListener{
		LogBooking(log),
		FlashBooking(sessions),
		NotifyBooking(dispatcher, log),
	}
}

// LogBooking records the committed order.
func LogBooking(log *slog.Logger) PostBookingListener {
	return func(ctx context.Context, co *checkout.Checkout, done *model.CompletedCheckout) error {
		var seats int
		for _, r := range done.Registrations {
			seats += r.Quantity
		}
		logger.WithContext(ctx, log).InfoContext(ctx, "order committed",
			slog.String("event_id", done.EventID),
			slog.String("order_uuid", done.Order.UUID),
			slog.String("cart_uuid", done.Cart.UUID),
			slog.Int("registrations", len(done.Registrations)),
			slog.Int("seats", seats),
		)
		return nil
	}
}

// FlashBooking stores the completed checkout for the completion page.
func FlashBooking(sessions session.Store) PostBookingListener {
	return func(ctx context.Context, co *checkout.Checkout, done *model.CompletedCheckout) error {
		raw, err := json.Marshal(done)
		if err != nil {
			return fmt.Errorf("marshal completed checkout: %w", err)
		}
		return sessions.SetFlash(ctx, co.Request.SessionID, session.FlashCheckoutCompleted, raw)
	}
}

// NotifyBooking sends the booking notifications of every registration when
// the event enables them.
func NotifyBooking(dispatcher notification.Dispatcher, log *slog.Logger) PostBookingListener {
	return func(ctx context.Context, co *checkout.Checkout, done *model.CompletedCheckout) error {
		if !co.Event.EnableBookingNotification {
			return nil
		}
		for i := range done.Registrations {
			notification.Send(ctx, dispatcher, log, notification.ForBooking(co.Event, &done.Registrations[i]))
		}
		return nil
	}
}
