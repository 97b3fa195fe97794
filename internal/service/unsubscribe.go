package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/notification"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// UnsubscribeService cancels confirmed registrations on behalf of bookers.
type UnsubscribeService struct {
	store      repository.Store
	dispatcher notification.Dispatcher
	clock      clock.Clock
	strict     bool
	logger     *slog.Logger
}

// NewUnsubscribeService constructs an UnsubscribeService. With strict set,
// the booking-state transition graph is enforced.
func NewUnsubscribeService(store repository.Store, d notification.Dispatcher, clk clock.Clock, strict bool, logger *slog.Logger) *UnsubscribeService {
	return &UnsubscribeService{store: store, dispatcher: d, clock: clk, strict: strict, logger: logger}
}

// Unsubscribe moves the registration to the unsubscribed state and sends
// the event's unsubscribe notifications. Dispatch failures are logged only.
func (s *UnsubscribeService) Unsubscribe(ctx context.Context, regUUID string) (*model.Registration, error) {
	if regUUID == "" {
		return nil, apperrors.InvalidInput("invalid registration uuid")
	}

	var (
		reg   *model.Registration
		event *model.EventConfig
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		reg, err = tx.Registrations().GetByUUID(ctx, regUUID)
		if err != nil {
			return err
		}
		event, err = tx.Events().GetByID(ctx, reg.EventID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := checkUnsubscribable(event, reg, now); err != nil {
			return err
		}
		if s.strict && !reg.BookingState.CanTransitionTo(model.StateUnsubscribed) {
			return apperrors.InvalidTransition(string(reg.BookingState), string(model.StateUnsubscribed))
		}

		reg.BookingState = model.StateUnsubscribed
		reg.UnsubscribedOn = &now
		reg.UpdatedAt = now
		return tx.Registrations().Update(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.logger)
	log.InfoContext(ctx, "registration unsubscribed",
		slog.String("registration_uuid", reg.UUID),
		slog.String("event_id", event.ID),
	)
	if event.EnableUnsubscribeNotification {
		notification.Send(ctx, s.dispatcher, s.logger, notification.ForUnsubscribe(event, reg))
	}
	return reg, nil
}

func checkUnsubscribable(event *model.EventConfig, reg *model.Registration, now time.Time) error {
	if reg.BookingState == model.StateUnsubscribed {
		return apperrors.UnsubscribeNotAllowed(fmt.Sprintf("you have already unsubscribed from %s", event.Title))
	}
	if !event.EnableUnsubscription || (reg.BookingState != "" && reg.BookingState != model.StateConfirmed) {
		return apperrors.UnsubscribeNotAllowed(fmt.Sprintf("unsubscribing from %s is not allowed", event.Title))
	}
	if unsubscribeLimitPassed(event, now) {
		return apperrors.UnsubscribeNotAllowed(fmt.Sprintf("the unsubscription limit for %s has expired", event.Title))
	}
	return nil
}

// unsubscribeLimitPassed prefers the absolute limit over the relative one
// expressed in days before the event starts.
func unsubscribeLimitPassed(event *model.EventConfig, now time.Time) bool {
	if !event.UnsubscribeLimitAt.IsZero() {
		return now.After(event.UnsubscribeLimitAt)
	}
	days := event.UnsubscribeLimitDays
	if days < 0 {
		days = 0
	}
	return now.Add(time.Duration(days) * 24 * time.Hour).After(event.StartDate)
}
