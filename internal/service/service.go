// Package service implements event administration, availability reporting
// and unsubscription on top of the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/ledger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// EventService orchestrates event-related business operations.
type EventService struct {
	store    repository.Store
	ledger   *ledger.Ledger
	validate *validator.Validate
	clock    clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, l *ledger.Ledger, v *validator.Validate, clk clock.Clock) *EventService {
	return &EventService{store: store, ledger: l, validate: v, clock: clk}
}

// CreateCalendar validates the request and stores a new calendar.
func (s *EventService) CreateCalendar(ctx context.Context, req model.CreateCalendarRequest) (*model.Calendar, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	for _, st := range req.CalculateTotalFrom {
		if !st.Valid() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown booking state %q", st))
		}
	}
	c := &model.Calendar{
		ID:                 uuid.NewString(),
		Title:              req.Title,
		CalculateTotalFrom: req.CalculateTotalFrom,
	}
	if err := s.store.Calendars().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.EventConfig, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Alias = strings.TrimSpace(req.Alias)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.BookingState != "" && !req.BookingState.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown booking state %q", req.BookingState))
	}
	if !req.BookingStartDate.IsZero() && !req.BookingEndDate.IsZero() && req.BookingEndDate.Before(req.BookingStartDate) {
		return nil, apperrors.InvalidInput("booking_end_date must not be before booking_start_date")
	}

	cal, err := s.store.Calendars().GetByID(ctx, req.CalendarID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("calendar %s does not exist", req.CalendarID))
		}
		return nil, err
	}

	now := s.clock.Now()
	e := &model.EventConfig{
		ID:                            uuid.NewString(),
		Alias:                         req.Alias,
		Title:                         req.Title,
		CalendarID:                    cal.ID,
		Published:                     req.Published,
		StartDate:                     req.StartDate,
		Bookable:                      req.Bookable,
		BookingStartDate:              req.BookingStartDate,
		BookingEndDate:                req.BookingEndDate,
		BookingMax:                    req.BookingMax,
		MinMembers:                    req.MinMembers,
		MaxEscortsPerMember:           req.MaxEscortsPerMember,
		MaxQuantityPerRegistration:    req.MaxQuantityPerRegistration,
		MaxItemsPerCart:               req.MaxItemsPerCart,
		WaitingList:                   model.WaitingListConfig{Enabled: req.WaitingListEnabled, Limit: req.WaitingListLimit},
		BookingState:                  req.BookingState,
		AllowDuplicateEmail:           req.AllowDuplicateEmail,
		EnableUnsubscription:          req.EnableUnsubscription,
		UnsubscribeLimitDays:          req.UnsubscribeLimitDays,
		UnsubscribeLimitAt:            req.UnsubscribeLimitAt,
		EnableBookingNotification:     req.EnableBookingNotification,
		BookingNotifications:          req.BookingNotifications,
		EnableUnsubscribeNotification: req.EnableUnsubscribeNotification,
		UnsubscribeNotifications:      req.UnsubscribeNotifications,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	if e.Alias == "" {
		e.Alias = e.ID
	}
	if err := s.store.Events().Create(ctx, e); err != nil {
		return nil, err
	}
	e.Calendar = cal
	return e, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.EventConfig, error) {
	return s.store.Events().List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventConfig, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("event id is required")
	}
	return s.store.Events().GetByID(ctx, id)
}

// Availability reports seat usage over completed registrations.
func (s *EventService) Availability(ctx context.Context, eventID string) (*model.Availability, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Availability(ctx, event)
}

// ListRegistrations returns all registrations for an event.
func (s *EventService) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.Registrations().ListByEvent(ctx, eventID)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.InvalidInput(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), msgForTag(fe)))
	}
	return apperrors.InvalidInput(strings.Join(msgs, "; "))
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
