// Package notification dispatches booking and unsubscription notifications.
// Dispatch is fire-and-forget for callers: failures are logged and counted
// but never undo a booking.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// Kind names the trigger of a notification.
type Kind string

const (
	KindBooking     Kind = "booking"
	KindUnsubscribe Kind = "unsubscribe"
)

// Notification asks the delivery side to send the configured notifications
// with the given tokens.
type Notification struct {
	Kind             Kind              `json:"kind"`
	NotificationIDs  []string          `json:"notification_ids"`
	EventID          string            `json:"event_id"`
	RegistrationUUID string            `json:"registration_uuid"`
	OrderUUID        string            `json:"order_uuid,omitempty"`
	Tokens           map[string]string `json:"tokens"`
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// ForBooking builds the booking notification of one registration.
func ForBooking(event *model.EventConfig, reg *model.Registration) Notification {
	return Notification{
		Kind:             KindBooking,
		NotificationIDs:  event.BookingNotifications,
		EventID:          event.ID,
		RegistrationUUID: reg.UUID,
		OrderUUID:        reg.OrderUUID,
		Tokens:           Tokens(event, reg),
	}
}

// ForUnsubscribe builds the unsubscription notification of one registration.
func ForUnsubscribe(event *model.EventConfig, reg *model.Registration) Notification {
	return Notification{
		Kind:             KindUnsubscribe,
		NotificationIDs:  event.UnsubscribeNotifications,
		EventID:          event.ID,
		RegistrationUUID: reg.UUID,
		OrderUUID:        reg.OrderUUID,
		Tokens:           Tokens(event, reg),
	}
}

// Tokens returns the substitution tokens for templates of the delivery side.
func Tokens(event *model.EventConfig, reg *model.Registration) map[string]string {
	tokens := map[string]string{
		"event_id":          event.ID,
		"event_title":       event.Title,
		"event_alias":       event.Alias,
		"reg_uuid":          reg.UUID,
		"reg_firstname":     reg.FirstName,
		"reg_lastname":      reg.LastName,
		"reg_email":         reg.Email,
		"reg_quantity":      strconv.Itoa(reg.Quantity),
		"reg_escorts":       strconv.Itoa(reg.Escorts),
		"reg_booking_state": string(reg.BookingState),
		"reg_booking_type":  string(reg.BookingType),
	}
	if !event.StartDate.IsZero() {
		tokens["event_start_date"] = event.StartDate.Format(time.RFC3339)
	}
	for k, v := range reg.FormData {
		if _, taken := tokens["form_"+k]; !taken {
			tokens["form_"+k] = v
		}
	}
	return tokens
}

// Envelope is the message published for every notification.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// Source identifies this service in published envelopes.
const Source = "event-checkout"

// NewEnvelope wraps n for publishing.
func NewEnvelope(ctx context.Context, n Notification, now time.Time) (*Envelope, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:       uuid.New().String(),
		EventType:     "checkout.notification." + string(n.Kind),
		AggregateID:   n.RegistrationUUID,
		AggregateType: "registration",
		Version:       1,
		Timestamp:     now.UTC(),
		Source:        Source,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          data,
	}, nil
}

// LogDispatcher writes notifications to the log instead of delivering them.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch writes n to the log.
func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	logger.WithContext(ctx, d.logger).InfoContext(ctx, "notification dispatched",
		slog.String("kind", string(n.Kind)),
		slog.String("event_id", n.EventID),
		slog.String("registration_uuid", n.RegistrationUUID),
		slog.Any("notification_ids", n.NotificationIDs),
	)
	metrics.NotificationsDispatched.WithLabelValues(string(n.Kind), "logged").Inc()
	return nil
}

// Send dispatches n and logs a failure instead of returning it.
func Send(ctx context.Context, d Dispatcher, log *slog.Logger, n Notification) {
	if len(n.NotificationIDs) == 0 {
		return
	}
	if err := d.Dispatch(ctx, n); err != nil {
		logger.WithContext(ctx, log).ErrorContext(ctx, "notification dispatch failed",
			slog.String("kind", string(n.Kind)),
			slog.String("registration_uuid", n.RegistrationUUID),
			slog.String("error", err.Error()),
		)
	}
}
