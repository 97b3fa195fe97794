// Package model defines the core domain types for the event checkout engine.
package model

import (
	"fmt"
	"time"
)

// Calendar groups events and decides which booking states count toward
// an event's capacity.
type Calendar struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	CalculateTotalFrom []BookingState `json:"calculate_total_from"`
}

// WaitingListConfig configures the overflow queue of an event.
type WaitingListConfig struct {
	Enabled bool `json:"enabled"`
	Limit   int  `json:"limit"`
}

// EventConfig is the read-mostly configuration of a bookable event. It is
// loaded once per checkout request and never mutated by the checkout.
type EventConfig struct {
	ID         string    `json:"id"`
	Alias      string    `json:"alias"`
	Title      string    `json:"title"`
	CalendarID string    `json:"calendar_id"`
	Calendar   *Calendar `json:"calendar,omitempty"`
	Published  bool      `json:"published"`
	StartDate  time.Time `json:"start_date"`

	Bookable         bool      `json:"bookable"`
	BookingStartDate time.Time `json:"booking_start_date"`
	BookingEndDate   time.Time `json:"booking_end_date"`

	BookingMax                 int `json:"booking_max"`
	MinMembers                 int `json:"min_members"`
	MaxEscortsPerMember        int `json:"max_escorts_per_member"`
	MaxQuantityPerRegistration int `json:"max_quantity_per_registration"`
	MaxItemsPerCart            int `json:"max_items_per_cart"`

	WaitingList         WaitingListConfig `json:"waiting_list"`
	BookingState        BookingState      `json:"booking_state"`
	AllowDuplicateEmail bool              `json:"allow_duplicate_email"`

	EnableUnsubscription bool      `json:"enable_unsubscription"`
	UnsubscribeLimitDays int       `json:"unsubscribe_limit_days"`
	UnsubscribeLimitAt   time.Time `json:"unsubscribe_limit_at"`

	EnableBookingNotification     bool     `json:"enable_booking_notification"`
	BookingNotifications          []string `json:"booking_notifications"`
	EnableUnsubscribeNotification bool     `json:"enable_unsubscribe_notification"`
	UnsubscribeNotifications      []string `json:"unsubscribe_notifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasWaitingList reports whether overflow bookings are accepted at all.
func (e *EventConfig) HasWaitingList() bool {
	return e.WaitingList.Enabled
}

// WaitingListLimit returns the configured waiting-list size, or 0 when the
// waiting list is disabled.
func (e *EventConfig) WaitingListLimit() int {
	if !e.WaitingList.Enabled {
		return 0
	}
	return e.WaitingList.Limit
}

// MaxQuantity returns the upper bound for a single line item's quantity.
// An unset bound allows one seat per registration.
func (e *EventConfig) MaxQuantity() int {
	if e.MaxQuantityPerRegistration < 1 {
		return 1
	}
	return e.MaxQuantityPerRegistration
}

// DefaultBookingState is the state assigned to directly admitted registrations.
func (e *EventConfig) DefaultBookingState() BookingState {
	if e.BookingState == "" {
		return StateNotConfirmed
	}
	return e.BookingState
}

// TotalStates returns the booking states that count toward capacity.
// It fails when the event has no calendar attached.
func (e *EventConfig) TotalStates() ([]BookingState, error) {
	if e.Calendar == nil {
		return nil, fmt.Errorf("event %s has no calendar", e.ID)
	}
	return e.Calendar.CalculateTotalFrom, nil
}
