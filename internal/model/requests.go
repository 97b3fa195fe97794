package model

import "time"

// CreateCalendarRequest is the payload for creating a calendar.
type CreateCalendarRequest struct {
	Title              string         `json:"title" validate:"required,max=255"`
	CalculateTotalFrom []BookingState `json:"calculate_total_from" validate:"required,min=1"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title                         string       `json:"title" validate:"required,max=255"`
	Alias                         string       `json:"alias" validate:"max=255"`
	CalendarID                    string       `json:"calendar_id" validate:"required"`
	Published                     bool         `json:"published"`
	StartDate                     time.Time    `json:"start_date"`
	Bookable                      bool         `json:"bookable"`
	BookingStartDate              time.Time    `json:"booking_start_date"`
	BookingEndDate                time.Time    `json:"booking_end_date"`
	BookingMax                    int          `json:"booking_max" validate:"gte=0,lte=100000"`
	MinMembers                    int          `json:"min_members" validate:"gte=0"`
	MaxEscortsPerMember           int          `json:"max_escorts_per_member" validate:"gte=0"`
	MaxQuantityPerRegistration    int          `json:"max_quantity_per_registration" validate:"gte=0"`
	MaxItemsPerCart               int          `json:"max_items_per_cart" validate:"gte=0"`
	WaitingListEnabled            bool         `json:"waiting_list_enabled"`
	WaitingListLimit              int          `json:"waiting_list_limit" validate:"gte=0"`
	BookingState                  BookingState `json:"booking_state"`
	AllowDuplicateEmail           bool         `json:"allow_duplicate_email"`
	EnableUnsubscription          bool         `json:"enable_unsubscription"`
	UnsubscribeLimitDays          int          `json:"unsubscribe_limit_days" validate:"gte=0"`
	UnsubscribeLimitAt            time.Time    `json:"unsubscribe_limit_at"`
	EnableBookingNotification     bool         `json:"enable_booking_notification"`
	BookingNotifications          []string     `json:"booking_notifications"`
	EnableUnsubscribeNotification bool         `json:"enable_unsubscribe_notification"`
	UnsubscribeNotifications      []string     `json:"unsubscribe_notifications"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
	Request string `json:"request_id,omitempty"`
}
