package model

import "time"

// BookingType tells whether a registration was made by a known member.
type BookingType string

const (
	BookingTypeGuest  BookingType = "guest"
	BookingTypeMember BookingType = "member"
)

// Registration is one booking line item for an event. It is inserted with
// CheckoutCompleted=false while the cart is open and finalised on commit.
type Registration struct {
	ID                int64             `json:"id"`
	UUID              string            `json:"uuid"`
	EventID           string            `json:"event_id"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Email             string            `json:"email"`
	Quantity          int               `json:"quantity"`
	Escorts           int               `json:"escorts"`
	BookingState      BookingState      `json:"booking_state"`
	BookingType       BookingType       `json:"booking_type"`
	MemberID          string            `json:"member_id,omitempty"`
	FormData          map[string]string `json:"form_data,omitempty"`
	CheckoutCompleted bool              `json:"checkout_completed"`
	CartUUID          string            `json:"cart_uuid,omitempty"`
	OrderUUID         string            `json:"order_uuid,omitempty"`
	DateAdded         time.Time         `json:"date_added"`
	ConfirmedOn       *time.Time        `json:"confirmed_on,omitempty"`
	UnsubscribedOn    *time.Time        `json:"unsubscribed_on,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// CountsToward reports whether r contributes to the given state set.
func (r *Registration) CountsToward(states []BookingState, onlyCompleted bool) bool {
	if onlyCompleted && !r.CheckoutCompleted {
		return false
	}
	for _, s := range states {
		if r.BookingState == s {
			return true
		}
	}
	return false
}
