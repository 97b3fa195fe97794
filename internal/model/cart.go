package model

import "time"

// CartItem is the embedded copy of a pending registration held by a cart.
type CartItem struct {
	UUID         string       `json:"uuid"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Email        string       `json:"email"`
	Quantity     int          `json:"quantity"`
	Escorts      int          `json:"escorts"`
	BookingState BookingState `json:"booking_state"`
}

// Cart is the session-scoped holding area for registrations that have not
// been turned into an order yet.
type Cart struct {
	UUID              string     `json:"uuid"`
	EventID           string     `json:"event_id"`
	Items             []CartItem `json:"items"`
	CheckoutCompleted bool       `json:"checkout_completed"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Seats returns the summed quantity of all items.
func (c *Cart) Seats() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IndexOf returns the position of the item with the given UUID, or -1.
func (c *Cart) IndexOf(uuid string) int {
	for i := range c.Items {
		if c.Items[i].UUID == uuid {
			return i
		}
	}
	return -1
}

// ItemFromRegistration builds the cart copy of a registration.
func ItemFromRegistration(r *Registration) CartItem {
	return CartItem{
		UUID:         r.UUID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Quantity:     r.Quantity,
		Escorts:      r.Escorts,
		BookingState: r.BookingState,
	}
}
