package model

// Session is the typed checkout bag kept per browsing session.
type Session struct {
	EventID string `json:"event_id,omitempty"`
	CartID  string `json:"cart_id,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

// Empty reports whether nothing is bound to the session.
func (s Session) Empty() bool {
	return s.EventID == "" && s.CartID == "" && s.OrderID == ""
}

// CompletedCheckout is the flash summary stored after a booking commits.
type CompletedCheckout struct {
	Order         Order          `json:"order"`
	Cart          Cart           `json:"cart"`
	EventID       string         `json:"event_id"`
	Registrations []Registration `json:"registrations"`
}
