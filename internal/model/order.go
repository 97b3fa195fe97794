package model

import "time"

// Order is created exactly once per successful checkout and groups the
// registrations booked together.
type Order struct {
	UUID        string            `json:"uuid"`
	EventID     string            `json:"event_id"`
	MemberID    string            `json:"member_id,omitempty"`
	PaymentUUID string            `json:"payment_uuid,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Payment is a payment record linked from an order.
type Payment struct {
	UUID         string    `json:"uuid"`
	Number       string    `json:"number"`
	TotalAmount  int64     `json:"total_amount"`
	CurrencyCode string    `json:"currency_code"`
	State        string    `json:"state"`
	PaidAt       time.Time `json:"paid_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
