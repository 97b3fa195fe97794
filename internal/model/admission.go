package model

// Decision is the outcome of the seat ledger's capacity check.
type Decision int

const (
	Reject Decision = iota
	Admit
	AdmitToWaitingList
)

// String returns the metric label of d.
func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case AdmitToWaitingList:
		return "admit_to_waiting_list"
	default:
		return "reject"
	}
}

// EventStatus describes why an event can or can not be booked right now.
type EventStatus string

const (
	StatusNotBookable      EventStatus = "eventNotBookable"
	StatusNotYetPossible   EventStatus = "bookingNotYetPossible"
	StatusNoLongerPossible EventStatus = "bookingNoLongerPossible"
	StatusBookingPossible  EventStatus = "bookingPossible"
	StatusWaitingList      EventStatus = "waitingListPossible"
	StatusFullyBooked      EventStatus = "eventFullyBooked"
	StatusCartFull         EventStatus = "cartFull"
)

// Admission pairs a decision with the status that produced it.
type Admission struct {
	Decision Decision    `json:"-"`
	Status   EventStatus `json:"status"`
}

// Admitted reports whether the request may proceed in any form.
func (a Admission) Admitted() bool {
	return a.Decision != Reject
}

// Availability is the reporting view of an event's seat usage.
type Availability struct {
	EventID           string      `json:"event_id"`
	BookingMax        int         `json:"booking_max"`
	RegistrationTotal int         `json:"registration_total"`
	FreeSeats         int         `json:"free_seats"`
	Unlimited         bool        `json:"unlimited"`
	FullyBooked       bool        `json:"fully_booked"`
	WaitingListCount  int         `json:"waiting_list_count"`
	WaitingListLimit  int         `json:"waiting_list_limit"`
	WaitingListFull   bool        `json:"waiting_list_full"`
	Status            EventStatus `json:"status"`
}
