package memory

import (
	"maps"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// Values are copied on the way in and out so callers never share
// slices, maps or pointers with the store.

func copyCalendar(c model.Calendar) model.Calendar {
	c.CalculateTotalFrom = slices.Clone(c.CalculateTotalFrom)
	return c
}

func copyEvent(e model.EventConfig) model.EventConfig {
	if e.Calendar != nil {
		cal := copyCalendar(*e.Calendar)
		e.Calendar = &cal
	}
	e.BookingNotifications = slices.Clone(e.BookingNotifications)
	e.UnsubscribeNotifications = slices.Clone(e.UnsubscribeNotifications)
	return e
}

func copyRegistration(r model.Registration) model.Registration {
	r.FormData = maps.Clone(r.FormData)
	r.ConfirmedOn = copyTime(r.ConfirmedOn)
	r.UnsubscribedOn = copyTime(r.UnsubscribedOn)
	return r
}

func copyCart(c model.Cart) model.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func copyOrder(o model.Order) model.Order {
	o.Details = maps.Clone(o.Details)
	return o
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
