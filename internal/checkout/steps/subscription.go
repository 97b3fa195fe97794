// Package steps holds the checkout steps of the default pipeline.
package steps

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/cart"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/ledger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// Step identifiers of the default pipeline.
const (
	SubscriptionID = "subscription"
	FinalisationID = "finalisation"
)

// SubscriptionConfig wires a Subscription step.
type SubscriptionConfig struct {
	Template   string
	Store      repository.Store
	Carts      *cart.Service
	Ledger     *ledger.Ledger
	Clock      clock.Clock
	Validators []SubmitValidator
	// Serialized locks the event row around admission and insert.
	Serialized bool
	Logger     *slog.Logger
}

// Subscription captures registrations into the cart.
type Subscription struct {
	cfg SubscriptionConfig
}

// NewSubscription creates a Subscription step.
func NewSubscription(cfg SubscriptionConfig) *Subscription {
	if cfg.Template == "" {
		cfg.Template = "checkout_step_subscription"
	}
	return &Subscription{cfg: cfg}
}

// Identifier returns the step id.
func (s *Subscription) Identifier() string { return SubscriptionID }

// Template returns the template the step renders with.
func (s *Subscription) Template() string { return s.cfg.Template }

// Initialize is a no-op; the cart is looked up per operation.
func (s *Subscription) Initialize(context.Context, *checkout.Checkout) error { return nil }

// AutoForward never skips the step.
func (s *Subscription) AutoForward(context.Context, *checkout.Checkout) (bool, error) {
	return false, nil
}

// Validate passes when the event is bookable and the session holds an open,
// non-empty cart.
func (s *Subscription) Validate(ctx context.Context, co *checkout.Checkout) (bool, error) {
	if !co.Event.Bookable {
		return false, nil
	}
	c, err := s.cfg.Carts.Find(ctx, co.Request.SessionID)
	if err != nil {
		return false, err
	}
	return c != nil && !c.CheckoutCompleted && len(c.Items) > 0, nil
}

// Commit removes a cart item or captures the submitted registrations. It
// never advances: the booker moves on through the navigation.
func (s *Subscription) Commit(ctx context.Context, co *checkout.Checkout) (bool, error) {
	if co.Request.Field(FieldFormSubmit) == FormRemove {
		return false, s.remove(ctx, co, co.Request.Field(FieldRemove))
	}
	return false, s.capture(ctx, co)
}

func (s *Subscription) remove(ctx context.Context, co *checkout.Checkout, regUUID string) error {
	if regUUID == "" {
		return apperrors.InvalidInput("no registration selected")
	}
	return s.cfg.Store.WithTx(ctx, func(tx repository.Store) error {
		carts := s.cfg.Carts.WithStore(tx)
		c, err := carts.Find(ctx, co.Request.SessionID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperrors.CartNotFound(co.Request.SessionID)
		}
		if err := carts.RemoveRegistration(ctx, c, regUUID); err != nil {
			return err
		}
		co.AddMessage(checkout.MessageInfo, "The registration has been removed.")
		return nil
	})
}

// capture persists the submitted batch as pending registrations and adds
// them to the cart. The batch is admitted as a whole: either every line item
// fits, or none is stored.
func (s *Subscription) capture(ctx context.Context, co *checkout.Checkout) error {
	candidates, err := candidatesFromForm(co.Request.Form)
	if err != nil {
		return err
	}

	var (
		admission model.Admission
		seats     int
	)
	err = s.cfg.Store.WithTx(ctx, func(tx repository.Store) error {
		if s.cfg.Serialized {
			if err := tx.Events().Lock(ctx, co.Event.ID); err != nil {
				return err
			}
		}

		carts := s.cfg.Carts.WithStore(tx)
		c, err := carts.Get(ctx, co.Request.SessionID, co.Event.ID)
		if err != nil {
			return err
		}
		if c.CheckoutCompleted {
			return apperrors.CartClosed(c.UUID)
		}

		sub := &Submission{Event: co.Event, Request: co.Request, Store: tx, Candidates: candidates}
		for _, validate := range s.cfg.Validators {
			if err := validate(ctx, sub); err != nil {
				return err
			}
		}

		seats = sub.Seats()
		admission, err = s.cfg.Ledger.WithRepository(tx.Registrations()).CanAdmitItems(ctx, co.Event, c, len(sub.Candidates), seats)
		if err != nil {
			return err
		}
		metrics.AdmissionDecisions.WithLabelValues(admission.Decision.String()).Inc()
		if !admission.Admitted() {
			return nil
		}

		state := co.Event.DefaultBookingState()
		if admission.Decision == model.AdmitToWaitingList {
			state = model.StateWaitingList
		}
		bookingType := model.BookingTypeGuest
		if co.Request.MemberID != "" {
			bookingType = model.BookingTypeMember
		}

		now := s.cfg.Clock.Now()
		items := make([]model.CartItem, 0, len(sub.Candidates))
		for _, cand := range sub.Candidates {
			reg := &model.Registration{
				UUID:         uuid.New().String(),
				EventID:      co.Event.ID,
				FirstName:    cand.FirstName,
				LastName:     cand.LastName,
				Email:        cand.Email,
				Quantity:     cand.Quantity,
				Escorts:      cand.Escorts,
				BookingState: state,
				BookingType:  bookingType,
				MemberID:     co.Request.MemberID,
				FormData:     cand.Fields,
				CartUUID:     c.UUID,
				DateAdded:    now,
				UpdatedAt:    now,
			}
			if err := tx.Registrations().Create(ctx, reg); err != nil {
				return err
			}
			items = append(items, model.ItemFromRegistration(reg))
		}
		return carts.AddRegistrations(ctx, c, items...)
	})
	if err != nil {
		return err
	}

	log := logger.WithContext(ctx, s.cfg.Logger)
	switch admission.Decision {
	case model.Admit:
		co.AddMessage(checkout.MessageConfirmation, "The registration has been captured successfully.")
	case model.AdmitToWaitingList:
		co.AddMessage(checkout.MessageInfo, "You have been placed on the waiting list.")
	default:
		log.InfoContext(ctx, "registration rejected",
			slog.String("event_id", co.Event.ID),
			slog.String("status", string(admission.Status)),
			slog.Int("seats", seats),
		)
		if admission.Status == model.StatusCartFull {
			co.AddMessage(checkout.MessageError, "No further registrations can be added to the cart.")
			return nil
		}
		co.AddMessage(checkout.MessageError, "The registration failed. Please check the number of free places.")
		return nil
	}
	log.InfoContext(ctx, "registrations captured",
		slog.String("event_id", co.Event.ID),
		slog.String("decision", admission.Decision.String()),
		slog.Int("line_items", len(candidates)),
	)
	return nil
}

// Prepare exposes the booking availability and the cart contents.
func (s *Subscription) Prepare(ctx context.Context, co *checkout.Checkout) (map[string]any, error) {
	c, err := s.cfg.Carts.Find(ctx, co.Request.SessionID)
	if err != nil {
		return nil, err
	}
	status, err := s.cfg.Ledger.Status(ctx, co.Event, 1)
	if err != nil {
		return nil, err
	}
	admission, err := s.cfg.Ledger.CanAdmit(ctx, co.Event, c, 1)
	if err != nil {
		return nil, err
	}

	items := []model.CartItem{}
	if c != nil {
		items = c.Items
		if limit := co.Event.MaxItemsPerCart; limit > 0 && len(c.Items) >= limit {
			co.AddMessage(checkout.MessageInfo, "No further registrations can be made.")
		}
	}
	return map[string]any{
		"bookingAvailability":        status,
		"bookingAvailabilityExplain": explainStatus(co.Event, status),
		"canRegister":                admission.Admitted(),
		"registrations":              items,
	}, nil
}

func explainStatus(event *model.EventConfig, status model.EventStatus) string {
	switch status {
	case model.StatusNotBookable:
		return "Booking is not available for this event."
	case model.StatusNotYetPossible:
		return "Booking opens on " + event.BookingStartDate.Format("2006-01-02") + "."
	case model.StatusNoLongerPossible:
		return "The booking period has ended."
	case model.StatusBookingPossible:
		return "Seats are available."
	case model.StatusWaitingList:
		return "The event is fully booked, but you can join the waiting list."
	case model.StatusFullyBooked:
		return "The event is fully booked."
	case model.StatusCartFull:
		return "Your cart is full."
	default:
		return ""
	}
}
