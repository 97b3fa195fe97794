package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-checkout/internal/cart"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/ledger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/notification"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	sent []notification.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n notification.Notification) error {
	d.sent = append(d.sent, n)
	return nil
}

type fixture struct {
	store      *memory.Store
	sessions   *session.MemoryStore
	dispatcher *recordingDispatcher
	orch       *checkout.Orchestrator
}

func baseEvent() model.EventConfig {
	return model.EventConfig{
		ID:                         "evt-1",
		Alias:                      "summer-camp",
		Title:                      "Summer Camp",
		CalendarID:                 "cal-1",
		Published:                  true,
		Bookable:                   true,
		BookingEndDate:             now.Add(24 * time.Hour),
		BookingMax:                 2,
		MaxQuantityPerRegistration: 5,
		MaxEscortsPerMember:        1,
		BookingState:               model.StateConfirmed,
		EnableBookingNotification:  true,
		BookingNotifications:       []string{"n-1"},
	}
}

// failingStore fails the failAt-th registration insert, counted across
// transactions.
type failingStore struct {
	repository.Store
	failAt  int
	creates *int
}

func (s failingStore) Registrations() repository.RegistrationRepository {
	return failingRegistrations{RegistrationRepository: s.Store.Registrations(), failAt: s.failAt, creates: s.creates}
}

func (s failingStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(failingStore{Store: tx, failAt: s.failAt, creates: s.creates})
	})
}

type failingRegistrations struct {
	repository.RegistrationRepository
	failAt  int
	creates *int
}

func (r failingRegistrations) Create(ctx context.Context, reg *model.Registration) error {
	*r.creates++
	if *r.creates == r.failAt {
		return errors.New("boom")
	}
	return r.RegistrationRepository.Create(ctx, reg)
}

// orderlessSessions refuses to save a session that carries an order.
type orderlessSessions struct {
	session.Store
}

func (s orderlessSessions) Save(ctx context.Context, id string, sess model.Session) error {
	if sess.OrderID != "" {
		return errors.New("session backend unavailable")
	}
	return s.Store.Save(ctx, id, sess)
}

type fixtureOptions struct {
	wrapStore    func(repository.Store) repository.Store
	wrapSessions func(session.Store) session.Store
}

type fixtureOption func(*fixtureOptions)

func withStore(wrap func(repository.Store) repository.Store) fixtureOption {
	return func(o *fixtureOptions) { o.wrapStore = wrap }
}

func withSessions(wrap func(session.Store) session.Store) fixtureOption {
	return func(o *fixtureOptions) { o.wrapSessions = wrap }
}

func newFixture(t *testing.T, event model.EventConfig, serialized bool, opts ...fixtureOption) *fixture {
	t.Helper()
	var o fixtureOptions
	for _, opt := range opts {
		opt(&o)
	}
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Calendars().Create(ctx, &model.Calendar{
		ID:                 "cal-1",
		CalculateTotalFrom: []model.BookingState{model.StateNotConfirmed, model.StateConfirmed},
	}))
	require.NoError(t, store.Events().Create(ctx, &event))

	clk := clock.NewFixed(now)
	memSessions := session.NewMemoryStore()
	var (
		wired    repository.Store = store
		sessions session.Store    = memSessions
	)
	if o.wrapStore != nil {
		wired = o.wrapStore(store)
	}
	if o.wrapSessions != nil {
		sessions = o.wrapSessions(memSessions)
	}
	carts := cart.NewService(wired, sessions, clk)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := &recordingDispatcher{}

	factory := checkout.NewFactory()
	require.NoError(t, factory.Define(checkout.DefaultType, DefaultPipeline(
		SubscriptionConfig{
			Store:      wired,
			Carts:      carts,
			Ledger:     ledger.New(store.Registrations(), clk),
			Clock:      clk,
			Validators: DefaultValidators(validator.New()),
			Serialized: serialized,
			Logger:     log,
		},
		FinalisationConfig{
			Store:         wired,
			Carts:         carts,
			Sessions:      sessions,
			Clock:         clk,
			CompletionURL: "/checkout/complete",
			Listeners:     DefaultListeners(sessions, dispatcher, log),
			Logger:        log,
		},
	)...))

	orch := checkout.NewOrchestrator(factory, store.Events(), sessions, checkout.Config{}, log)
	return &fixture{store: store, sessions: memSessions, dispatcher: dispatcher, orch: orch}
}

func (f *fixture) submit(t *testing.T, sessionID, step string, form map[string]string) *checkout.Response {
	t.Helper()
	resp, err := f.orch.HandleCheckoutRequest(context.Background(), &checkout.Request{
		SessionID: sessionID,
		EventID:   "evt-1",
		StepID:    step,
		Submit:    true,
		Form:      form,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) cart(t *testing.T, sessionID string) *model.Cart {
	t.Helper()
	ctx := context.Background()
	sess, err := f.sessions.Load(ctx, sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, sess.CartID)
	c, err := f.store.Carts().GetByUUID(ctx, sess.CartID)
	require.NoError(t, err)
	return c
}

func booker(email, quantity string) map[string]string {
	return map[string]string{
		FieldFirstName: "Ada",
		FieldLastName:  "Lovelace",
		FieldEmail:     email,
		FieldQuantity:  quantity,
	}
}

func lastMessage(resp *checkout.Response) checkout.Message {
	if len(resp.Messages) == 0 {
		return checkout.Message{}
	}
	return resp.Messages[len(resp.Messages)-1]
}

func TestCapture_ExactFillThenReject(t *testing.T) {
	f := newFixture(t, baseEvent(), false)
	ctx := context.Background()

	resp := f.submit(t, "s1", SubscriptionID, booker("Ada@Example.org ", "2"))
	assert.Equal(t, SubscriptionID, resp.Step)
	assert.Equal(t, checkout.MessageConfirmation, lastMessage(resp).Type)

	c := f.cart(t, "s1")
	require.Len(t, c.Items, 1)
	reg, err := f.store.Registrations().GetByUUID(ctx, c.Items[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.org", reg.Email)
	assert.Equal(t, 2, reg.Quantity)
	assert.Equal(t, model.StateConfirmed, reg.BookingState)
	assert.Equal(t, model.BookingTypeGuest, reg.BookingType)
	assert.False(t, reg.CheckoutCompleted)
	assert.Equal(t, c.UUID, reg.CartUUID)

	resp = f.submit(t, "s2", SubscriptionID, booker("grace@example.org", "1"))
	assert.Equal(t, checkout.MessageError, lastMessage(resp).Type)
	regs, err := f.store.Registrations().ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestCapture_WaitingListAfterCapacity(t *testing.T) {
	event := baseEvent()
	event.BookingMax = 1
	event.WaitingList = model.WaitingListConfig{Enabled: true, Limit: 1}
	f := newFixture(t, event, true)
	ctx := context.Background()

	f.submit(t, "s1", SubscriptionID, booker("one@example.org", "1"))
	resp := f.submit(t, "s2", SubscriptionID, booker("two@example.org", "1"))
	assert.Equal(t, "You have been placed on the waiting list.", lastMessage(resp).Text)

	reg, err := f.store.Registrations().GetByUUID(ctx, f.cart(t, "s2").Items[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaitingList, reg.BookingState)

	resp = f.submit(t, "s3", SubscriptionID, booker("three@example.org", "1"))
	assert.Equal(t, checkout.MessageError, lastMessage(resp).Type)
}

func TestCapture_DuplicatedFieldsetsAdmittedAsBatch(t *testing.T) {
	event := baseEvent()
	event.BookingMax = 3
	f := newFixture(t, event, false)

	form := booker("ada@example.org", "2")
	form["firstname_duplicate_1"] = "Grace"
	form["lastname_duplicate_1"] = "Hopper"
	form["email_duplicate_1"] = "grace@example.org"
	form["quantity_duplicate_1"] = "2"

	resp := f.submit(t, "s1", SubscriptionID, form)
	assert.Equal(t, checkout.MessageError, lastMessage(resp).Type, "4 seats exceed capacity as a batch")

	form["quantity_duplicate_1"] = ""
	resp = f.submit(t, "s1", SubscriptionID, form)
	assert.Equal(t, checkout.MessageConfirmation, lastMessage(resp).Type)

	c := f.cart(t, "s1")
	require.Len(t, c.Items, 2)
	assert.Equal(t, "Ada", c.Items[0].FirstName)
	assert.Equal(t, "Grace", c.Items[1].FirstName)
	assert.Equal(t, 1, c.Items[1].Quantity)
}

func TestCapture_FailedInsertLeavesNoRows(t *testing.T) {
	event := baseEvent()
	event.BookingMax = 3
	creates := 0
	f := newFixture(t, event, false, withStore(func(s repository.Store) repository.Store {
		return failingStore{Store: s, failAt: 2, creates: &creates}
	}))

	form := booker("ada@example.org", "1")
	form["firstname_duplicate_1"] = "Grace"
	form["lastname_duplicate_1"] = "Hopper"
	form["email_duplicate_1"] = "grace@example.org"

	resp := f.submit(t, "s1", SubscriptionID, form)
	assert.Equal(t, 2, creates)
	assert.Equal(t, checkout.Message{Type: checkout.MessageError, Text: "boom"}, lastMessage(resp))

	regs, err := f.store.Registrations().ListByEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestCapture_BatchMustFitCartLimit(t *testing.T) {
	event := baseEvent()
	event.BookingMax = 10
	event.MaxItemsPerCart = 1
	f := newFixture(t, event, false)
	ctx := context.Background()

	form := booker("ada@example.org", "1")
	for i, name := range []string{"Grace", "Linus"} {
		n := fmt.Sprint(i + 1)
		form["firstname_duplicate_"+n] = name
		form["lastname_duplicate_"+n] = "Doe"
		form["email_duplicate_"+n] = strings.ToLower(name) + "@example.org"
	}

	resp := f.submit(t, "s1", SubscriptionID, form)
	assert.Equal(t, checkout.MessageError, lastMessage(resp).Type)
	assert.Equal(t, "No further registrations can be added to the cart.", lastMessage(resp).Text)
	regs, err := f.store.Registrations().ListByEvent(ctx, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, regs)

	resp = f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "1"))
	assert.Contains(t, resp.Messages, checkout.Message{
		Type: checkout.MessageConfirmation,
		Text: "The registration has been captured successfully.",
	})
	assert.Len(t, f.cart(t, "s1").Items, 1)
}

func TestCapture_QuantityLimitMessage(t *testing.T) {
	event := baseEvent()
	event.MaxQuantityPerRegistration = 1
	f := newFixture(t, event, false)

	resp := f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "2"))
	assert.Equal(t, "at most 1 seat per registration is possible", lastMessage(resp).Text)

	f = newFixture(t, baseEvent(), false)
	resp = f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "6"))
	assert.Equal(t, "at most 5 seats per registration are possible", lastMessage(resp).Text)
}

func TestCapture_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t, baseEvent(), false)

	cases := map[string]map[string]string{
		"duplicate email":  booker("dup@example.org", "1"),
		"quantity too big": booker("big@example.org", "6"),
		"quantity zero":    booker("zero@example.org", "0"),
		"bad email":        booker("not-an-email", "1"),
		"too many escorts": func() map[string]string {
			m := booker("esc@example.org", "1")
			m[FieldEscorts] = "2"
			return m
		}(),
	}
	f.submit(t, "seed", SubscriptionID, booker("dup@example.org", "1"))

	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			resp := f.submit(t, "s-"+name, SubscriptionID, form)
			assert.Equal(t, checkout.MessageError, lastMessage(resp).Type)
			sess, err := f.sessions.Load(context.Background(), "s-"+name)
			require.NoError(t, err)
			if sess.CartID != "" {
				c, err := f.store.Carts().GetByUUID(context.Background(), sess.CartID)
				if err == nil {
					assert.Empty(t, c.Items)
				}
			}
		})
	}
}

func TestRemoveRegistration(t *testing.T) {
	f := newFixture(t, baseEvent(), false)
	ctx := context.Background()

	f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "1"))
	f.submit(t, "s1", SubscriptionID, booker("grace@example.org", "1"))
	c := f.cart(t, "s1")
	require.Len(t, c.Items, 2)
	removed := c.Items[0].UUID

	resp := f.submit(t, "s1", SubscriptionID, map[string]string{FieldFormSubmit: FormRemove, FieldRemove: removed})
	assert.Equal(t, SubscriptionID, resp.Step)

	c = f.cart(t, "s1")
	require.Len(t, c.Items, 1)
	assert.NotEqual(t, removed, c.Items[0].UUID)
	_, err := f.store.Registrations().GetByUUID(ctx, removed)
	assert.Error(t, err)
}

func TestFinalisation_UnreachableWithoutSubscription(t *testing.T) {
	f := newFixture(t, baseEvent(), false)

	resp := f.submit(t, "s1", FinalisationID, nil)
	assert.Equal(t, "/events/evt-1/checkout?step=subscription", resp.Redirect)
}

func TestFinalisation_CommitsOrder(t *testing.T) {
	f := newFixture(t, baseEvent(), false)
	ctx := context.Background()

	f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "2"))
	regUUID := f.cart(t, "s1").Items[0].UUID
	cartUUID := f.cart(t, "s1").UUID

	resp := f.submit(t, "s1", FinalisationID, nil)
	require.True(t, resp.IsRedirect())
	target, err := url.Parse(resp.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "/checkout/complete", target.Path)
	assert.Equal(t, "summer-camp", target.Query().Get("events"))
	orderUUID := target.Query().Get("order")
	require.NotEmpty(t, orderUUID)

	reg, err := f.store.Registrations().GetByUUID(ctx, regUUID)
	require.NoError(t, err)
	assert.True(t, reg.CheckoutCompleted)
	assert.Equal(t, orderUUID, reg.OrderUUID)
	require.NotNil(t, reg.ConfirmedOn)
	assert.Equal(t, now, *reg.ConfirmedOn)

	c, err := f.store.Carts().GetByUUID(ctx, cartUUID)
	require.NoError(t, err)
	assert.True(t, c.CheckoutCompleted)

	order, err := f.store.Orders().GetByUUID(ctx, orderUUID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", order.EventID)

	sess, err := f.sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sess.Empty(), "session is destroyed after the terminal step")

	raw, err := f.sessions.TakeFlash(ctx, "s1", session.FlashCheckoutCompleted)
	require.NoError(t, err)
	var done model.CompletedCheckout
	require.NoError(t, json.Unmarshal(raw, &done))
	assert.Equal(t, orderUUID, done.Order.UUID)
	require.Len(t, done.Registrations, 1)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, regUUID, f.dispatcher.sent[0].RegistrationUUID)
}

func TestFinalisation_SessionFailureAfterCommitStillRedirects(t *testing.T) {
	f := newFixture(t, baseEvent(), false, withSessions(func(s session.Store) session.Store {
		return orderlessSessions{Store: s}
	}))
	ctx := context.Background()

	f.submit(t, "s1", SubscriptionID, booker("ada@example.org", "1"))
	regUUID := f.cart(t, "s1").Items[0].UUID

	resp := f.submit(t, "s1", FinalisationID, nil)
	require.True(t, resp.IsRedirect())
	target, err := url.Parse(resp.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "/checkout/complete", target.Path)
	orderUUID := target.Query().Get("order")
	require.NotEmpty(t, orderUUID)

	_, err = f.store.Orders().GetByUUID(ctx, orderUUID)
	require.NoError(t, err)
	reg, err := f.store.Registrations().GetByUUID(ctx, regUUID)
	require.NoError(t, err)
	assert.True(t, reg.CheckoutCompleted)
	assert.Len(t, f.dispatcher.sent, 1)
}

func TestFinalisation_RollsBackOnMissingRegistration(t *testing.T) {
	f := newFixture(t, baseEvent(), false)
	ctx := context.Background()

	form := booker("ada@example.org", "1")
	form["firstname_duplicate_1"] = "Grace"
	form["lastname_duplicate_1"] = "Hopper"
	form["email_duplicate_1"] = "grace@example.org"
	f.submit(t, "s1", SubscriptionID, form)
	c := f.cart(t, "s1")
	require.Len(t, c.Items, 2)
	require.NoError(t, f.store.Registrations().DeleteByUUID(ctx, c.Items[1].UUID))

	resp := f.submit(t, "s1", FinalisationID, nil)
	assert.False(t, resp.IsRedirect())
	assert.Equal(t, FinalisationID, resp.Step)
	assert.Equal(t, checkout.MessageError, lastMessage(resp).Type)

	reg, err := f.store.Registrations().GetByUUID(ctx, c.Items[0].UUID)
	require.NoError(t, err)
	assert.False(t, reg.CheckoutCompleted)
	assert.Empty(t, reg.OrderUUID)

	assert.False(t, f.cart(t, "s1").CheckoutCompleted)
	assert.Empty(t, f.dispatcher.sent)
}

func TestSubscription_PrepareReportsAvailability(t *testing.T) {
	f := newFixture(t, baseEvent(), false)

	resp, err := f.orch.HandleCheckoutRequest(context.Background(), &checkout.Request{SessionID: "s1", EventID: "evt-1", StepID: SubscriptionID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusBookingPossible, resp.Data["bookingAvailability"])
	assert.Equal(t, true, resp.Data["canRegister"])
	assert.Equal(t, "", resp.Data["nextStepHref"])
}

func TestSplitFieldsets(t *testing.T) {
	sets := splitFieldsets(map[string]string{
		"firstname":             "Ada",
		"firstname_duplicate_2": "Linus",
		"firstname_duplicate_1": "Grace",
		"email_duplicate_1":     "grace@example.org",
		FieldFormSubmit:         "booking",
	})
	require.Len(t, sets, 3)
	assert.Equal(t, map[string]string{"firstname": "Ada"}, sets[0])
	assert.Equal(t, map[string]string{"firstname": "Grace", "email": "grace@example.org"}, sets[1])
	assert.Equal(t, map[string]string{"firstname": "Linus"}, sets[2])
}
