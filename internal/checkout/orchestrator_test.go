package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

func newTestOrchestrator(t *testing.T, hooks Hooks, defs ...Definition) (*Orchestrator, *session.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Events().Create(ctx, &model.EventConfig{
		ID:        "evt-1",
		Alias:     "summer-camp",
		Published: true,
		Bookable:  true,
	}))
	require.NoError(t, store.Events().Create(ctx, &model.EventConfig{ID: "evt-hidden"}))
	require.NoError(t, store.Events().Create(ctx, &model.EventConfig{ID: "evt-closed", Published: true}))

	f := NewFactory()
	require.NoError(t, f.Define(DefaultType, defs...))
	sessions := session.NewMemoryStore()
	o := NewOrchestrator(f, store.Events(), sessions, Config{Hooks: hooks}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return o, sessions
}

func TestHandle_UnknownStepRedirectsToFirst(t *testing.T) {
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, newFake("subscription")), fixed(10, newFake("finalisation")))

	for _, stepID := range []string{"", "nope"} {
		resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: stepID})
		require.NoError(t, err)
		assert.Equal(t, "/events/evt-1/checkout?step=subscription", resp.Redirect)
	}
}

func TestHandle_UnpublishedEvent(t *testing.T) {
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(10, newFake("only")))

	_, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-hidden"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "missing"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHandle_BookingFormDisabled(t *testing.T) {
	o, sessions := newTestOrchestrator(t, Hooks{}, fixed(10, newFake("only")))

	_, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-closed", StepID: "only"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sess, err := sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, sess.Empty(), "no session is bound to a closed event")
}

func TestHandle_InvalidPredecessorRedirectsBack(t *testing.T) {
	sub := &validatingStep{fakeStep: newFake("subscription"), valid: false}
	fin := &redirectingStep{fakeStep: newFake("finalisation"), target: "/done"}
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, sub), fixed(10, fin))

	resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "finalisation", Submit: true})
	require.NoError(t, err)
	assert.Equal(t, "/events/evt-1/checkout?step=subscription", resp.Redirect)
	assert.Equal(t, 0, fin.commits)
	assert.False(t, fin.initialized)
}

func TestHandle_RendersWithNavigation(t *testing.T) {
	sub := &validatingStep{fakeStep: newFake("subscription"), valid: true}
	sub.prepareData = map[string]any{"registrations": []string{"r1"}}
	fin := &redirectingStep{fakeStep: newFake("finalisation"), target: "/done"}
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, sub), fixed(10, fin))

	resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "subscription"})
	require.NoError(t, err)
	require.False(t, resp.IsRedirect())

	assert.Equal(t, "subscription", resp.Step)
	assert.True(t, sub.initialized)
	assert.Equal(t, []string{"r1"}, resp.Data["registrations"])
	assert.Equal(t, "/events/evt-1/checkout?step=finalisation", resp.Data["nextStepHref"])
	assert.Equal(t, "", resp.Data["previousStepHref"])
	assert.Contains(t, string(resp.Body), `"template":"tpl_subscription"`)
	assert.Equal(t, 1, sub.calls, "validation is memoised per request")

	require.Len(t, resp.Navigation, 2)
	assert.Equal(t, NavigationItem{Index: 0, Identifier: "subscription", IsCurrent: true, IsReachable: true, URI: "/events/evt-1/checkout?step=subscription"}, resp.Navigation[0])
	assert.Equal(t, NavigationItem{Index: 1, Identifier: "finalisation", IsSuccessor: true, IsReachable: true, URI: "/events/evt-1/checkout?step=finalisation"}, resp.Navigation[1])
}

func TestHandle_NavigationMarksUnreachableSteps(t *testing.T) {
	sub := &validatingStep{fakeStep: newFake("subscription"), valid: false}
	fin := &redirectingStep{fakeStep: newFake("finalisation"), target: "/done"}
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, sub), fixed(10, fin))

	resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "subscription"})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Data["nextStepHref"])
	assert.False(t, resp.Navigation[1].IsReachable)
	assert.Empty(t, resp.Navigation[1].URI)
}

func TestHandle_AutoForward(t *testing.T) {
	info := &validatingStep{fakeStep: newFake("info"), valid: true}
	info.forward = true
	fin := &redirectingStep{fakeStep: newFake("finalisation"), target: "/done"}
	o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, info), fixed(10, fin))

	resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "info"})
	require.NoError(t, err)
	assert.Equal(t, "/events/evt-1/checkout?step=finalisation", resp.Redirect)
	assert.False(t, info.initialized)
}

func TestHandle_CommitOutcomes(t *testing.T) {
	t.Run("advance to next step", func(t *testing.T) {
		first := newFake("first")
		first.commitOK = true
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, first), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))

		resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "first", Submit: true})
		require.NoError(t, err)
		assert.Equal(t, "/events/evt-1/checkout?step=last", resp.Redirect)
	})

	t.Run("terminal step redirects itself", func(t *testing.T) {
		last := &redirectingStep{fakeStep: newFake("last"), target: "/done?order=1"}
		last.commitOK = true
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, newFake("first")), fixed(10, last))

		resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "last", Submit: true})
		require.NoError(t, err)
		assert.Equal(t, "/done?order=1", resp.Redirect)
	})

	t.Run("terminal step without response", func(t *testing.T) {
		last := newFake("last")
		last.commitOK = true
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, newFake("first")), fixed(10, last))

		_, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "last", Submit: true})
		assert.ErrorIs(t, err, apperrors.ErrMissingTerminalResponse)
	})

	t.Run("business error re-renders with message", func(t *testing.T) {
		first := newFake("first")
		first.commitErr = apperrors.CartClosed("cart-1")
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, first), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))

		resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "first", Submit: true})
		require.NoError(t, err)
		assert.Equal(t, "first", resp.Step)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, MessageError, resp.Messages[0].Type)
	})

	t.Run("storage error is fatal", func(t *testing.T) {
		first := newFake("first")
		first.commitErr = apperrors.Storage("insert registration", errors.New("connection reset"))
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, first), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))

		_, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "first", Submit: true})
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})

	t.Run("prepare error is fatal", func(t *testing.T) {
		first := newFake("first")
		first.prepareErr = errors.New("template missing")
		o, _ := newTestOrchestrator(t, Hooks{}, fixed(20, first), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))

		_, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "first"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "template missing")
	})
}

func TestHandle_ResolveStepHook(t *testing.T) {
	hook := func(_ context.Context, co *Checkout, step Step) (Step, *Response, error) {
		if co.Request.Field("maintenance") == "1" {
			return nil, RedirectTo("/maintenance"), nil
		}
		return step, nil, nil
	}
	o, _ := newTestOrchestrator(t, Hooks{ResolveStep: []ResolveStepHook{hook}},
		fixed(20, newFake("first")), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))

	resp, err := o.HandleCheckoutRequest(context.Background(), &Request{SessionID: "s1", EventID: "evt-1", StepID: "first", Form: map[string]string{"maintenance": "1"}})
	require.NoError(t, err)
	assert.Equal(t, "/maintenance", resp.Redirect)
}

func TestHandle_BeforeRenderInterruptionFlashesMessage(t *testing.T) {
	stop := true
	hook := func(context.Context, *Checkout, Step, map[string]any) (*Interruption, error) {
		if !stop {
			return nil, nil
		}
		return &Interruption{Message: Message{Type: MessageError, Text: "event sold out"}}, nil
	}
	o, _ := newTestOrchestrator(t, Hooks{BeforeRender: []BeforeRenderHook{hook}},
		fixed(20, newFake("first")), fixed(10, &redirectingStep{fakeStep: newFake("last"), target: "/done"}))
	ctx := context.Background()

	resp, err := o.HandleCheckoutRequest(ctx, &Request{SessionID: "s1", EventID: "evt-1", StepID: "last"})
	require.NoError(t, err)
	assert.Equal(t, "/events/evt-1/checkout?step=first", resp.Redirect)

	stop = false
	resp, err = o.HandleCheckoutRequest(ctx, &Request{SessionID: "s1", EventID: "evt-1", StepID: "first"})
	require.NoError(t, err)
	assert.Equal(t, []Message{{Type: MessageError, Text: "event sold out"}}, resp.Messages)

	resp, err = o.HandleCheckoutRequest(ctx, &Request{SessionID: "s1", EventID: "evt-1", StepID: "first"})
	require.NoError(t, err)
	assert.Empty(t, resp.Messages, "flash is consumed once")
}

func TestHandle_ResetsSessionOfAnotherEvent(t *testing.T) {
	o, sessions := newTestOrchestrator(t, Hooks{}, fixed(10, &redirectingStep{fakeStep: newFake("only"), target: "/done"}))
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, "s1", model.Session{EventID: "evt-other", CartID: "cart-9"}))

	_, err := o.HandleCheckoutRequest(ctx, &Request{SessionID: "s1", EventID: "evt-1", StepID: "only"})
	require.NoError(t, err)

	sess, err := sessions.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.Session{EventID: "evt-1"}, sess)
}
