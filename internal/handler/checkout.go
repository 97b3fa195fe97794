package handler

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/checkout"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

// MemberHeader carries the id of an authenticated member, if any.
const MemberHeader = "X-Member-ID"

// CheckoutHandler exposes the checkout orchestrator over HTTP.
type CheckoutHandler struct {
	orch      *checkout.Orchestrator
	sessions  session.Store
	stepParam string
}

// NewCheckoutHandler constructs a CheckoutHandler. stepParam names the
// query parameter carrying the step id when it is not in the path.
func NewCheckoutHandler(orch *checkout.Orchestrator, sessions session.Store, stepParam string) *CheckoutHandler {
	return &CheckoutHandler{orch: orch, sessions: sessions, stepParam: stepParam}
}

// Checkout handles GET|POST /events/{eventID}/checkout[/{step}]
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	req := &checkout.Request{
		SessionID: logger.SessionIDFromContext(r.Context()),
		EventID:   chi.URLParam(r, "eventID"),
		StepID:    chi.URLParam(r, "step"),
		Submit:    r.Method == http.MethodPost,
		MemberID:  r.Header.Get(MemberHeader),
	}
	if req.StepID == "" {
		req.StepID = r.URL.Query().Get(h.stepParam)
	}
	if req.Submit {
		form, err := readForm(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.Form = form
	}

	resp, err := h.orch.HandleCheckoutRequest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if resp.IsRedirect() {
		http.Redirect(w, r, resp.Redirect, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Complete handles GET /checkout/complete and shows the order committed
// by this session once.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	raw, err := h.sessions.TakeFlash(r.Context(), logger.SessionIDFromContext(r.Context()), session.FlashCheckoutCompleted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if raw == nil {
		writeError(w, r, apperrors.NotFound("completed checkout", r.URL.Query().Get("order")))
		return
	}
	var done model.CompletedCheckout
	if err := json.Unmarshal(raw, &done); err != nil {
		writeError(w, r, apperrors.Storage("decode completed checkout", err))
		return
	}
	writeJSON(w, http.StatusOK, done)
}

// readForm accepts a JSON object of strings or a classic form post. Only
// the first value of repeated form keys is kept.
func readForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	form := make(map[string]string)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &form); err != nil {
			return nil, err
		}
		return form, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		return nil, apperrors.InvalidInput("invalid form body: " + err.Error())
	}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			form[key] = values[0]
		}
	}
	return form, nil
}
