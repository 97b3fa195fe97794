package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/logger"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkout/internal/session"
)

// Config tunes an Orchestrator. Zero values select the defaults.
type Config struct {
	CheckoutType string
	URLs         URLBuilder
	Renderer     Renderer
	Hooks        Hooks
}

// Orchestrator handles one checkout request at a time per call. It holds no
// request state and is safe for concurrent use.
type Orchestrator struct {
	factory  *Factory
	events   repository.EventRepository
	sessions session.Store
	cfg      Config
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(factory *Factory, events repository.EventRepository, sessions session.Store, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.CheckoutType == "" {
		cfg.CheckoutType = DefaultType
	}
	if cfg.URLs == nil {
		cfg.URLs = QueryURLBuilder("step")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = JSONRenderer{}
	}
	return &Orchestrator{factory: factory, events: events, sessions: sessions, cfg: cfg, logger: logger}
}

// HandleCheckoutRequest resolves the requested step, enforces that every
// predecessor validates, then commits or renders it. Errors returned are
// fatal; commit failures a booker can fix are rendered as messages.
func (o *Orchestrator) HandleCheckoutRequest(ctx context.Context, req *Request) (*Response, error) {
	log := logger.WithContext(ctx, o.logger).With(slog.String("event_id", req.EventID))

	event, err := o.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	// Hidden events and events with the booking form switched off have no
	// checkout.
	if !event.Published || !event.Bookable {
		return nil, apperrors.NotFound("event", req.EventID)
	}
	if err := o.bindSession(ctx, req); err != nil {
		return nil, err
	}

	reg, err := o.factory.Create(o.cfg.CheckoutType, event, req)
	if err != nil {
		return nil, err
	}
	co := &Checkout{Event: event, Request: req}

	var step Step
	if req.StepID != "" {
		step, _ = reg.Get(req.StepID)
	}
	for _, hook := range o.cfg.Hooks.ResolveStep {
		replaced, resp, err := hook(ctx, co, step)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
		step = replaced
	}

	if step == nil {
		first := reg.First()
		log.DebugContext(ctx, "redirecting to first step", slog.String("requested", req.StepID))
		return o.redirect(event, first), nil
	}
	id := step.Identifier()

	v := newValidity(co)
	for _, prev := range reg.AllPrevious(id) {
		ok, err := v.valid(ctx, prev)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.DebugContext(ctx, "predecessor not valid",
				slog.String("step", id),
				slog.String("redirect", prev.Identifier()),
			)
			return o.redirect(event, prev), nil
		}
	}

	if _, ok := step.(Validator); ok {
		valid, err := v.valid(ctx, step)
		if err != nil {
			return nil, err
		}
		if valid {
			forward, err := step.AutoForward(ctx, co)
			if err != nil {
				return nil, err
			}
			if forward && reg.HasNext(id) {
				next, _ := reg.Next(id)
				return o.redirect(event, next), nil
			}
		}
	}

	if err := step.Initialize(ctx, co); err != nil {
		return nil, fmt.Errorf("initialize step %s: %w", id, err)
	}

	if req.Submit {
		resp, err := o.commit(ctx, log, reg, co, step)
		if err != nil || resp != nil {
			return resp, err
		}
		v.reset()
	}

	return o.render(ctx, log, reg, co, step, v)
}

func (o *Orchestrator) commit(ctx context.Context, log *slog.Logger, reg *Registry, co *Checkout, step Step) (*Response, error) {
	id := step.Identifier()
	advance, err := step.Commit(ctx, co)
	if err != nil {
		if apperrors.IsFatal(err) {
			metrics.StepCommits.WithLabelValues(id, "fatal").Inc()
			return nil, err
		}
		metrics.StepCommits.WithLabelValues(id, "failed").Inc()
		log.WarnContext(ctx, "step commit failed", slog.String("step", id), slog.String("error", err.Error()))
		co.AddMessage(MessageError, apperrors.UserMessage(err))
		return nil, nil
	}
	if !advance {
		metrics.StepCommits.WithLabelValues(id, "stayed").Inc()
		return nil, nil
	}
	metrics.StepCommits.WithLabelValues(id, "advanced").Inc()

	var resp *Response
	if r, ok := step.(Redirector); ok {
		resp, err = r.Response(ctx, co)
		if err != nil {
			return nil, fmt.Errorf("response of step %s: %w", id, err)
		}
	}
	if resp == nil {
		next, err := reg.Next(id)
		if err != nil {
			return nil, apperrors.MissingTerminalResponse(id)
		}
		resp = o.redirect(co.Event, next)
	}
	return resp, nil
}

func (o *Orchestrator) render(ctx context.Context, log *slog.Logger, reg *Registry, co *Checkout, step Step, v *validity) (*Response, error) {
	id := step.Identifier()

	prepared, err := step.Prepare(ctx, co)
	if err != nil {
		return nil, fmt.Errorf("prepare step %s: %w", id, err)
	}

	var prevHref, nextHref string
	if prev, err := reg.Previous(id); err == nil {
		prevHref = o.cfg.URLs(co.Event.ID, prev.Identifier())
	}
	if next, err := reg.Next(id); err == nil {
		ok := true
		if _, isValidator := step.(Validator); isValidator {
			if ok, err = v.valid(ctx, step); err != nil {
				return nil, err
			}
		}
		if ok {
			nextHref = o.cfg.URLs(co.Event.ID, next.Identifier())
		}
	}

	data := stepData(co, step, prevHref, nextHref)
	maps.Copy(data, prepared)

	for _, hook := range o.cfg.Hooks.BeforeRender {
		stop, err := hook(ctx, co, step, data)
		if err != nil {
			return nil, err
		}
		if stop == nil {
			continue
		}
		if stop.Message.Text != "" {
			if err := o.flash(ctx, co.Request.SessionID, stop.Message); err != nil {
				return nil, err
			}
		}
		log.DebugContext(ctx, "render interrupted", slog.String("step", id))
		if stop.Response != nil {
			return stop.Response, nil
		}
		return o.redirect(co.Event, reg.First()), nil
	}

	messages, err := o.takeFlash(ctx, co.Request.SessionID)
	if err != nil {
		return nil, err
	}
	messages = append(messages, co.Messages...)

	nav, err := o.navigation(ctx, reg, co, id, v)
	if err != nil {
		return nil, err
	}

	body, err := o.cfg.Renderer.Render(step.Template(), data)
	if err != nil {
		return nil, err
	}
	return &Response{
		Step:       id,
		Body:       body,
		Data:       data,
		Navigation: nav,
		Messages:   messages,
	}, nil
}

// navigation marks every step as predecessor, current or successor. A step
// is reachable when all of its predecessors validate.
func (o *Orchestrator) navigation(ctx context.Context, reg *Registry, co *Checkout, current string, v *validity) ([]NavigationItem, error) {
	currentIdx := reg.IndexOf(current)
	steps := reg.All()
	items := make([]NavigationItem, 0, len(steps))
	for i, s := range steps {
		item := NavigationItem{
			Index:         i,
			Identifier:    s.Identifier(),
			IsCurrent:     i == currentIdx,
			IsPredecessor: i < currentIdx,
			IsSuccessor:   i > currentIdx,
			IsReachable:   true,
		}
		for _, prev := range reg.AllPrevious(s.Identifier()) {
			ok, err := v.valid(ctx, prev)
			if err != nil {
				return nil, err
			}
			if !ok {
				item.IsReachable = false
				break
			}
		}
		if item.IsReachable {
			item.URI = o.cfg.URLs(co.Event.ID, s.Identifier())
		}
		items = append(items, item)
	}
	return items, nil
}

// bindSession resets a session that belongs to another event.
func (o *Orchestrator) bindSession(ctx context.Context, req *Request) error {
	sess, err := o.sessions.Load(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if sess.EventID == req.EventID {
		return nil
	}
	return o.sessions.Save(ctx, req.SessionID, model.Session{EventID: req.EventID})
}

func (o *Orchestrator) redirect(event *model.EventConfig, step Step) *Response {
	return RedirectTo(o.cfg.URLs(event.ID, step.Identifier()))
}

func (o *Orchestrator) flash(ctx context.Context, sessionID string, msg Message) error {
	raw, err := json.Marshal([]Message{msg})
	if err != nil {
		return fmt.Errorf("marshal flash message: %w", err)
	}
	return o.sessions.SetFlash(ctx, sessionID, session.FlashMessage, raw)
}

func (o *Orchestrator) takeFlash(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := o.sessions.TakeFlash(ctx, sessionID, session.FlashMessage)
	if err != nil || raw == nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		o.logger.WarnContext(ctx, "discarding malformed flash message", slog.String("error", err.Error()))
		return nil, nil
	}
	return msgs, nil
}

// validity memoises step validation within one request. Steps without a
// validator count as valid.
type validity struct {
	co    *Checkout
	cache map[string]bool
}

func newValidity(co *Checkout) *validity {
	return &validity{co: co, cache: make(map[string]bool)}
}

func (v *validity) valid(ctx context.Context, step Step) (bool, error) {
	val, ok := step.(Validator)
	if !ok {
		return true, nil
	}
	if res, ok := v.cache[step.Identifier()]; ok {
		return res, nil
	}
	res, err := val.Validate(ctx, v.co)
	if err != nil {
		return false, err
	}
	v.cache[step.Identifier()] = res
	return res, nil
}

// reset drops memoised results after a commit changed state.
func (v *validity) reset() {
	clear(v.cache)
}
