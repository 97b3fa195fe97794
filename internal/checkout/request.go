package checkout

import (
	"encoding/json"

	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

// Request is one inbound checkout request.
type Request struct {
	SessionID string
	EventID   string
	// StepID is the requested step; empty when the parameter was absent.
	StepID string
	// Submit is set for commit attempts (POST).
	Submit   bool
	Form     map[string]string
	MemberID string
}

// Field returns a submitted form value.
func (r *Request) Field(name string) string {
	if r.Form == nil {
		return ""
	}
	return r.Form[name]
}

// Response is either a redirect or a rendered step.
type Response struct {
	Redirect   string           `json:"redirect,omitempty"`
	Step       string           `json:"step,omitempty"`
	Body       json.RawMessage  `json:"body,omitempty"`
	Data       map[string]any   `json:"data,omitempty"`
	Navigation []NavigationItem `json:"navigation,omitempty"`
	Messages   []Message        `json:"messages,omitempty"`
}

// RedirectTo builds a redirect response.
func RedirectTo(url string) *Response {
	return &Response{Redirect: url}
}

// IsRedirect reports whether the response is a redirect.
func (r *Response) IsRedirect() bool {
	return r.Redirect != ""
}

// NavigationItem describes one step of the pipeline relative to the current
// one.
type NavigationItem struct {
	Index         int    `json:"index"`
	Identifier    string `json:"identifier"`
	IsPredecessor bool   `json:"is_predecessor"`
	IsCurrent     bool   `json:"is_current"`
	IsSuccessor   bool   `json:"is_successor"`
	IsReachable   bool   `json:"is_reachable"`
	URI           string `json:"uri,omitempty"`
}

// stepData is the common data every rendered step receives.
func stepData(co *Checkout, step Step, prevHref, nextHref string) map[string]any {
	return map[string]any{
		"event":            eventView(co.Event),
		"identifier":       step.Identifier(),
		"previousStepHref": prevHref,
		"nextStepHref":     nextHref,
	}
}

func eventView(e *model.EventConfig) map[string]any {
	return map[string]any{
		"id":    e.ID,
		"alias": e.Alias,
		"title": e.Title,
	}
}
