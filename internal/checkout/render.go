package checkout

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Renderer turns a step template and its data into a response body.
type Renderer interface {
	Render(template string, data map[string]any) (json.RawMessage, error)
}

// JSONRenderer renders a step as a JSON document naming its template.
type JSONRenderer struct{}

// Render wraps data together with the template name.
func (JSONRenderer) Render(template string, data map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(struct {
		Template string         `json:"template"`
		Data     map[string]any `json:"data"`
	}{Template: template, Data: data})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", template, err)
	}
	return body, nil
}

// URLBuilder returns the URL of a checkout step.
type URLBuilder func(eventID, stepID string) string

// QueryURLBuilder builds step URLs carrying the step in the param query
// parameter.
func QueryURLBuilder(param string) URLBuilder {
	return func(eventID, stepID string) string {
		return "/events/" + url.PathEscape(eventID) + "/checkout?" + url.Values{param: {stepID}}.Encode()
	}
}
