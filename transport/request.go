package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request is the typed configuration record for one outbound call. Method
// and Path are required; the remaining fields are the enumerated recognized
// options — nothing is merged ad hoc.
type Request struct {
	Method string
	Path   string
	// Body selects its own encoding: *Form → multipart/form-data,
	// url.Values or string → application/x-www-form-urlencoded,
	// anything else non-nil → JSON.
	Body any
	// Query is appended to the request URL. The _method=PUT override the
	// backend expects on mutation-style POSTs travels here.
	Query url.Values
	// Header carries caller-supplied extras. An explicit Authorization
	// entry is never overwritten by the auto-attached bearer token.
	Header http.Header
}

// Response is a settled successful exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Payload decodes the response body as a generic JSON object. An empty body
// yields an empty map.
func (r *Response) Payload() (map[string]any, error) {
	payload := map[string]any{}
	if len(r.Body) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
