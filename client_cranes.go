package heavyride

import (
	"context"
	"net/url"

	"github.com/teamqeematech/heavyride-go/transport"
)

// ListCranes fetches the crane fleet, unwrapping the list envelope.
func (c *Client) ListCranes(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "all-cranes", query)
}

// GetCrane fetches one crane by ID.
func (c *Client) GetCrane(ctx context.Context, id string) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "GET",
		Path:   "single-crane/" + id,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// CreateCrane registers a new crane from a multipart form (specs plus photo
// uploads).
func (c *Client) CreateCrane(ctx context.Context, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "create-crane",
		Body:   form,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// UpdateCrane updates one crane from a multipart form.
func (c *Client) UpdateCrane(ctx context.Context, id string, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update-crane/" + id,
		Body:   form,
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// DeleteCrane removes one crane.
func (c *Client) DeleteCrane(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "DELETE",
		Path:   "delete-crane/" + id,
	})
	return err
}

// ToggleCrane flips a crane's availability. Unlike the rider and driver
// toggles, the crane endpoint takes its switches as query parameters.
func (c *Client) ToggleCrane(ctx context.Context, id string, params url.Values) error {
	query := methodPut()
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "crane-toggle/" + id,
		Query:  query,
	})
	return err
}
