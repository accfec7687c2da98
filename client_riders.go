package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// ListRiders fetches the rider roster, unwrapping the list envelope.
func (c *Client) ListRiders(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "all-riders", query)
}

// ToggleRider flips the active flag of one rider.
func (c *Client) ToggleRider(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "toggle-rider/" + id,
		Query:  methodPut(),
	})
	return err
}

// UpdateRider updates one rider from a multipart form.
func (c *Client) UpdateRider(ctx context.Context, id string, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update-rider/" + id,
		Body:   form,
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// DeleteRider removes one rider.
func (c *Client) DeleteRider(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "DELETE",
		Path:   "delete-rider/" + id,
	})
	return err
}
