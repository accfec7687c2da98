package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// ListDrivers fetches the driver roster, unwrapping the list envelope.
func (c *Client) ListDrivers(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "all-drivers", query)
}

// ToggleDriver flips the active flag of one driver.
func (c *Client) ToggleDriver(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "toggle-driver/" + id,
		Query:  methodPut(),
	})
	return err
}

// UpdateDriver updates one driver from a multipart form.
func (c *Client) UpdateDriver(ctx context.Context, id string, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update-driver/" + id,
		Body:   form,
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// DeleteDriver removes one driver.
func (c *Client) DeleteDriver(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "DELETE",
		Path:   "delete-driver/" + id,
	})
	return err
}
