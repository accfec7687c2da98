package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// GetSettings fetches the platform settings document.
func (c *Client) GetSettings(ctx context.Context) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{Method: "GET", Path: "get-settings"})
	if err != nil {
		return nil, err
	}

	payload, err := resp.Payload()
	if err != nil {
		return nil, err
	}
	if data, ok := payload["data"].(map[string]any); ok {
		return data, nil
	}
	return payload, nil
}

// UpdateSettings writes platform settings. The endpoint takes a URL-encoded
// body through the POST+_method=PUT override; nil fields are omitted.
func (c *Client) UpdateSettings(ctx context.Context, fields map[string]any) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update-settings",
		Body:   transport.Values(fields),
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}
