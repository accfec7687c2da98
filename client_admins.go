package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// ListAdmins fetches the admin roster, unwrapping the list envelope.
func (c *Client) ListAdmins(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "all-admins", query)
}

// ListPermissions fetches the assignable permission catalog.
func (c *Client) ListPermissions(ctx context.Context) ([]any, error) {
	return c.list(ctx, "all-permissions", ListQuery{})
}

// CreateAdmin registers a new admin from a multipart form (profile fields
// plus a permissions[] list).
func (c *Client) CreateAdmin(ctx context.Context, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "create-admin",
		Body:   form,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// ToggleAdmin flips the active flag of one admin.
func (c *Client) ToggleAdmin(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "toggle-admin/" + id,
		Query:  methodPut(),
	})
	return err
}

// UpdateAdmin updates one admin from a multipart form.
func (c *Client) UpdateAdmin(ctx context.Context, id string, form *transport.Form) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   "update-admin/" + id,
		Body:   form,
		Query:  methodPut(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}

// DeleteAdmin removes one admin.
func (c *Client) DeleteAdmin(ctx context.Context, id string) error {
	_, err := c.do(ctx, transport.Request{
		Method: "DELETE",
		Path:   "delete-admin/" + id,
	})
	return err
}
