package heavyride

import (
	"context"
	"strconv"

	"github.com/teamqeematech/heavyride-go/transport"
)

// MyTransactions fetches the authenticated user's wallet transactions.
func (c *Client) MyTransactions(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "my-transactions", query)
}

// MyWithdrawRequests fetches the authenticated user's withdraw requests.
func (c *Client) MyWithdrawRequests(ctx context.Context, query ListQuery) ([]any, error) {
	return c.list(ctx, "my-withdraw-requests", query)
}

// AddWithdrawRequest files a withdraw request. Amounts travel URL-encoded.
func (c *Client) AddWithdrawRequest(ctx context.Context, amount float64) (map[string]any, error) {
	return c.postAmount(ctx, "add-withdraw-request", amount)
}

// ChargeMyWallet tops the wallet up. Amounts travel URL-encoded.
func (c *Client) ChargeMyWallet(ctx context.Context, amount float64) (map[string]any, error) {
	return c.postAmount(ctx, "charge-my-wallet", amount)
}

func (c *Client) postAmount(ctx context.Context, path string, amount float64) (map[string]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "POST",
		Path:   path,
		Body:   transport.Values(map[string]any{"amount": strconv.FormatFloat(amount, 'f', -1, 64)}),
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload()
}
