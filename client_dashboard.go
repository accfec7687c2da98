package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// DashboardStats is the aggregate view backing the admin dashboard. When the
// dedicated endpoint is missing, counts are reconstructed from the individual
// list endpoints.
type DashboardStats struct {
	Riders  int            `json:"riders"`
	Drivers int            `json:"drivers"`
	Cranes  int            `json:"cranes"`
	Admins  int            `json:"admins"`
	Raw     map[string]any `json:"-"`
}

// FetchDashboardStats tries the dashboard-stats endpoint first. Backends
// without it answer 404; the stats are then assembled from the four roster
// lists. Cancellations and auth failures are surfaced, not papered over.
func (c *Client) FetchDashboardStats(ctx context.Context) (*DashboardStats, error) {
	resp, err := c.do(ctx, transport.Request{Method: "GET", Path: "dashboard-stats"})
	if err == nil {
		payload, err := resp.Payload()
		if err != nil {
			return nil, err
		}
		return statsFromPayload(payload), nil
	}

	if IsCancellation(err) || IsTimeout(err) || IsUnauthorized(err) {
		return nil, err
	}
	c.logger.Warn().Err(err).Msg("dashboard-stats endpoint unavailable, assembling from list endpoints")

	stats := &DashboardStats{}
	for _, source := range []struct {
		path  string
		count *int
	}{
		{"all-riders", &stats.Riders},
		{"all-drivers", &stats.Drivers},
		{"all-cranes", &stats.Cranes},
		{"all-admins", &stats.Admins},
	} {
		items, err := c.list(ctx, source.path, ListQuery{})
		if err != nil {
			return nil, err
		}
		*source.count = len(items)
	}
	return stats, nil
}

func statsFromPayload(payload map[string]any) *DashboardStats {
	data := payload
	if inner, ok := payload["data"].(map[string]any); ok {
		data = inner
	}

	stats := &DashboardStats{Raw: data}
	for _, field := range []struct {
		key   string
		count *int
	}{
		{"riders", &stats.Riders},
		{"drivers", &stats.Drivers},
		{"cranes", &stats.Cranes},
		{"admins", &stats.Admins},
	} {
		if value, ok := data[field.key].(float64); ok {
			*field.count = int(value)
		}
	}
	return stats
}
