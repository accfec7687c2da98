package heavyride

import (
	"context"

	"github.com/teamqeematech/heavyride-go/transport"
)

// WithLocale attaches a per-call UI locale override to ctx. The transport
// sends it as Accept-Language instead of the configured default.
func WithLocale(ctx context.Context, locale string) context.Context {
	return transport.WithLocale(ctx, locale)
}
