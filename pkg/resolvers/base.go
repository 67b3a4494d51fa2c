// Package resolvers provides the per-service keyUrl resolvers.
// Each resolver walks one upstream's redirect and scraping flow to recover
// the final key.
//
// To add a new resolver:
// 1. Create a new file (e.g., myservice.go)
// 2. Implement the Resolver interface
// 3. Register it in the registry (see internal/app)
package resolvers

import (
	"context"
	"fmt"
	"time"

	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/types"
)

// BaseResolver provides common functionality for resolvers.
type BaseResolver struct {
	component string
	timeout   time.Duration
	log       *logging.Logger
}

// NewBaseResolver creates a new base resolver.
func NewBaseResolver(component string, timeout time.Duration, log *logging.Logger) *BaseResolver {
	return &BaseResolver{
		component: component,
		timeout:   timeout,
		log:       log,
	}
}

// Logger returns the attempt logger carried on ctx (or the resolver's own),
// tagged with the resolver component.
func (b *BaseResolver) Logger(ctx context.Context) *logging.Logger {
	return logging.FromContext(ctx, b.log).WithComponent(b.component)
}

// Do performs req through the session with the resolver's timeout.
func (b *BaseResolver) Do(ctx context.Context, sess interfaces.Session, req *types.Request) (*types.Response, error) {
	if req.Timeout == 0 {
		req.Timeout = b.timeout
	}
	resp, err := sess.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	b.Logger(ctx).WithURL(req.URL).Debug("response", "status", resp.StatusCode)
	return resp, nil
}

// expectRedirect requires a 3xx with a Location header and returns the target.
func expectRedirect(resp *types.Response, step string) (string, error) {
	if !resp.IsRedirect() {
		return "", fmt.Errorf("%w: %s did not redirect as expected: status %d", types.ErrRouting, step, resp.StatusCode)
	}
	loc := resp.Location()
	if loc == "" {
		return "", fmt.Errorf("%w: %s redirect has no Location header", types.ErrRouting, step)
	}
	return loc, nil
}

// expectOK requires HTTP 200.
func expectOK(resp *types.Response, step string) error {
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: %s failed with status code %d", types.ErrNetwork, step, resp.StatusCode)
	}
	return nil
}
