// Package interfaces defines the core abstractions of the resolution pipeline.
// Resolvers only talk to the network through a Session, which keeps them
// testable against httptest servers or fakes.
package interfaces

import (
	"context"
	"net/http"

	"key-resolver-go/pkg/types"
)

// Session is the HTTP state of one resolution attempt: a cookie jar and the
// default headers. Per-request headers never leak into later requests.
type Session interface {
	// Do performs the request and returns the fully read response.
	// Transport failures are wrapped in types.ErrNetwork.
	Do(ctx context.Context, req *types.Request) (*types.Response, error)

	// SetCookies seeds the jar for the given URL.
	SetCookies(rawURL string, cookies []*http.Cookie)
}

// Resolver turns a keyUrl into the final key for one upstream service.
//
// To add a new resolver:
// 1. Create a new file in pkg/resolvers/
// 2. Add a route in pkg/types and a match arm in pkg/router
// 3. Register it in the ResolverRegistry (internal/app)
type Resolver interface {
	// Name returns a unique identifier for this resolver.
	Name() string

	// Route returns the routing decision this resolver serves.
	Route() types.Route

	// Resolve walks the upstream flow. It returns exactly one of a key or a failure.
	Resolve(ctx context.Context, sess Session, keyURL string) types.Result
}
