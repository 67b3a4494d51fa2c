// Package auth resolves the routing keyUrl from the generate-token endpoint.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/types"
	"key-resolver-go/pkg/urlutil"
)

// GeneratePath is appended to the decoded base URL.
const GeneratePath = "/api/v1/auth/generate?server=1"

// Resolver calls the generate-token endpoint.
type Resolver struct {
	timeout time.Duration
	log     *logging.Logger
}

// NewResolver creates a new auth resolver.
func NewResolver(timeout time.Duration, log *logging.Logger) *Resolver {
	return &Resolver{
		timeout: timeout,
		log:     log,
	}
}

// Endpoint returns the generate URL for baseURL.
func Endpoint(baseURL string) string {
	return urlutil.JoinPath(baseURL, GeneratePath)
}

// Resolve returns data.keyUrl from the generate endpoint.
func (r *Resolver) Resolve(ctx context.Context, sess interfaces.Session, baseURL string) (string, error) {
	endpoint := Endpoint(baseURL)
	log := logging.FromContext(ctx, r.log).WithComponent("auth-resolver")
	log.WithURL(endpoint).Debug("requesting keyUrl")

	resp, err := sess.Do(ctx, &types.Request{URL: endpoint, Timeout: r.timeout})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: generate endpoint returned status %d", types.ErrNetwork, resp.StatusCode)
	}

	if !json.Valid(resp.Body) {
		return "", fmt.Errorf("%w: generate response is not JSON", types.ErrDecode)
	}
	log.Debug("generate response", "body", logging.Preview(resp.Text(), 800))

	var body types.AuthResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("%w: unexpected generate response shape: %w", types.ErrRouting, err)
	}
	if body.Data.KeyURL == "" {
		return "", fmt.Errorf("%w: keyUrl missing in generate response", types.ErrRouting)
	}

	log.Info("resolved keyUrl", "key_url", body.Data.KeyURL)
	return body.Data.KeyURL, nil
}
