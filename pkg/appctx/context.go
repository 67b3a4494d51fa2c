// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/httpclient"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/registry"
	"key-resolver-go/pkg/services"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config            *config.Config
	Log               *logging.Logger
	HTTPClient        *httpclient.Client
	Resolvers         *registry.ResolverRegistry
	ResolutionService *services.ResolutionService
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithHTTPClient sets the HTTP client.
func (c *Context) WithHTTPClient(client *httpclient.Client) *Context {
	c.HTTPClient = client
	return c
}

// WithResolvers sets the resolver registry.
func (c *Context) WithResolvers(reg *registry.ResolverRegistry) *Context {
	c.Resolvers = reg
	return c
}

// WithResolutionService sets the resolution service.
func (c *Context) WithResolutionService(s *services.ResolutionService) *Context {
	c.ResolutionService = s
	return c
}
