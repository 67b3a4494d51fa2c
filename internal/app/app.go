// Package app provides the main application setup and dependency injection.
package app

import (
	"context"

	"key-resolver-go/pkg/appctx"
	"key-resolver-go/pkg/auth"
	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/flaresolverr"
	"key-resolver-go/pkg/httpclient"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/registry"
	"key-resolver-go/pkg/resolvers"
	"key-resolver-go/pkg/services"
	"key-resolver-go/pkg/types"
)

// App is the main application container.
type App struct {
	Ctx *appctx.Context
}

// New creates and initializes the application from cfg.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.New(cfg.EffectiveLogLevel(), cfg.LogJSON, nil)
	log.Debug("initializing key resolver", "target", cfg.TargetURL, "log_level", cfg.EffectiveLogLevel())

	ctx := appctx.New(cfg, log)

	httpClient := httpclient.New(cfg, log)
	ctx.WithHTTPClient(httpClient)

	// Create FlareSolverr client if configured
	var flareClient *flaresolverr.Client
	if cfg.FlareSolverrURL != "" {
		flareClient = flaresolverr.NewClient(cfg.FlareSolverrURL, cfg.FlareSolverrTimeout, log)
		log.Info("FlareSolverr client enabled", "url", cfg.FlareSolverrURL)
	}

	reg := registry.NewResolverRegistry()
	registerResolvers(reg, cfg, log, flareClient)
	ctx.WithResolvers(reg)

	svc := services.NewResolutionService(cfg, httpClient, reg, auth.NewResolver(cfg.RequestTimeout, log), log)
	ctx.WithResolutionService(svc)

	return &App{Ctx: ctx}, nil
}

// Run performs one resolution attempt.
func (a *App) Run(ctx context.Context) types.Result {
	return a.Ctx.ResolutionService.Resolve(ctx)
}

// registerResolvers registers all keyUrl resolvers.
// Add new resolvers here by:
// 1. Creating a new resolver in pkg/resolvers/
// 2. Adding a route marker in pkg/router
// 3. Registering it below
func registerResolvers(
	reg *registry.ResolverRegistry,
	cfg *config.Config,
	log *logging.Logger,
	flareClient *flaresolverr.Client,
) {
	nano := resolvers.NewNanoLinksResolver(cfg, log)
	reg.Register(nano)

	reg.Register(resolvers.NewAroLinksResolver(cfg, log, flareClient))

	reg.Register(resolvers.NewLksfyResolver(cfg, log))

	// Unknown hosts behave as nanolinks
	reg.SetFallback(nano)

	log.Debug("registered resolvers", "count", len(reg.All()))
}
