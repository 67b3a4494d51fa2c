// Package services wires the pipeline stages into a single resolution attempt.
package services

import (
	"context"
	"fmt"
	"time"

	"key-resolver-go/pkg/auth"
	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/httpclient"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/payload"
	"key-resolver-go/pkg/registry"
	"key-resolver-go/pkg/router"
	"key-resolver-go/pkg/types"

	"github.com/google/uuid"
)

// ResolutionService runs fetch, decode, auth, route and resolve in order.
type ResolutionService struct {
	cfg       *config.Config
	client    *httpclient.Client
	resolvers *registry.ResolverRegistry
	auth      *auth.Resolver
	log       *logging.Logger
}

// NewResolutionService creates a new resolution service.
func NewResolutionService(
	cfg *config.Config,
	client *httpclient.Client,
	resolvers *registry.ResolverRegistry,
	authResolver *auth.Resolver,
	log *logging.Logger,
) *ResolutionService {
	return &ResolutionService{
		cfg:       cfg,
		client:    client,
		resolvers: resolvers,
		auth:      authResolver,
		log:       log,
	}
}

// Resolve performs one full attempt with a fresh session. The first failing
// stage ends the attempt.
func (s *ResolutionService) Resolve(ctx context.Context) types.Result {
	start := time.Now()
	attempt := s.log.WithRequestID(uuid.NewString())
	ctx = attempt.WithContext(ctx)
	log := attempt.WithComponent("resolution-service")

	sess, err := s.client.NewSession(map[string]string{"User-Agent": s.cfg.UserAgent})
	if err != nil {
		return types.Failed(s.cfg.TargetURL, err)
	}

	log.Info("fetching target headers", "url", s.cfg.TargetURL)
	target, err := sess.Do(ctx, &types.Request{
		URL:         s.cfg.TargetURL,
		Timeout:     s.cfg.ProbeTimeout,
		HeadersOnly: true,
	})
	if err != nil {
		return types.Failed(s.cfg.TargetURL, err)
	}
	log.Debug("target response", "status", target.StatusCode)

	if _, missing := payload.CombineHeaders(target.Header); len(missing) > 0 {
		log.Warn("payload headers missing", "missing", missing)
	}

	decoded, err := payload.Decode(target.Header, s.cfg.XORKey)
	if err != nil {
		return types.Failed(s.cfg.TargetURL, err)
	}
	log.Info("decoded base URL", "base_url", decoded.BaseURL)

	keyURL, err := s.auth.Resolve(ctx, sess, decoded.BaseURL)
	if err != nil {
		return types.Failed(auth.Endpoint(decoded.BaseURL), err)
	}

	route := router.Classify(keyURL)
	resolver := s.resolvers.Get(route)
	if resolver == nil {
		return types.Failed(keyURL, fmt.Errorf("%w: no resolver for route %s", types.ErrRouting, route))
	}
	log.Info("dispatching", "key_url", keyURL, "route", route.String(), "resolver", resolver.Name())

	result := resolver.Resolve(ctx, sess, keyURL)
	if result.OK() {
		log.WithDuration(time.Since(start)).Info("resolved key", "key", logging.Preview(result.Key, 8))
	} else {
		log.WithError(result.Err()).Warn("resolution failed", "resolver", resolver.Name())
	}
	return result
}
