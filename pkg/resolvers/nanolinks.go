package resolvers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/types"
	"key-resolver-go/pkg/urlutil"
)

// NanoLinksResolver follows the two open.php redirect hops of nanolinks.
// It is also the fallback for unknown hosts.
type NanoLinksResolver struct {
	*BaseResolver
	firstHop  string
	secondHop string
}

// NewNanoLinksResolver creates a new nanolinks resolver.
func NewNanoLinksResolver(cfg *config.Config, log *logging.Logger) *NanoLinksResolver {
	return &NanoLinksResolver{
		BaseResolver: NewBaseResolver("nanolinks-resolver", cfg.RequestTimeout, log),
		firstHop:     cfg.Endpoints.NanoFirstHop,
		secondHop:    cfg.Endpoints.NanoSecondHop,
	}
}

// Name returns the resolver name.
func (r *NanoLinksResolver) Name() string {
	return "nanolinks"
}

// Route returns the route this resolver serves.
func (r *NanoLinksResolver) Route() types.Route {
	return types.RouteNano
}

// Resolve walks keyUrl -> first hop -> second hop -> ?key=.
func (r *NanoLinksResolver) Resolve(ctx context.Context, sess interfaces.Session, keyURL string) types.Result {
	log := r.Logger(ctx)
	id := urlutil.LastPathSegment(keyURL)
	if id == "" {
		return types.Failed(keyURL, fmt.Errorf("%w: no id in keyUrl path", types.ErrRouting))
	}
	log.Info("extracted id from keyUrl", "id", id)

	loc, err := r.hop(ctx, sess, r.firstHop, id, "first request")
	if err != nil {
		return types.Failed(keyURL, err)
	}

	nextID := urlutil.LastPathSegment(loc)
	if nextID == "" {
		return types.Failed(keyURL, fmt.Errorf("%w: no id in redirect %s", types.ErrRouting, loc))
	}
	log.Info("extracted next id", "id", nextID)

	final, err := r.hop(ctx, sess, r.secondHop, nextID, "second request")
	if err != nil {
		return types.Failed(keyURL, err)
	}
	log.Debug("final redirect", "url", final)

	key := urlutil.QueryParam(final, "key")
	if key == "" {
		return types.Failed(keyURL, fmt.Errorf("%w: could not extract 'key' parameter from final redirect URL", types.ErrRouting))
	}

	log.Info("extracted key", "key", key)
	return types.Success(key)
}

// hop requests open.php?id=<id> with the tp/open correlation cookies and
// returns the redirect target.
func (r *NanoLinksResolver) hop(ctx context.Context, sess interfaces.Session, endpoint, id, step string) (string, error) {
	resp, err := r.Do(ctx, sess, &types.Request{
		URL: endpoint + "?id=" + url.QueryEscape(id),
		Cookies: []*http.Cookie{
			{Name: "tp", Value: id},
			{Name: "open", Value: id},
		},
		NoRedirect: true,
	})
	if err != nil {
		return "", err
	}
	return expectRedirect(resp, step)
}

var _ interfaces.Resolver = (*NanoLinksResolver)(nil)
