package resolvers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/flaresolverr"
	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/types"
	"key-resolver-go/pkg/urlutil"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	aroScriptRedirectRe = regexp.MustCompile(`window\.location\.href = "([^"]+)"`)
	aroAnchorRe         = regexp.MustCompile(`<a href="([^"]+)"`)
	aroKeyLinkRe        = regexp.MustCompile(`nofollow noopener noreferrer" href="(https?://[^"]+key=[^"&]+[^"]*)"`)
	aroCodeLinkRe       = regexp.MustCompile(`nofollow noopener noreferrer" href="(https?://[^"]+code=[^"&]+[^"]*)"`)
	aroKeyParamRe       = regexp.MustCompile(`key=([^&"]+)`)
	aroCodeParamRe      = regexp.MustCompile(`code=([^&"]+)`)

	aroFinalLinkSel = cascadia.MustCompile(`a[rel="nofollow noopener noreferrer"][href]`)
)

// AroLinksResolver scrapes the two-visit arolinks flow.
type AroLinksResolver struct {
	*BaseResolver
	flare *flaresolverr.Client
}

// NewAroLinksResolver creates a new arolinks resolver. flare may be nil.
func NewAroLinksResolver(cfg *config.Config, log *logging.Logger, flare *flaresolverr.Client) *AroLinksResolver {
	return &AroLinksResolver{
		BaseResolver: NewBaseResolver("arolinks-resolver", cfg.RequestTimeout, log),
		flare:        flare,
	}
}

// Name returns the resolver name.
func (r *AroLinksResolver) Name() string {
	return "arolinks"
}

// Route returns the route this resolver serves.
func (r *AroLinksResolver) Route() types.Route {
	return types.RouteAro
}

// Resolve visits keyUrl once to learn the intermediate redirect, then again
// with that URL as referer to reveal the final link.
func (r *AroLinksResolver) Resolve(ctx context.Context, sess interfaces.Session, keyURL string) types.Result {
	log := r.Logger(ctx)
	identifier := urlutil.LastPathSegment(keyURL)
	log.Info("extracted identifier", "identifier", identifier)

	landing, clearance, err := r.fetchLanding(ctx, sess, keyURL)
	if err != nil {
		return types.Failed(keyURL, err)
	}

	redirectURL, err := findAroRedirect(landing.Text())
	if err != nil {
		return types.Failed(keyURL, err)
	}
	log.Debug("found redirect URL", "url", redirectURL)

	resp, err := r.Do(ctx, sess, &types.Request{
		URL: keyURL,
		Headers: map[string]string{
			"cookie":  aroCookieHeader(identifier, clearance),
			"referer": redirectURL,
		},
	})
	if err != nil {
		return types.Failed(keyURL, err)
	}
	if err := expectOK(resp, "second request"); err != nil {
		return types.Failed(keyURL, err)
	}

	key, err := extractAroKey(resp.Text())
	if err != nil {
		return types.Failed(keyURL, err)
	}

	log.Info("extracted key", "key", key)
	return types.Success(key)
}

// fetchLanding GETs keyUrl, retrying through FlareSolverr when the page is
// challenge-blocked and a solver is configured. The solver's clearance
// cookies are returned for the follow-up request.
func (r *AroLinksResolver) fetchLanding(ctx context.Context, sess interfaces.Session, keyURL string) (*types.Response, []*http.Cookie, error) {
	resp, err := r.Do(ctx, sess, &types.Request{URL: keyURL})
	if err != nil {
		return nil, nil, err
	}

	var clearance []*http.Cookie
	blocked := resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable
	if blocked && r.flare != nil {
		r.Logger(ctx).Info("landing page blocked, retrying via FlareSolverr", "status", resp.StatusCode)
		fs, err := r.flare.Get(ctx, keyURL, nil)
		if err != nil {
			return nil, nil, err
		}
		clearance = flaresolverr.ToHTTPCookies(fs.Solution.Cookies)
		sess.SetCookies(keyURL, clearance)
		resp = fs.Solution.Page()
	}

	if err := expectOK(resp, "initial request"); err != nil {
		return nil, nil, err
	}
	return resp, clearance, nil
}

// aroCookieHeader builds the second-visit Cookie header: gt_uc_ first,
// then any solver clearance cookies.
func aroCookieHeader(identifier string, clearance []*http.Cookie) string {
	parts := []string{"gt_uc_=" + identifier}
	for _, c := range clearance {
		if c.Name == "gt_uc_" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// findAroRedirect returns the script redirect target, or the first anchor href.
func findAroRedirect(page string) (string, error) {
	if m := aroScriptRedirectRe.FindStringSubmatch(page); len(m) > 1 {
		return m[1], nil
	}
	if m := aroAnchorRe.FindStringSubmatch(page); len(m) > 1 {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: redirect URL not found in the initial response", types.ErrRouting)
}

// extractAroKey finds the nofollow link carrying key= (preferred) or code=.
// Pages that reorder the anchor attributes are handled by a DOM scan.
func extractAroKey(page string) (string, error) {
	if m := aroKeyLinkRe.FindStringSubmatch(page); len(m) > 1 {
		if k := aroKeyParamRe.FindStringSubmatch(m[1]); len(k) > 1 {
			return k[1], nil
		}
	} else if m := aroCodeLinkRe.FindStringSubmatch(page); len(m) > 1 {
		if c := aroCodeParamRe.FindStringSubmatch(m[1]); len(c) > 1 {
			return c[1], nil
		}
	}
	if v := scanAroLinks(page); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: final URL with key/code not found in the second response", types.ErrRouting)
}

func scanAroLinks(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var hrefs []string
	for _, a := range aroFinalLinkSel.MatchAll(doc) {
		for _, attr := range a.Attr {
			if attr.Key == "href" && (strings.HasPrefix(attr.Val, "http://") || strings.HasPrefix(attr.Val, "https://")) {
				hrefs = append(hrefs, attr.Val)
			}
		}
	}
	for _, re := range []*regexp.Regexp{aroKeyParamRe, aroCodeParamRe} {
		for _, href := range hrefs {
			if m := re.FindStringSubmatch(href); len(m) > 1 {
				return m[1]
			}
		}
	}
	return ""
}

var _ interfaces.Resolver = (*AroLinksResolver)(nil)
