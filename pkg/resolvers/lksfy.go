package resolvers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/crypto"
	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/types"
	"key-resolver-go/pkg/urlutil"
)

var (
	lksfyBlobRe          = regexp.MustCompile(`var base64 = '([^']+)'`)
	lksfyCSRFRe          = regexp.MustCompile(`name="_csrfToken"[^>]*value="([^"]+)"`)
	lksfyAdFormRe        = regexp.MustCompile(`name="ad_form_data"[^>]*value="([^"]+)"`)
	lksfyTokenFieldsRe   = regexp.MustCompile(`name="_Token\[fields\]"[^>]*value="([^"]+)"`)
	lksfyTokenUnlockedRe = regexp.MustCompile(`name="_Token\[unlocked\]"[^>]*value="([^"]+)"`)
	lksfyActionRe        = regexp.MustCompile(`action="([^"]+)"`)
	lksfyKeyRe           = regexp.MustCompile(`key=([^&]+)`)
)

// LksfyResolver handles lksfy links: an encrypted form page that must be
// submitted over XHR, whose JSON reply carries the encrypted final URL.
type LksfyResolver struct {
	*BaseResolver
	base        string
	submitDelay time.Duration
}

// NewLksfyResolver creates a new lksfy resolver.
func NewLksfyResolver(cfg *config.Config, log *logging.Logger) *LksfyResolver {
	return &LksfyResolver{
		BaseResolver: NewBaseResolver("lksfy-resolver", cfg.RequestTimeout, log),
		base:         strings.TrimRight(cfg.Endpoints.LksfyBase, "/"),
		submitDelay:  cfg.SubmitDelay,
	}
}

// Name returns the resolver name.
func (r *LksfyResolver) Name() string {
	return "lksfy"
}

// Route returns the route this resolver serves.
func (r *LksfyResolver) Route() types.Route {
	return types.RouteLksfy
}

// Resolve runs the redirect, decrypt, form submit and decrypt sequence.
func (r *LksfyResolver) Resolve(ctx context.Context, sess interfaces.Session, keyURL string) types.Result {
	log := r.Logger(ctx)
	alias := urlutil.LastPathSegment(keyURL)
	if alias == "" {
		return types.Failed(keyURL, fmt.Errorf("%w: no alias in keyUrl path", types.ErrRouting))
	}
	log.Info("extracted alias", "alias", alias)

	resp, err := r.Do(ctx, sess, &types.Request{
		URL:        keyURL,
		Headers:    map[string]string{"referer": keyURL},
		NoRedirect: true,
	})
	if err != nil {
		return types.Failed(keyURL, err)
	}
	if _, err := expectRedirect(resp, "initial request"); err != nil {
		return types.Failed(keyURL, err)
	}
	// The Location header goes out verbatim as the next referer.
	location := resp.Header.Get("Location")
	log.Debug("captured redirect", "location", location)

	resp, err = r.Do(ctx, sess, &types.Request{
		URL:     keyURL,
		Headers: map[string]string{"referer": location},
	})
	if err != nil {
		return types.Failed(keyURL, err)
	}
	if err := expectOK(resp, "second request"); err != nil {
		return types.Failed(keyURL, err)
	}

	m := lksfyBlobRe.FindStringSubmatch(resp.Text())
	if len(m) < 2 {
		return types.Failed(keyURL, fmt.Errorf("%w: encrypted page blob not found", types.ErrRouting))
	}

	page, err := crypto.DecryptString(m[1], alias)
	if err != nil {
		return types.Failed(keyURL, err)
	}
	log.Debug("decrypted form page", "preview", logging.Preview(page, 200))

	form := ExtractFormData(page)
	if form.Action == "" {
		log.Warn("form action not found, posting to site root")
	}

	if err := r.pace(ctx, log); err != nil {
		return types.Failed(keyURL, fmt.Errorf("%w: submit delay interrupted: %w", types.ErrNetwork, err))
	}

	submitURL := urlutil.JoinPath(r.base, form.Action)
	resp, err = r.Do(ctx, sess, &types.Request{
		Method: http.MethodPost,
		URL:    submitURL,
		Headers: map[string]string{
			"content-type":     "application/x-www-form-urlencoded; charset=UTF-8",
			"referer":          r.base + "/",
			"cookie":           "csrfToken=" + form.CSRFToken,
			"x-requested-with": "XMLHttpRequest",
		},
		Body: EncodeFormBody(form),
	})
	if err != nil {
		return types.Failed(keyURL, err)
	}
	if err := expectOK(resp, "form submit"); err != nil {
		return types.Failed(keyURL, err)
	}

	var submit types.SubmitResponse
	if err := json.Unmarshal(resp.Body, &submit); err != nil {
		return types.Failed(keyURL, fmt.Errorf("%w: form submit returned invalid JSON: %w", types.ErrRouting, err))
	}
	if submit.Status != "success" {
		return types.Failed(keyURL, fmt.Errorf("%w: form submit rejected: %s", types.ErrRouting, submit.Message))
	}

	finalURL, err := crypto.DecryptString(submit.URL, alias)
	if err != nil {
		return types.Failed(keyURL, err)
	}
	log.Debug("decrypted final URL", "url", finalURL)

	k := lksfyKeyRe.FindStringSubmatch(finalURL)
	if len(k) < 2 {
		return types.Failed(keyURL, fmt.Errorf("%w: key not found in final URL", types.ErrRouting))
	}

	log.Info("extracted key", "key", k[1])
	return types.Success(k[1])
}

// pace blocks for the configured submit delay before the form POST.
func (r *LksfyResolver) pace(ctx context.Context, log *logging.Logger) error {
	if r.submitDelay <= 0 {
		return nil
	}
	log.Info("waiting before form submit", "delay", r.submitDelay)

	t := time.NewTimer(r.submitDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExtractFormData pulls the submit form fields out of the decrypted page.
// Missing fields are left empty.
func ExtractFormData(html string) types.FormData {
	find := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return m[1]
		}
		return ""
	}
	return types.FormData{
		CSRFToken:     find(lksfyCSRFRe),
		AdFormData:    find(lksfyAdFormRe),
		TokenFields:   find(lksfyTokenFieldsRe),
		TokenUnlocked: find(lksfyTokenUnlockedRe),
		Action:        find(lksfyActionRe),
	}
}

// EncodeFormBody renders the x-www-form-urlencoded submit body.
// _Token[fields] is already encoded in the page and goes out as-is.
func EncodeFormBody(fd types.FormData) string {
	var b strings.Builder
	b.WriteString("_method=POST")
	b.WriteString("&_csrfToken=" + urlutil.PercentEncode(fd.CSRFToken))
	b.WriteString("&ad_form_data=" + urlutil.PercentEncode(fd.AdFormData))
	b.WriteString("&_Token%5Bfields%5D=" + fd.TokenFields)
	b.WriteString("&_Token%5Bunlocked%5D=" + urlutil.PercentEncode(fd.TokenUnlocked))
	return b.String()
}

var _ interfaces.Resolver = (*LksfyResolver)(nil)
