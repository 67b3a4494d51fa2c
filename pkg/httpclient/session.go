package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"key-resolver-go/pkg/interfaces"
	"key-resolver-go/pkg/types"

	"golang.org/x/net/publicsuffix"
)

// maxRedirects bounds redirect chains when a request follows them.
const maxRedirects = 10

// Session is the HTTP state of one resolution attempt.
type Session struct {
	client  *Client
	jar     http.CookieJar
	headers map[string]string
}

// NewSession creates a session with its own cookie jar. defaultHeaders are
// sent on every request unless a request overrides them.
func (c *Client) NewSession(defaultHeaders map[string]string) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	headers := map[string]string{
		"Accept-Encoding": "gzip, deflate, br",
	}
	for k, v := range defaultHeaders {
		headers[k] = v
	}

	return &Session{client: c, jar: jar, headers: headers}, nil
}

// Do performs req and reads the whole (decoded) body.
func (s *Session) Do(ctx context.Context, req *types.Request) (*types.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.client.timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid request %s %s: %w", types.ErrNetwork, method, req.URL, err)
	}
	for k, v := range s.headers {
		httpReq.Header.Set(k, v)
	}
	explicitCookie := false
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
		if strings.EqualFold(k, "cookie") {
			explicitCookie = true
		}
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(c)
	}

	// An explicit Cookie header is sent alone; the jar still learns from the response.
	var jar http.CookieJar = s.jar
	if explicitCookie {
		jar = nil
	}

	hc := &http.Client{
		Transport: s.client.transportForURL(req.URL),
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if req.NoRedirect {
				return http.ErrUseLastResponse
			}
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	s.client.log.Debug("upstream request", "method", method, "url", req.URL, "follow_redirects", !req.NoRedirect)

	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", types.ErrNetwork, method, req.URL, err)
	}
	defer resp.Body.Close()

	if explicitCookie {
		if rc := resp.Cookies(); len(rc) > 0 {
			s.jar.SetCookies(resp.Request.URL, rc)
		}
	}

	var data []byte
	if !req.HeadersOnly {
		data, err = readBody(resp)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", types.ErrNetwork, req.URL, err)
		}
	}

	s.client.log.Debug("upstream response", "url", req.URL, "status", resp.StatusCode, "bytes", len(data))

	return &types.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        resp.Request.URL.String(),
	}, nil
}

// SetCookies seeds the jar for rawURL.
func (s *Session) SetCookies(rawURL string, cookies []*http.Cookie) {
	u, err := url.Parse(rawURL)
	if err != nil {
		s.client.log.Warn("ignoring cookies for unparseable URL", "url", rawURL, "error", err)
		return
	}
	s.jar.SetCookies(u, cookies)
}

var _ interfaces.Session = (*Session)(nil)
