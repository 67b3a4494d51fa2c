// Package httpclient provides the transports and per-attempt sessions used to
// talk to upstream services, with proxy, TLS-bypass and fingerprint routing.
package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/logging"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

// Client owns the transports shared by every session.
type Client struct {
	defaultTransport http.RoundTripper
	utlsTransport    http.RoundTripper
	proxyTransports  map[string]http.RoundTripper
	globalProxy      string
	utlsDomains      []string
	insecure         bool
	timeout          time.Duration
	mu               sync.RWMutex
	log              *logging.Logger
}

// ipv4Dialer creates a dialer that only uses IPv4.
func ipv4Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 60 * time.Second,
	}
}

// ipv4DialContext forces IPv4-only connections.
func ipv4DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network == "tcp" {
		network = "tcp4"
	}
	return ipv4Dialer().DialContext(ctx, network, addr)
}

// New creates a new HTTP client with the given configuration.
func New(cfg *config.Config, log *logging.Logger) *Client {
	c := &Client{
		proxyTransports: make(map[string]http.RoundTripper),
		globalProxy:     cfg.GlobalProxy,
		utlsDomains:     cfg.UTLSDomains,
		insecure:        cfg.InsecureSkipVerify,
		timeout:         cfg.RequestTimeout,
		log:             log.WithComponent("httpclient"),
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}

	c.defaultTransport = newTransport(c.insecure)
	c.utlsTransport = newUTLSRoundTripper(c.insecure, c.defaultTransport)

	if c.insecure {
		c.log.Warn("TLS certificate verification disabled")
	}

	return c
}

func newTransport(insecure bool) *http.Transport {
	t := &http.Transport{
		DialContext:           ipv4DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}

// utlsRoundTripper implements http.RoundTripper with utls and HTTP/2 support.
type utlsRoundTripper struct {
	dialer      *net.Dialer
	h2Transport *http2.Transport
	insecure    bool
	plain       http.RoundTripper
}

func newUTLSRoundTripper(insecure bool, plain http.RoundTripper) *utlsRoundTripper {
	return &utlsRoundTripper{
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 60 * time.Second,
		},
		h2Transport: &http2.Transport{
			DisableCompression: false,
			AllowHTTP:          false,
		},
		insecure: insecure,
		plain:    plain,
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	addr := req.URL.Host
	if req.URL.Port() == "" {
		addr = net.JoinHostPort(req.URL.Hostname(), "443")
	}

	ctx := req.Context()
	conn, err := t.dialer.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, err
	}

	// One conn per request: bound it by the request deadline and cancellation.
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	tlsConfig := &utls.Config{
		ServerName:         req.URL.Hostname(),
		InsecureSkipVerify: t.insecure,
	}

	// Chrome 120 fingerprint, negotiates h2 when offered
	utlsConn := utls.UClient(conn, tlsConfig, utls.HelloChrome_120)
	if err := utlsConn.HandshakeContext(ctx); err != nil {
		stop()
		conn.Close()
		return nil, err
	}

	if utlsConn.ConnectionState().NegotiatedProtocol == "h2" {
		h2Conn, err := t.h2Transport.NewClientConn(utlsConn)
		if err != nil {
			stop()
			conn.Close()
			return nil, err
		}
		resp, err := h2Conn.RoundTrip(req)
		if err != nil {
			stop()
			conn.Close()
			return nil, err
		}
		resp.Body = &connCloser{ReadCloser: resp.Body, conn: utlsConn, stop: stop}
		return resp, nil
	}

	return t.doHTTP1Request(utlsConn, req, stop)
}

func (t *utlsRoundTripper) doHTTP1Request(conn net.Conn, req *http.Request, stop func() bool) (*http.Response, error) {
	if err := req.Write(conn); err != nil {
		stop()
		conn.Close()
		return nil, err
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		stop()
		conn.Close()
		return nil, err
	}

	resp.Body = &connCloser{ReadCloser: resp.Body, conn: conn, stop: stop}
	return resp, nil
}

type connCloser struct {
	io.ReadCloser
	conn net.Conn
	stop func() bool
}

func (c *connCloser) Close() error {
	c.stop()
	c.ReadCloser.Close()
	return c.conn.Close()
}

// needsUTLS returns true if the URL requires browser-like TLS fingerprinting.
func (c *Client) needsUTLS(targetURL string) bool {
	lower := strings.ToLower(targetURL)
	for _, domain := range c.utlsDomains {
		if domain != "" && strings.Contains(lower, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// transportForURL returns the round tripper for targetURL: fingerprinted,
// proxied or direct.
func (c *Client) transportForURL(targetURL string) http.RoundTripper {
	if c.needsUTLS(targetURL) {
		c.log.Debug("using utls transport", "url", targetURL)
		return c.utlsTransport
	}

	if c.globalProxy != "" {
		return c.getOrCreateProxyTransport(c.globalProxy)
	}

	return c.defaultTransport
}

// getOrCreateProxyTransport returns a cached proxy transport or creates a new one.
func (c *Client) getOrCreateProxyTransport(proxyURL string) http.RoundTripper {
	c.mu.RLock()
	if t, ok := c.proxyTransports[proxyURL]; ok {
		c.mu.RUnlock()
		return t
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if t, ok := c.proxyTransports[proxyURL]; ok {
		return t
	}

	t := c.createProxyTransport(proxyURL)
	c.proxyTransports[proxyURL] = t
	c.log.Debug("created proxy transport", "proxy", proxyURL)

	return t
}

// createProxyTransport builds a transport that dials through proxyURL.
func (c *Client) createProxyTransport(proxyURL string) http.RoundTripper {
	transport := newTransport(c.insecure)

	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		c.log.Error("failed to parse proxy URL", "url", proxyURL, "error", err)
		return c.defaultTransport
	}

	switch parsedURL.Scheme {
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsedURL, proxy.Direct)
		if err != nil {
			c.log.Error("failed to create SOCKS5 dialer", "error", err)
			return c.defaultTransport
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	default:
		c.log.Warn("unsupported proxy scheme", "scheme", parsedURL.Scheme)
		return c.defaultTransport
	}

	return transport
}
