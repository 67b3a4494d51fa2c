// Package types defines core domain types used throughout the application.
package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Route identifies which resolver handles a keyUrl.
type Route int

const (
	RouteFallback Route = iota
	RouteNano
	RouteAro
	RouteLksfy
)

// String returns the route name used in logs.
func (r Route) String() string {
	switch r {
	case RouteNano:
		return "nanolinks"
	case RouteAro:
		return "arolinks"
	case RouteLksfy:
		return "lksfy"
	default:
		return "fallback"
	}
}

// DecodedConfig is the configuration recovered from the obfuscated header payload.
type DecodedConfig struct {
	BaseURL string `json:"baseUrl"`
}

// AuthResponse is the body of the generate-token endpoint.
type AuthResponse struct {
	Data struct {
		KeyURL string `json:"keyUrl"`
	} `json:"data"`
}

// FormData holds the fields scraped from the decrypted Lksfy form.
// Missing fields are left empty.
type FormData struct {
	CSRFToken     string
	AdFormData    string
	TokenFields   string
	TokenUnlocked string
	Action        string
}

// SubmitResponse is the JSON answer to the Lksfy form submission.
type SubmitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Request describes a single upstream HTTP call made through a session.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Cookies []*http.Cookie
	Body    string
	// NoRedirect returns 3xx responses as-is instead of following them.
	NoRedirect bool
	// Timeout bounds the whole call; zero uses the session default.
	Timeout time.Duration
	// HeadersOnly skips reading the body.
	HeadersOnly bool
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// IsRedirect reports whether the status is one of the redirect codes upstreams use.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Location returns the redirect target resolved against the request URL.
func (r *Response) Location() string {
	loc := r.Header.Get("Location")
	if loc == "" {
		return ""
	}
	base, err := url.Parse(r.URL)
	if err != nil {
		return loc
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	return base.ResolveReference(ref).String()
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Result is the outcome of one resolution: either a key or a failure.
type Result struct {
	Key     string
	Failure *Failure
}

// Failure records the URL that could not be resolved and why.
type Failure struct {
	AttemptedURL string
	Cause        error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("attempted %s: %v", f.AttemptedURL, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Success builds a successful result.
func Success(key string) Result {
	return Result{Key: key}
}

// Failed builds a failed result.
func Failed(attemptedURL string, cause error) Result {
	return Result{Failure: &Failure{AttemptedURL: attemptedURL, Cause: cause}}
}

// OK reports whether the result carries a key.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}
