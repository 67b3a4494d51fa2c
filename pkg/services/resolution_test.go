package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"key-resolver-go/pkg/auth"
	"key-resolver-go/pkg/config"
	"key-resolver-go/pkg/httpclient"
	"key-resolver-go/pkg/logging"
	"key-resolver-go/pkg/payload"
	"key-resolver-go/pkg/registry"
	"key-resolver-go/pkg/resolvers"
	"key-resolver-go/pkg/types"
)

// upstream fakes the target page, the auth API and both nanolinks hops on one server.
type upstream struct {
	server  *httptest.Server
	keyURL  string
	authRaw string
	noHdrs  bool
	badBody bool
}

// encodePayload XORs plaintext with key and base64-encodes the result.
func encodePayload(plaintext, key string) string {
	return base64.StdEncoding.EncodeToString(payload.XOR([]byte(plaintext), []byte(key)))
}

func newUpstream(t *testing.T, u *upstream) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != config.DefaultUserAgent {
			t.Errorf("target User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if !u.noHdrs {
			encoded := encodePayload(`{"baseUrl":"`+u.server.URL+`/"}`, config.DefaultXORKey)
			n := len(encoded) / 4
			w.Header().Set("X-Request-ID", encoded[:n])
			w.Header().Set("X-Payload", encoded[n:2*n])
			w.Header().Set("Authorization", encoded[2*n:3*n])
			w.Header().Set("X-Data", encoded[3*n:])
		}
		if u.badBody {
			w.Header().Set("Content-Encoding", "gzip")
			w.Write([]byte("not gzip at all"))
			return
		}
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/auth/generate", func(w http.ResponseWriter, r *http.Request) {
		if u.authRaw != "" {
			w.Write([]byte(u.authRaw))
			return
		}
		w.Write([]byte(`{"data":{"keyUrl":"` + u.keyURL + `"}}`))
	})

	mux.HandleFunc("/first/open.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://vi-music.app/watch/XyZ789")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/second/open.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "XyZ789" {
			w.Write([]byte("wrong id"))
			return
		}
		w.Header().Set("Location", "https://done.example/?key=FINALKEY")
		w.WriteHeader(http.StatusFound)
	})

	u.server = httptest.NewServer(mux)
	return u.server
}

func newTestService(server *httptest.Server) *ResolutionService {
	return newLoggedTestService(server, logging.Discard())
}

func newLoggedTestService(server *httptest.Server, log *logging.Logger) *ResolutionService {
	cfg := config.Default()
	cfg.TargetURL = server.URL + "/"
	cfg.ProbeTimeout = 5 * time.Second
	cfg.RequestTimeout = 5 * time.Second
	cfg.SubmitDelay = 0
	cfg.Endpoints.NanoFirstHop = server.URL + "/first/open.php"
	cfg.Endpoints.NanoSecondHop = server.URL + "/second/open.php"

	client := httpclient.New(cfg, log)

	reg := registry.NewResolverRegistry()
	nano := resolvers.NewNanoLinksResolver(cfg, log)
	reg.Register(nano)
	reg.Register(resolvers.NewAroLinksResolver(cfg, log, nil))
	reg.Register(resolvers.NewLksfyResolver(cfg, log))
	reg.SetFallback(nano)

	return NewResolutionService(cfg, client, reg, auth.NewResolver(cfg.RequestTimeout, log), log)
}

func TestResolutionService_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		keyURL string
	}{
		{"nanolinks", "https://nanolinks.in/AbC123"},
		{"unknown host falls back to nanolinks", "https://unknown.example/AbC123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newUpstream(t, &upstream{keyURL: tt.keyURL})
			defer server.Close()

			res := newTestService(server).Resolve(context.Background())
			if !res.OK() {
				t.Fatalf("Resolve() failed: %v", res.Err())
			}
			if res.Key != "FINALKEY" {
				t.Errorf("Key = %q, want FINALKEY", res.Key)
			}
		})
	}
}

func TestResolutionService_TargetBodyIgnored(t *testing.T) {
	server := newUpstream(t, &upstream{keyURL: "https://nanolinks.in/AbC123", badBody: true})
	defer server.Close()

	res := newTestService(server).Resolve(context.Background())
	if !res.OK() {
		t.Fatalf("Resolve() failed: %v", res.Err())
	}
	if res.Key != "FINALKEY" {
		t.Errorf("Key = %q, want FINALKEY", res.Key)
	}
}

func TestResolutionService_RequestIDReachesResolvers(t *testing.T) {
	server := newUpstream(t, &upstream{keyURL: "https://nanolinks.in/AbC123"})
	defer server.Close()

	var buf bytes.Buffer
	res := newLoggedTestService(server, logging.New("debug", true, &buf)).Resolve(context.Background())
	if !res.OK() {
		t.Fatalf("Resolve() failed: %v", res.Err())
	}

	ids := map[string]map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		component, _ := entry["component"].(string)
		id, _ := entry["request_id"].(string)
		if ids[component] == nil {
			ids[component] = map[string]bool{}
		}
		ids[component][id] = true
	}

	for _, component := range []string{"resolution-service", "auth-resolver", "nanolinks-resolver"} {
		if len(ids[component]) != 1 {
			t.Fatalf("%s request ids = %v, want exactly one", component, ids[component])
		}
	}
	for id := range ids["nanolinks-resolver"] {
		if id == "" || !ids["resolution-service"][id] || !ids["auth-resolver"][id] {
			t.Errorf("request_id %q not shared across the attempt: %v", id, ids)
		}
	}
}

func TestResolutionService_Failures(t *testing.T) {
	tests := []struct {
		name      string
		up        *upstream
		kind      error
		attempted func(base string) string
	}{
		{
			name:      "target without payload headers",
			up:        &upstream{noHdrs: true},
			kind:      types.ErrDecode,
			attempted: func(base string) string { return base + "/" },
		},
		{
			name:      "auth response without keyUrl",
			up:        &upstream{authRaw: `{"data":{}}`},
			kind:      types.ErrRouting,
			attempted: func(base string) string { return base + "/api/v1/auth/generate?server=1" },
		},
		{
			name:      "resolver failure carries keyUrl",
			up:        &upstream{keyURL: "https://nanolinks.in/"},
			kind:      types.ErrRouting,
			attempted: func(string) string { return "https://nanolinks.in/" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newUpstream(t, tt.up)
			defer server.Close()

			res := newTestService(server).Resolve(context.Background())
			if res.OK() {
				t.Fatalf("expected failure, got key %q", res.Key)
			}
			if !errors.Is(res.Err(), tt.kind) {
				t.Errorf("error = %v, want %v", res.Err(), tt.kind)
			}
			if want := tt.attempted(server.URL); res.Failure.AttemptedURL != want {
				t.Errorf("AttemptedURL = %q, want %q", res.Failure.AttemptedURL, want)
			}
		})
	}
}

func TestResolutionService_TargetUnreachable(t *testing.T) {
	server := newUpstream(t, &upstream{})
	svc := newTestService(server)
	server.Close()

	res := svc.Resolve(context.Background())
	if !errors.Is(res.Err(), types.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", res.Err())
	}
}

func TestResolutionService_Cancelled(t *testing.T) {
	server := newUpstream(t, &upstream{keyURL: "https://nanolinks.in/AbC123"})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestService(server).Resolve(ctx)
	if res.OK() {
		t.Fatal("expected failure on cancelled context")
	}
	if !errors.Is(res.Err(), context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", res.Err())
	}
}
