package urlutil

import "testing"

func TestLastPathSegment(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"simple", "https://nanolinks.in/AbC123", "AbC123"},
		{"trailing slash", "https://lksfy.com/8TRBMLM29A/", "8TRBMLM29A"},
		{"nested", "https://arolinks.com/a/b/xyz", "xyz"},
		{"query ignored", "https://arolinks.com/xyz?ref=1", "xyz"},
		{"double slash", "http://sharedisklinks.com//XyZ789", "XyZ789"},
		{"no path", "https://nanolinks.in", ""},
		{"root only", "https://nanolinks.in/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LastPathSegment(tt.url); got != tt.expected {
				t.Errorf("LastPathSegment(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestQueryParam(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		param    string
		expected string
	}{
		{"present", "https://generateed.pages.dev/?key=FINALKEY", "key", "FINALKEY"},
		{"encoded", "https://x.example/?key=a%2Bb", "key", "a+b"},
		{"first of many", "https://x.example/?key=1&key=2", "key", "1"},
		{"absent", "https://x.example/?code=1", "key", ""},
		{"empty value", "https://x.example/?key=", "key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QueryParam(tt.url, tt.param); got != tt.expected {
				t.Errorf("QueryParam(%q, %q) = %q, want %q", tt.url, tt.param, got, tt.expected)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		base, path, expected string
	}{
		{"https://api.example.com", "/api/v1/auth/generate?server=1", "https://api.example.com/api/v1/auth/generate?server=1"},
		{"https://api.example.com/", "/api/v1/auth/generate?server=1", "https://api.example.com/api/v1/auth/generate?server=1"},
		{"https://lksfy.com", "/links/go", "https://lksfy.com/links/go"},
	}
	for _, tt := range tests {
		if got := JoinPath(tt.base, tt.path); got != tt.expected {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.expected)
		}
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in, expected string
	}{
		{"abcXYZ019", "abcXYZ019"},
		{"a b", "a%20b"},
		{"a+b=c&d", "a%2Bb%3Dc%26d"},
		{"path/kept", "path/kept"},
		{"_.-~", "_.-~"},
		{"tok:en", "tok%3Aen"},
		{"é", "%C3%A9"},
	}
	for _, tt := range tests {
		if got := PercentEncode(tt.in); got != tt.expected {
			t.Errorf("PercentEncode(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
