// Package payload recovers the routing configuration hidden in the target
// page's response headers: four header values are concatenated, base64-decoded,
// XOR-decrypted with a fixed key and parsed as JSON.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"key-resolver-go/pkg/types"
)

// HeaderNames lists the payload headers in concatenation order.
var HeaderNames = []string{"x-request-id", "x-payload", "authorization", "x-data"}

// baseURLKeys are the accepted spellings, checked in order.
var baseURLKeys = []string{"baseUrl", "baseurl", "base_url"}

// CombineHeaders concatenates the payload headers in declared order.
// A missing header contributes an empty slot; its name is returned in missing.
func CombineHeaders(h http.Header) (combined string, missing []string) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, name := range HeaderNames {
		val, ok := lookup(h, keys, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		b.WriteString(strings.TrimSpace(val))
	}
	return b.String(), missing
}

func lookup(h http.Header, keys []string, name string) (string, bool) {
	for _, k := range keys {
		if strings.EqualFold(k, name) && len(h[k]) > 0 {
			return h[k][0], true
		}
	}
	return "", false
}

// XOR returns data XOR-ed with key repeated cyclically. Applying it twice
// with the same key restores the input.
func XOR(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// DecodeText base64-decodes combined, XORs it with key and recovers text.
// Non-UTF-8 output is reduced to its outermost {...} block.
func DecodeText(combined string, key []byte) (string, error) {
	if combined == "" {
		return "", fmt.Errorf("%w: combined payload is empty", types.ErrDecode)
	}
	raw, err := decodeBase64(combined)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed: %w", types.ErrDecode, err)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("%w: XOR key is empty", types.ErrDecode)
	}

	out := XOR(raw, key)
	if utf8.Valid(out) {
		return string(out), nil
	}

	text := strings.ToValidUTF8(string(out), "")
	block, ok := jsonBlock(text)
	if !ok {
		return "", fmt.Errorf("%w: decoded bytes are not UTF-8 and hold no JSON object", types.ErrDecode)
	}
	return block, nil
}

// decodeBase64 accepts padded or unpadded standard base64.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// jsonBlock returns the substring from the first '{' to the last '}'.
func jsonBlock(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ExtractBaseURL parses text as a JSON object and returns its base URL.
// If the whole text is not valid JSON the outermost {...} block is tried.
func ExtractBaseURL(text string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		block, ok := jsonBlock(text)
		if !ok {
			return "", fmt.Errorf("%w: JSON parse failed: %w", types.ErrDecode, err)
		}
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			return "", fmt.Errorf("%w: JSON parse failed: %w", types.ErrDecode, err)
		}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: decoded JSON is not an object", types.ErrDecode)
	}
	for _, k := range baseURLKeys {
		v, present := obj[k]
		if !present {
			continue
		}
		s, isString := v.(string)
		if !isString || s == "" {
			return "", fmt.Errorf("%w: %q is not a non-empty string", types.ErrDecode, k)
		}
		return s, nil
	}
	return "", fmt.Errorf("%w: baseUrl not found in decoded JSON", types.ErrDecode)
}

// Decode runs the whole header-to-config pipeline.
func Decode(h http.Header, key string) (*types.DecodedConfig, error) {
	combined, _ := CombineHeaders(h)
	text, err := DecodeText(combined, []byte(key))
	if err != nil {
		return nil, err
	}
	baseURL, err := ExtractBaseURL(text)
	if err != nil {
		return nil, err
	}
	return &types.DecodedConfig{BaseURL: baseURL}, nil
}
