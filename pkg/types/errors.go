package types

import "errors"

// Error kinds. Producers wrap these with %w so callers can classify with errors.Is.
var (
	// ErrNetwork covers transport failures, timeouts and non-2xx statuses where a 2xx was required.
	ErrNetwork = errors.New("network error")
	// ErrDecode covers base64, XOR, UTF-8 and JSON decoding of the header payload.
	ErrDecode = errors.New("decode error")
	// ErrRouting means an expected field or redirect was absent from an otherwise successful response.
	ErrRouting = errors.New("routing error")
	// ErrCrypto means a derived-key decryption failed.
	ErrCrypto = errors.New("crypto error")
)
