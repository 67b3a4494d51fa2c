package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 16 << 20

var errBodyTooLarge = errors.New("response body exceeds size limit")

// readLimited reads r fully, failing instead of truncating past maxBodySize.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodySize {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// readBody reads the response body and undoes its Content-Encoding. We send
// our own Accept-Encoding, so net/http does not decompress for us.
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" || len(raw) == 0 {
		return raw, nil
	}

	decoded, err := decodeBody(raw, encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding %s body: %w", encoding, err)
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	return decoded, nil
}

func decodeBody(raw []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readLimited(r)
	case "deflate":
		// Servers disagree on whether deflate is zlib-wrapped.
		if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer r.Close()
			return readLimited(r)
		}
		r := flate.NewReader(bytes.NewReader(raw))
		defer r.Close()
		return readLimited(r)
	case "br":
		return readLimited(brotli.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}
