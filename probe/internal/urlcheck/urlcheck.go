// Package urlcheck guards the URLs a crawl navigates to and the bodies it
// reads back from collectors.
package urlcheck

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme
// (javascript:, mailto:, data:, ...).
var ErrUnsafeScheme = errors.New("urlcheck: only http and https schemes are navigable")

// ErrNoHost is returned for URLs without a hostname.
var ErrNoHost = errors.New("urlcheck: URL has no host")

// Navigable checks that rawURL is an absolute http(s) URL with a host.
func Navigable(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("urlcheck: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: %q", ErrUnsafeScheme, rawURL)
	}
	if u.Hostname() == "" {
		return ErrNoHost
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r and reports an error when
// more is available.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return data[:maxBytes], fmt.Errorf("urlcheck: body exceeds %d bytes", maxBytes)
	}
	return data, nil
}
