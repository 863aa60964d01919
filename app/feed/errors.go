package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type FetchErrorKind string

const (
	FetchMalformed      FetchErrorKind = "malformed"
	FetchNetworkFailure FetchErrorKind = "network_failure"
	FetchTimeout        FetchErrorKind = "timeout"
)

// FetchError is returned by Fetcher and Parser. Callers treat any FetchError
// as "zero new entries" for the feed in the current cycle.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (HTTP %d)", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type DiscoveryErrorKind string

const DiscoveryPageFetchFailure DiscoveryErrorKind = "page_fetch_failure"

type DiscoveryError struct {
	Kind DiscoveryErrorKind
	URL  string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to fetch page %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyTransportError(url string, err error) *FetchError {
	kind := FetchNetworkFailure
	if IsTimeout(err) {
		kind = FetchTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}
