package blog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUpstreamUnavailable covers network and service errors from a collaborator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed is returned when a response falls outside the expected schema or domain.
	ErrUpstreamMalformed = errors.New("upstream response malformed")
	// ErrInputInvalid rejects an empty or malformed topic.
	ErrInputInvalid = errors.New("invalid input")
	// ErrRateLimited is a transient kind of ErrUpstreamUnavailable.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrUpstreamUnavailable)
	// ErrCanceled ends a run the caller aborted.
	ErrCanceled = errors.New("run canceled")
)

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstreamMalformed, fmt.Sprintf(format, args...))
}

// Malformed wraps err as ErrUpstreamMalformed.
func Malformed(format string, args ...any) error {
	return malformedf(format, args...)
}

// Unavailable wraps err as ErrUpstreamUnavailable unless it already carries a kind.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamMalformed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

// RateLimited wraps err as ErrRateLimited.
func RateLimited(err error) error {
	if err == nil {
		return ErrRateLimited
	}
	return fmt.Errorf("%w: %w", ErrRateLimited, err)
}

// Kind names the taxonomy bucket of err, for logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInputInvalid):
		return "input_invalid"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamMalformed):
		return "malformed"
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "unknown"
	}
}

// StatusError classifies a non-2xx HTTP response from service.
func StatusError(service string, code int, body string) error {
	err := fmt.Errorf("%s: http %d: %s", service, code, Truncate(body, 200))
	if code == http.StatusTooManyRequests {
		return RateLimited(err)
	}
	return Unavailable(err)
}
