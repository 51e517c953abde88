package graphql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when a 200 response carries no errors and no data.
	ErrNoData = errors.New("graphql response contained no data")

	// ErrRateLimited is returned when every attempt was answered with HTTP 429.
	ErrRateLimited = errors.New("rate limited by Railway API")

	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from Railway API")

	// ErrNoToken is returned when Execute is called without an API token.
	ErrNoToken = errors.New("no API token configured")
)

// HTTPError is returned for any response status other than 200 and 429.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Railway API returned HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("Railway API returned HTTP %d", e.StatusCode)
}

// GraphQLError is returned when a well-formed response carries API errors.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "GraphQL error: " + strings.Join(e.Messages, "; ")
}

// IsHTTPStatus reports whether err is an [*HTTPError] with the given status.
func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == status
	}
	return false
}

// IsRateLimited reports whether err means the retry budget was exhausted by 429s.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
