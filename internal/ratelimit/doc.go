// Package ratelimit tracks the request budget advertised by the Railway API.
//
// The API reports its budget through three optional response headers:
//
//   - X-RateLimit-Limit: total requests allowed in the current window
//   - X-RateLimit-Remaining: requests left in the current window
//   - X-RateLimit-Reset: epoch seconds (possibly fractional) when the window resets
//
// A [Budget] is updated after every response by the transport and consulted
// before every request (proactive wait) and after every fetch cycle (adaptive
// polling interval). Values are sticky: a missing or malformed header leaves
// the previously observed value in place.
package ratelimit
