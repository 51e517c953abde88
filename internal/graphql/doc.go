// Package graphql is the network transport for the Railway GraphQL API.
//
// A [Client] executes one logical query per call: it waits out an exhausted
// rate-limit budget before sending, POSTs the query with bearer
// authentication, feeds every response's rate-limit headers back into the
// shared [ratelimit.Budget], retries HTTP 429 responses with backoff (at most
// three attempts), and decodes the {data, errors} envelope.
//
// Failures are reported as typed errors so callers can tell them apart:
//
//   - [*HTTPError]: any status other than 200 or 429
//   - [*GraphQLError]: a 200 response carrying API-level errors
//   - [ErrNoData]: a 200 response with neither errors nor data
//   - [ErrRateLimited]: every attempt was answered with 429
//   - [ErrInvalidResponse]: the response body could not be decoded
//
// Connection-level failures are returned immediately and never retried.
package graphql
