// Package poller drives the refresh cadence for railpulse.
//
// This package is internal to railpulse. A [Controller] owns two
// independently cancellable loops while running:
//
//   - a refresh loop that triggers a fetch cycle immediately on start and then
//     at an adaptive interval derived from the rate-limit budget
//   - a ticker loop that advances the rotation index over actively deploying
//     services every three seconds
//
// At most one fetch cycle is in flight per controller. Results of a cycle are
// published to a [store.Store]; a cycle that completes after [Controller.Stop]
// is discarded.
package poller
