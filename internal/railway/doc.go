// Package railway fetches deployment state from the Railway GraphQL API.
//
// One fetch cycle is two phases:
//
//  1. A single enumeration query returns every project with its services and
//     environments (first page only).
//  2. For each service in a project that has a production environment, the
//     latest deployment is looked up. Lookups are multiplexed into one GraphQL
//     request per [BatchSize] services using field aliases d0, d1, ... and
//     written back into the project tree by position.
//
// [Fetcher] orchestrates the cycle, [Batcher] owns the alias batching, and
// the model types ([Project], [Service], [Environment], [Deployment]) are
// immutable snapshots replaced wholesale on every successful cycle.
package railway
