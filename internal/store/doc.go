// Package store holds the published status snapshot for railpulse.
//
// This package is internal to railpulse and keeps the single current
// [Snapshot] that the display layer reads. The polling controller replaces
// parts of it through [Store.Update] (apply and notify); readers either call
// [Store.Get] or subscribe for pushed updates.
//
// The main components are:
//
//   - [Store]: Interface defining snapshot access and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: Display-facing view of projects, errors and rate-limit state
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
