// Package server provides the HTTP server for the railpulse dashboard and API.
//
// This package is internal to railpulse and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: JSON snapshot at "/api/status" and manual refresh at "/api/refresh"
//   - Server-Sent Events: Real-time snapshots at "/api/sse"
//   - Websockets: The same snapshot stream at "/api/ws"
//   - Metrics: Prometheus exposition at "/metrics"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the railpulse library should not need to interact with this
// package directly. The server is started automatically by [railpulse.Monitor.Start].
package server
