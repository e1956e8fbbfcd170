// Package api implements Houseflow's HTTP and WebSocket server.
//
// This package provides:
//   - Auth handlers: two-step login, register, logout, token refresh
//   - Fulfillment handlers: execute, query, sync
//   - The /lighthouse/ws upgrade path into a device session
//   - Middleware stack (request ID, logging, recovery, CORS, rate limiting)
//
// # Architecture
//
// The server sits between end-user clients (CLI, the voice-assistant
// bridge) and connected devices. Fulfillment requests carry an access
// token, are checked against the external database for device
// authorization, and are dispatched to the device's live session held by
// the session registry (internal/registry). A device connects over
// /lighthouse/ws with Basic credentials and is authenticated against the
// same external database.
package api
