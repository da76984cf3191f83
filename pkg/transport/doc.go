// Package transport implements the HTTP capability layer of the Strata SDK.
//
// Every higher-level component (CRUD builders, the realtime multiplexer,
// the batch accumulator) talks to the server through a single *Client:
//
//   - Send issues one JSON request and returns the decoded response or a
//     typed error. Cancelling the context surfaces as *AbortError, which
//     callers that supersede their own requests treat as a non-failure.
//   - Stream opens the long-lived server-push endpoint.
//   - BuildURL resolves a relative path against the configured base URL.
//
// Authentication is attached transparently: when a TokenSource is
// configured, its current bearer token is added to every outbound request,
// including the stream open. The transport itself never retries; retry and
// reconnect policy belong to the callers.
package transport
