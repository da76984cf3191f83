// Package realtime implements the Strata realtime subscription multiplexer.
//
// A single Client keeps one long-lived server-push stream open and fans a
// dynamic set of logical topic subscriptions over it. Before any
// subscription takes effect the server issues an ephemeral client identity
// over the stream (the handshake); the client then registers its full
// topic interest set out-of-band over HTTP, and re-registers it every time
// the local subscriber set changes or the stream reconnects.
//
// # Lifecycle
//
// The connection moves through four states:
//
//	Disconnected -> Connecting -> Open
//	Open -> Reconnecting -> Connecting   (while retries remain and
//	                                      subscribers exist)
//	Reconnecting -> Disconnected         (retries exhausted or no
//	                                      subscribers left)
//
// Subscribing while Disconnected opens the stream; subscribing while
// Connecting joins the in-progress handshake instead of opening a second
// connection. Unsubscribing the last subscriber tears the stream down.
//
// # Interest Synchronization
//
// Registration pushes are coalescing: a burst of subscribe/unsubscribe
// calls may fold into a single push carrying the final topic set, and a
// newer push cancels an older in-flight one (supersession, which is not an
// error). After every completed push the coordinator compares the pushed
// set against the live registry and re-issues if they diverged, so the
// server's registered interest always converges on the local state.
//
// # Failure Handling
//
// Transport failures drive a bounded fixed-interval retry policy. While
// retries remain, subscriber registrations are kept and re-registered
// after the next successful handshake. When retries are exhausted the
// client transitions to Disconnected and reports the orphaned topic set
// through the OnDisconnect hook. Subscriber callbacks that panic are
// isolated per callback and reported to the event log; they never stop
// delivery to other subscribers.
package realtime
