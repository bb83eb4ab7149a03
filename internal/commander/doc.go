// Package commander executes commands on the Matlab command server.
//
// Ownership boundary:
// - connect, launch-on-absence and paced reconnect
// - one request/reply exchange per call
// - reply classification by the ERROR: prefix
// - best-effort exit requests
//
// Lifecycle of one call:
// - idle -> connecting -> (retrying -> connecting)* -> sending -> awaiting_reply -> replied -> closed
//
// No state survives a call. The server process is the only long-lived party.
package commander
