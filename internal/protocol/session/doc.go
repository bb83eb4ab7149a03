// Package session owns the client side of one command-server connection.
//
// Ownership boundary:
// - endpoint addressing and dial
// - exact-length frame send/receive with per-operation deadlines
// - draining bodies of unexpected type
//
// A Session carries one request/reply exchange; it is never pooled or reused.
package session
