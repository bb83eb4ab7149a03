// Package supervisor starts the Matlab command server as a detached process.
//
// Ownership boundary:
// - launch preconditions (executable and startup script exist)
// - per-platform argument composition
// - detach and hand-off of the child to the OS
// - coarse launch outcome classification
//
// The supervisor never retries a launch and never waits for the child.
package supervisor
