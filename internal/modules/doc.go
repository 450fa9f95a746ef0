// Package modules holds a concrete lifecycle implementation for
// every module kind the mode registry can name. None of these
// implement consensus, wire protocol, or RPC method semantics, per
// the node's non-goals; each does only the minimum a lifecycle object
// needs to be attachable, observable in tests, and, where it
// plausibly would, exercise the domain stack (event bus, CTSDB, HTTP,
// peer directory).
package modules
