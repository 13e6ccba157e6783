// Package replica implements one participant's local copy of the game and
// the rules that change it.
//
// # Core Components
//
// State: an immutable replica. Every successful transition returns a new
// State; a caller holding an older State keeps a consistent view of it.
//
// Apply: the reducer. It turns (State, Action) into (State, derived actions)
// and enforces the round-robin turn order.
//
// Receive: the verification gate. It only hands an envelope to the reducer
// when the payload's claimed sender is known and the signature matches.
// ReceiveUnsecured skips verification and exists only to bootstrap a
// participant's first Join.
//
// Registry: the ordered set of replicas taking part in a session.
//
// # Error Policy
//
// Apply and Receive never fail. A rejected action leaves the State unchanged
// and produces no derived actions. Rejections are reported to the configured
// Observer with a Reason so that tests and operators can tell them apart from
// actions that had no effect.
package replica
