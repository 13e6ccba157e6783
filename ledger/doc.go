// Package ledger implements the append-only log of actions a replica has
// accepted.
//
// # Core Components
//
// Log: an immutable hash chain of entries. Append returns a new Log and
// leaves the receiver valid, which lets a replica keep copy-on-write
// semantics without copying history on every read.
//
// Entry: one accepted action together with its position in the chain and
// the hashes linking it to its predecessor.
//
// # Security Properties
//
// The chain provides:
//   - Ordering: entries are numbered from 0 without gaps
//   - Tamper detection: changing any entry breaks every later link
//
// Verify can be called at any time to check the chain is intact.
package ledger
