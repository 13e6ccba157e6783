// Package node runs one replica as an independent actor on a network.
//
// A Node owns its replica and is the only goroutine allowed to change it.
// Everything that can change the replica, whether a local Dispatch or an
// envelope received from another player, goes through one FIFO work queue.
// Outgoing envelopes are queued per recipient and sent by one goroutine per
// recipient, so every receiver sees this node's actions in the order they
// were signed. A slow or absent player only delays what is addressed to it.
//
// Propagation is asynchronous: a derived action is signed by the node that
// emitted it and sent like any other. The system is settled when no message
// is in flight.
package node
