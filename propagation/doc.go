// Package propagation drives actions through a population of replicas until
// no replica has anything left to say.
//
// Dispatch signs an action on behalf of its origin, delivers it to every
// replica (or only to the addressee of a directed action) and feeds each
// derived action back into the same FIFO queue, signed by the replica that
// emitted it. The run ends when the queue is empty. The engine imposes no
// step limit; a receiver set that never quiesces is stopped through the
// context.
package propagation
