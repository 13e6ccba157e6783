// Package board implements the shared game board that every replica keeps a
// local copy of.
//
// # Core Types
//
// PlayerID: one of the four seats at the board. It is also the identity
// a participant signs with.
//
// Board: a fixed-size grid of Squares. A Board is a value: Reserve returns a
// new Board and leaves the receiver untouched, so an observer holding an old
// Board keeps a consistent view.
//
// # Rules
//
// The board does not know about turns or signatures. It only checks that a
// claimed Position lies inside the grid. A claim may overwrite a square that
// is already owned.
package board
