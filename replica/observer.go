package replica

import "github.com/luca-patrignani/hangouts/domain/action"

// Reason explains why an action was dropped.
type Reason string

const (
	ReasonUnknownSender Reason = "unknown-sender"
	ReasonBadSignature  Reason = "bad-signature"
	ReasonOutOfTurn     Reason = "out-of-turn"
	ReasonOutOfBounds   Reason = "out-of-bounds"
	ReasonInvalidPlayer Reason = "invalid-player"
	ReasonKeyConflict   Reason = "key-conflict"
	ReasonMalformed     Reason = "malformed"
)

// Observer is told about every action a replica accepts or drops.
// Accepted receives the new state, Rejected the unchanged one.
type Observer interface {
	Accepted(s State, a action.Action)
	Rejected(s State, a action.Action, reason Reason)
}

type nopObserver struct{}

func (nopObserver) Accepted(State, action.Action)         {}
func (nopObserver) Rejected(State, action.Action, Reason) {}

// Observers fans out to every observer in order.
type Observers []Observer

func (o Observers) Accepted(s State, a action.Action) {
	for _, obs := range o {
		obs.Accepted(s, a)
	}
}

func (o Observers) Rejected(s State, a action.Action, reason Reason) {
	for _, obs := range o {
		obs.Rejected(s, a, reason)
	}
}

// RejectionFunc is an Observer that only cares about rejections.
type RejectionFunc func(s State, a action.Action, reason Reason)

func (f RejectionFunc) Accepted(State, action.Action) {}

func (f RejectionFunc) Rejected(s State, a action.Action, reason Reason) {
	f(s, a, reason)
}
