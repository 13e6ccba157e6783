package propagation

import (
	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/replica"
)

// Receiver is the transition the engine applies to each delivery.
type Receiver interface {
	Receive(s replica.State, env action.Envelope) (replica.State, []action.Action)
	ReceiveUnsecured(s replica.State, a action.Action) (replica.State, []action.Action)
}

type gate struct{}

func (gate) Receive(s replica.State, env action.Envelope) (replica.State, []action.Action) {
	return replica.Receive(s, env)
}

func (gate) ReceiveUnsecured(s replica.State, a action.Action) (replica.State, []action.Action) {
	return replica.ReceiveUnsecured(s, a)
}

// ReceiverFunc uses the same function for both paths. Unsecured deliveries
// carry no signature.
type ReceiverFunc func(s replica.State, env action.Envelope) (replica.State, []action.Action)

func (f ReceiverFunc) Receive(s replica.State, env action.Envelope) (replica.State, []action.Action) {
	return f(s, env)
}

func (f ReceiverFunc) ReceiveUnsecured(s replica.State, a action.Action) (replica.State, []action.Action) {
	return f(s, action.NewEnvelope(a, ""))
}
