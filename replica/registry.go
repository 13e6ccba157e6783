package replica

import (
	"errors"
	"fmt"
	"slices"

	"github.com/luca-patrignani/hangouts/domain/board"
)

var (
	ErrDuplicateReplica = errors.New("duplicate replica")
	ErrUnknownReplica   = errors.New("unknown replica")
)

// Registry is the ordered set of replicas of one session, at most one per
// player. Like State it is a value: Replace returns a new Registry.
type Registry struct {
	states []State
}

func NewRegistry(states ...State) (Registry, error) {
	r := Registry{}
	for _, s := range states {
		var err error
		if r, err = r.Add(s); err != nil {
			return Registry{}, err
		}
	}
	return r, nil
}

// Add appends a replica for a player not yet present.
func (r Registry) Add(s State) (Registry, error) {
	if _, ok := r.Get(s.PlayerID()); ok {
		return r, fmt.Errorf("%w: player %d", ErrDuplicateReplica, s.PlayerID())
	}
	return Registry{states: append(slices.Clip(r.states), s)}, nil
}

func (r Registry) Get(id board.PlayerID) (State, bool) {
	i := r.index(id)
	if i < 0 {
		return State{}, false
	}
	return r.states[i], true
}

// Replace swaps in the new state of an existing replica.
func (r Registry) Replace(s State) (Registry, error) {
	i := r.index(s.PlayerID())
	if i < 0 {
		return r, fmt.Errorf("%w: player %d", ErrUnknownReplica, s.PlayerID())
	}
	states := slices.Clone(r.states)
	states[i] = s
	return Registry{states: states}, nil
}

// States returns the replicas in registration order.
func (r Registry) States() []State {
	return slices.Clone(r.states)
}

func (r Registry) IDs() []board.PlayerID {
	ids := make([]board.PlayerID, len(r.states))
	for i, s := range r.states {
		ids[i] = s.PlayerID()
	}
	return ids
}

func (r Registry) Len() int { return len(r.states) }

// Converged reports whether every replica holds the same board and turn.
func (r Registry) Converged() bool {
	for _, s := range r.states[min(1, len(r.states)):] {
		if s.Turn() != r.states[0].Turn() || !s.Board().Equal(r.states[0].Board()) {
			return false
		}
	}
	return true
}

func (r Registry) index(id board.PlayerID) int {
	return slices.IndexFunc(r.states, func(s State) bool { return s.PlayerID() == id })
}
