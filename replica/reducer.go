package replica

import (
	"errors"
	"maps"

	"github.com/luca-patrignani/hangouts/domain/action"
	"github.com/luca-patrignani/hangouts/domain/board"
)

// Apply is the reducer. It returns the next state and the actions this
// replica wants to emit in response. Apply is total: an action it cannot
// accept leaves s untouched and yields no derived actions.
//
//   - Move: accepted only from the player whose turn it is, on a square of
//     the board. The square is assigned to the mover, the move is appended
//     to the log and the turn passes to the next player.
//   - Join: records the sender's key and answers with a Handshake addressed
//     to the sender.
//   - Handshake: records the sender's key.
func Apply(s State, a action.Action) (State, []action.Action) {
	if err := a.Validate(); err != nil {
		return s.reject(a, validationReason(err)), nil
	}
	switch p := a.Payload().(type) {
	case action.Move:
		return applyMove(s, a, p), nil
	case action.Join:
		next, ok := s.recordKey(a, p.PlayerID, p.PublicKey)
		if !ok {
			return s, nil
		}
		return next.accept(a), []action.Action{action.CreateHandshake(next, p.PlayerID)}
	case action.Handshake:
		next, ok := s.recordKey(a, p.PlayerID, p.PublicKey)
		if !ok {
			return s, nil
		}
		return next.accept(a), nil
	default:
		return s.reject(a, ReasonMalformed), nil
	}
}

func applyMove(s State, a action.Action, m action.Move) State {
	if m.PlayerID != s.turn {
		return s.reject(a, ReasonOutOfTurn)
	}
	// Owned squares are overwritten.
	b, err := s.board.Reserve(m.Position(), m.PlayerID)
	if err != nil {
		return s.reject(a, validationReason(err))
	}
	l, err := s.log.Append(a)
	if err != nil {
		return s.reject(a, ReasonMalformed)
	}
	next := s
	next.board = b
	next.log = l
	next.turn = s.turn.Next()
	return next.accept(a)
}

// recordKey stores key for id according to the key policy. It reports false
// when the action must be dropped.
func (s State) recordKey(a action.Action, id board.PlayerID, key string) (State, bool) {
	if key == "" {
		s.reject(a, ReasonMalformed)
		return s, false
	}
	existing, known := s.keys[id]
	if known && existing == key {
		return s, true
	}
	if known {
		switch s.cfg.keyPolicy {
		case RejectConflicting:
			s.reject(a, ReasonKeyConflict)
			return s, false
		case Overwrite:
			s.cfg.logger.Info("public key replaced", "player", int(id))
		default:
			s.cfg.logger.Debug("conflicting public key ignored", "player", int(id))
			return s, true
		}
	}
	keys := maps.Clone(s.keys)
	keys[id] = key
	next := s
	next.keys = keys
	return next, true
}

func (s State) accept(a action.Action) State {
	s.cfg.logger.Debug("action accepted", "action", a.String(), "turn", int(s.turn))
	s.cfg.observer.Accepted(s, a)
	return s
}

func (s State) reject(a action.Action, reason Reason) State {
	s.cfg.logger.Debug("action rejected", "action", a.String(), "reason", string(reason))
	s.cfg.observer.Rejected(s, a, reason)
	return s
}

func validationReason(err error) Reason {
	switch {
	case errors.Is(err, board.ErrInvalidPlayer):
		return ReasonInvalidPlayer
	case errors.Is(err, board.ErrOutOfBounds):
		return ReasonOutOfBounds
	default:
		return ReasonMalformed
	}
}

// RebuildBoard replays the log of s onto an empty board of the same size.
// For a replica that only ever changed through Apply the result equals
// s.Board().
func RebuildBoard(s State) (board.Board, error) {
	b, err := board.New(s.board.Width(), s.board.Height())
	if err != nil {
		return board.Board{}, err
	}
	for _, a := range s.log.Actions() {
		m, ok := a.Payload().(action.Move)
		if !ok {
			continue
		}
		b, err = b.Reserve(m.Position(), m.PlayerID)
		if err != nil {
			return board.Board{}, err
		}
	}
	return b, nil
}
