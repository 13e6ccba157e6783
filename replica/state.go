package replica

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/luca-patrignani/hangouts/domain/board"
	"github.com/luca-patrignani/hangouts/ledger"
	"github.com/luca-patrignani/hangouts/signing"
)

// State is a participant's local replica. It is a value: transitions return
// a new State and never write into an existing one. The private handle is
// never serialized or shared.
//
// Use New to create one; the zero value is not usable.
type State struct {
	id        board.PlayerID
	publicKey string
	cfg       *settings

	keys  map[board.PlayerID]string
	board board.Board
	log   ledger.Log
	turn  board.PlayerID
}

// New creates the replica of player id with an empty board, an empty key
// table, an empty log and turn set to player 1.
func New(id board.PlayerID, provider signing.Provider, opts ...Option) (State, error) {
	if !id.Valid() {
		return State{}, fmt.Errorf("%w: %d", board.ErrInvalidPlayer, id)
	}
	if provider == nil {
		return State{}, fmt.Errorf("replica %d: missing signing provider", id)
	}
	cfg := defaultSettings(provider)
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	if cfg.handle == nil {
		h, err := provider.GenerateIdentity()
		if err != nil {
			return State{}, fmt.Errorf("replica %d: generate identity: %w", id, err)
		}
		cfg.handle = h
	}
	publicKey, err := provider.PublicKeyOf(cfg.handle)
	if err != nil {
		return State{}, fmt.Errorf("replica %d: derive public key: %w", id, err)
	}
	b, err := board.New(cfg.width, cfg.height)
	if err != nil {
		return State{}, err
	}
	if cfg.observer == nil {
		cfg.observer = nopObserver{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	cfg.logger = cfg.logger.With("replica", int(id))
	return State{
		id:        id,
		publicKey: publicKey,
		cfg:       &cfg,
		keys:      map[board.PlayerID]string{},
		board:     b,
		turn:      board.Player1,
	}, nil
}

// PlayerID returns the owner of the replica.
func (s State) PlayerID() board.PlayerID { return s.id }

// PublicKey returns the owner's public key.
func (s State) PublicKey() string { return s.publicKey }

// Sign signs payload with the owner's private handle.
func (s State) Sign(payload []byte) (string, error) {
	return s.cfg.provider.Sign(s.cfg.handle, payload)
}

// Turn returns the player allowed to make the next move.
func (s State) Turn() board.PlayerID { return s.turn }

func (s State) Board() board.Board { return s.board }

// Log returns the accepted moves in order.
func (s State) Log() ledger.Log { return s.log }

func (s State) Provider() signing.Provider { return s.cfg.provider }

func (s State) KeyPolicy() KeyPolicy { return s.cfg.keyPolicy }

// KeyOf returns the public key recorded for id.
func (s State) KeyOf(id board.PlayerID) (string, bool) {
	k, ok := s.keys[id]
	return k, ok
}

// Keys returns a copy of the known public keys.
func (s State) Keys() map[board.PlayerID]string {
	return maps.Clone(s.keys)
}

func (s State) String() string {
	return fmt.Sprintf("replica %d (turn %d, %d keys, %d moves)", s.id, s.turn, len(s.keys), s.log.Len())
}
