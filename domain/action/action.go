// Package action defines the actions replicas exchange and the signed
// envelope they travel in.
//
// An Action is a closed union of Move, Join and Handshake. Every payload
// carries the acting player, and signatures cover the canonical payload
// bytes only, never the type tag.
package action

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/luca-patrignani/hangouts/domain/board"
)

type Type string

const (
	TypeMove      Type = "MOVE"
	TypeJoin      Type = "JOIN"
	TypeHandshake Type = "HANDSHAKE"
)

var (
	ErrUnknownType    = errors.New("unknown action type")
	ErrMissingPayload = errors.New("action has no payload")
	ErrInvalidUTF8    = errors.New("string is not valid UTF-8")
)

// Payload is implemented by Move, Join and Handshake.
type Payload interface {
	Type() Type
	// Sender is the player the payload claims to act for.
	Sender() board.PlayerID
	fields() map[string]any
}

// Move claims square (X, Y) on behalf of PlayerID.
type Move struct {
	X        int            `json:"x"`
	Y        int            `json:"y"`
	PlayerID board.PlayerID `json:"playerId"`
}

func (Move) Type() Type                 { return TypeMove }
func (m Move) Sender() board.PlayerID   { return m.PlayerID }
func (m Move) Position() board.Position { return board.Position{X: m.X, Y: m.Y} }

func (m Move) fields() map[string]any {
	return map[string]any{"x": m.X, "y": m.Y, "playerId": int(m.PlayerID)}
}

// Join announces PlayerID's public key to everyone.
type Join struct {
	PublicKey string         `json:"publicKey"`
	PlayerID  board.PlayerID `json:"playerId"`
}

func (Join) Type() Type               { return TypeJoin }
func (j Join) Sender() board.PlayerID { return j.PlayerID }

func (j Join) fields() map[string]any {
	return map[string]any{"publicKey": j.PublicKey, "playerId": int(j.PlayerID)}
}

// Handshake answers a Join. It is addressed to To only and carries the
// replying player's key.
type Handshake struct {
	To        board.PlayerID `json:"to"`
	PublicKey string         `json:"publicKey"`
	PlayerID  board.PlayerID `json:"playerId"`
}

func (Handshake) Type() Type               { return TypeHandshake }
func (h Handshake) Sender() board.PlayerID { return h.PlayerID }

func (h Handshake) fields() map[string]any {
	return map[string]any{"to": int(h.To), "publicKey": h.PublicKey, "playerId": int(h.PlayerID)}
}

// Action is a typed state transition. The zero value has no payload and is
// rejected everywhere.
type Action struct {
	payload Payload
}

// New wraps a payload into an Action.
func New(p Payload) Action {
	return Action{payload: p}
}

func (a Action) Payload() Payload { return a.payload }

func (a Action) Type() Type {
	if a.payload == nil {
		return ""
	}
	return a.payload.Type()
}

// Sender returns the player the payload claims to come from.
func (a Action) Sender() board.PlayerID {
	if a.payload == nil {
		return 0
	}
	return a.payload.Sender()
}

// Recipient returns the addressee of a directed action. Broadcast actions
// return false.
func (a Action) Recipient() (board.PlayerID, bool) {
	if h, ok := a.payload.(Handshake); ok {
		return h.To, true
	}
	return 0, false
}

// AnnouncedKey returns the public key a Join or Handshake carries.
func (a Action) AnnouncedKey() (string, bool) {
	switch p := a.payload.(type) {
	case Join:
		return p.PublicKey, true
	case Handshake:
		return p.PublicKey, true
	}
	return "", false
}

// Validate checks the shape of the action, not whether it may be applied.
func (a Action) Validate() error {
	if a.payload == nil {
		return ErrMissingPayload
	}
	if !a.payload.Sender().Valid() {
		return fmt.Errorf("%s: %w: %d", a.Type(), board.ErrInvalidPlayer, a.payload.Sender())
	}
	if to, ok := a.Recipient(); ok && !to.Valid() {
		return fmt.Errorf("%s recipient: %w: %d", a.Type(), board.ErrInvalidPlayer, to)
	}
	if key, ok := a.AnnouncedKey(); ok && !utf8.ValidString(key) {
		return fmt.Errorf("%s public key: %w", a.Type(), ErrInvalidUTF8)
	}
	return nil
}

// CanonicalPayload returns the bytes that are signed and verified.
func (a Action) CanonicalPayload() ([]byte, error) {
	if a.payload == nil {
		return nil, ErrMissingPayload
	}
	return marshalCanonical(a.payload.fields())
}

func (a Action) String() string {
	if a.payload == nil {
		return "<empty action>"
	}
	return fmt.Sprintf("%s%+v", a.Type(), a.payload)
}

// Actor is whoever builds an action: it stamps its own identity and key.
type Actor interface {
	PlayerID() board.PlayerID
	PublicKey() string
}

func CreateMove(actor Actor, x, y int) Action {
	return New(Move{X: x, Y: y, PlayerID: actor.PlayerID()})
}

func CreateJoin(actor Actor) Action {
	return New(Join{PublicKey: actor.PublicKey(), PlayerID: actor.PlayerID()})
}

func CreateHandshake(actor Actor, recipient board.PlayerID) Action {
	return New(Handshake{To: recipient, PublicKey: actor.PublicKey(), PlayerID: actor.PlayerID()})
}
