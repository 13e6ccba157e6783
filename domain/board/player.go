package board

import (
	"errors"
	"fmt"
	"strconv"
)

// PlayerID identifies a seat at the board and the cryptographic identity
// bound to it. Valid values are 1 to 4.
type PlayerID uint8

const (
	Player1 PlayerID = iota + 1
	Player2
	Player3
	Player4
)

// PlayerCount is the number of seats at the board.
const PlayerCount = 4

var ErrInvalidPlayer = errors.New("invalid player id")

// Players returns every seat in turn order.
func Players() []PlayerID {
	return []PlayerID{Player1, Player2, Player3, Player4}
}

// Valid reports whether p is one of the four seats.
func (p PlayerID) Valid() bool {
	return p >= Player1 && p <= Player4
}

// Next returns the seat that moves after p, wrapping from 4 back to 1.
func (p PlayerID) Next() PlayerID {
	return p%PlayerCount + 1
}

func (p PlayerID) String() string {
	return strconv.Itoa(int(p))
}

// ParsePlayerID converts the textual form of a seat ("1".."4").
func ParsePlayerID(s string) (PlayerID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPlayer, s)
	}
	return NewPlayerID(n)
}

// NewPlayerID validates n and converts it to a PlayerID.
func NewPlayerID(n int) (PlayerID, error) {
	if n < int(Player1) || n > int(Player4) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPlayer, n)
	}
	return PlayerID(n), nil
}
