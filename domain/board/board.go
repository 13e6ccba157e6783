package board

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSize is the width and height used when none is configured.
const DefaultSize = 16

var (
	ErrOutOfBounds = errors.New("position out of bounds")
	ErrInvalidSize = errors.New("invalid board size")
)

// Position is a square coordinate. X is the column and Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Square is either empty or owned by a player. The zero value is empty.
type Square uint8

// Empty is the unclaimed square.
const Empty Square = 0

// Owned returns the square claimed by p.
func Owned(p PlayerID) Square {
	return Square(p)
}

func (s Square) IsEmpty() bool {
	return s == Empty
}

// Owner returns the player holding the square, or false if it is empty.
func (s Square) Owner() (PlayerID, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return PlayerID(s), true
}

func (s Square) String() string {
	if s.IsEmpty() {
		return "_"
	}
	return PlayerID(s).String()
}

// Board is a row-major grid of squares whose dimensions never change.
// Boards share rows structurally, so rows must never be written in place.
type Board struct {
	width  int
	height int
	rows   [][]Square
}

// New returns an empty board of the given size.
func New(width, height int) (Board, error) {
	if width <= 0 || height <= 0 {
		return Board{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	rows := make([][]Square, height)
	for y := range rows {
		rows[y] = make([]Square, width)
	}
	return Board{width: width, height: height, rows: rows}, nil
}

func (b Board) Width() int  { return b.width }
func (b Board) Height() int { return b.height }

// Contains reports whether p lies inside the board.
func (b Board) Contains(p Position) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

// At returns the square at p.
func (b Board) At(p Position) (Square, error) {
	if !b.Contains(p) {
		return Empty, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.X, p.Y)
	}
	return b.rows[p.Y][p.X], nil
}

// Reserve returns a copy of the board where p is owned by player.
// Only the touched row is copied; the others are shared with b.
// An already owned square is overwritten.
func (b Board) Reserve(p Position, player PlayerID) (Board, error) {
	if !player.Valid() {
		return b, fmt.Errorf("%w: %d", ErrInvalidPlayer, player)
	}
	if !b.Contains(p) {
		return b, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.X, p.Y)
	}
	rows := make([][]Square, len(b.rows))
	copy(rows, b.rows)
	row := make([]Square, b.width)
	copy(row, b.rows[p.Y])
	row[p.X] = Owned(player)
	rows[p.Y] = row
	return Board{width: b.width, height: b.height, rows: rows}, nil
}

// IsEmpty reports whether no square has been claimed.
func (b Board) IsEmpty() bool {
	for _, row := range b.rows {
		for _, sq := range row {
			if !sq.IsEmpty() {
				return false
			}
		}
	}
	return true
}

// Claims counts the squares owned by each player.
func (b Board) Claims() map[PlayerID]int {
	claims := make(map[PlayerID]int)
	for _, row := range b.rows {
		for _, sq := range row {
			if owner, ok := sq.Owner(); ok {
				claims[owner]++
			}
		}
	}
	return claims
}

// Equal reports whether both boards have the same size and squares.
func (b Board) Equal(other Board) bool {
	if b.width != other.width || b.height != other.height {
		return false
	}
	for y := range b.rows {
		for x := range b.rows[y] {
			if b.rows[y][x] != other.rows[y][x] {
				return false
			}
		}
	}
	return true
}

// Rows returns a deep copy of the grid.
func (b Board) Rows() [][]Square {
	rows := make([][]Square, len(b.rows))
	for y, row := range b.rows {
		rows[y] = append([]Square(nil), row...)
	}
	return rows
}

// String renders one line per row, "_" for empty squares.
func (b Board) String() string {
	var sb strings.Builder
	for y, row := range b.rows {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x, sq := range row {
			if x > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(sq.String())
		}
	}
	return sb.String()
}
