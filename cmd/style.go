package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/hangouts/domain/board"
)

var playerColors = map[board.PlayerID]pterm.Color{
	board.Player1: pterm.FgLightRed,
	board.Player2: pterm.FgLightGreen,
	board.Player3: pterm.FgLightBlue,
	board.Player4: pterm.FgLightYellow,
}

// renderBoard draws the board as a table with column and row numbers.
func renderBoard(b board.Board) (string, error) {
	header := []string{""}
	for x := range b.Width() {
		header = append(header, strconv.Itoa(x))
	}
	data := [][]string{header}
	for y, row := range b.Rows() {
		line := []string{strconv.Itoa(y)}
		for _, sq := range row {
			line = append(line, squareCell(sq))
		}
		data = append(data, line)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func squareCell(sq board.Square) string {
	owner, ok := sq.Owner()
	if !ok {
		return pterm.Gray("·")
	}
	return playerColors[owner].Sprint(owner.String())
}

// renderClaims lists how many squares each player owns.
func renderClaims(b board.Board) (string, error) {
	claims := b.Claims()
	data := [][]string{{"Player", "Squares"}}
	for _, p := range board.Players() {
		data = append(data, []string{playerColors[p].Sprint(p.String()), strconv.Itoa(claims[p])})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func turnBanner(turn, me board.PlayerID) string {
	if turn == me {
		return pterm.LightGreen("Your turn")
	}
	return fmt.Sprintf("Waiting for player %s", playerColors[turn].Sprint(turn.String()))
}
