package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/luca-patrignani/hangouts/domain/board"
)

var ErrInvalidRoster = errors.New("invalid roster")

// Roster maps every player to the address its node listens on.
//
//	players:
//	  1: "192.168.1.10:8001"
//	  2: "192.168.1.11:8001"
type Roster struct {
	Players map[int]string `yaml:"players"`
}

func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}
	if len(r.Players) == 0 {
		return Roster{}, fmt.Errorf("%w: no players", ErrInvalidRoster)
	}
	for id, addr := range r.Players {
		if _, err := board.NewPlayerID(id); err != nil {
			return Roster{}, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
		}
		if addr == "" {
			return Roster{}, fmt.Errorf("%w: player %d has no address", ErrInvalidRoster, id)
		}
	}
	return r, nil
}

// PlayerIDs returns the listed players in ascending order.
func (r Roster) PlayerIDs() []board.PlayerID {
	ids := make([]board.PlayerID, 0, len(r.Players))
	for id := range r.Players {
		ids = append(ids, board.PlayerID(id))
	}
	slices.Sort(ids)
	return ids
}

// Addresses returns a copy of the addresses keyed by player ID.
func (r Roster) Addresses() map[int]string {
	addrs := make(map[int]string, len(r.Players))
	for id, a := range r.Players {
		addrs[id] = a
	}
	return addrs
}
