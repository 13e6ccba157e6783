package ledger

import "github.com/luca-patrignani/hangouts/domain/action"

// GenesisHash is the PrevHash of the first entry.
const GenesisHash = "0"

// Entry is one accepted action in the log.
type Entry struct {
	Index    int           `json:"index"`
	PrevHash string        `json:"prev_hash"`
	Hash     string        `json:"hash"`
	Action   action.Action `json:"action"`
}
