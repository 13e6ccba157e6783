package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/luca-patrignani/hangouts/domain/action"
)

// Log is an immutable hash-chained sequence of accepted actions.
// The zero value is an empty log.
type Log struct {
	entries []Entry
}

// Append returns a new log ending with a. The receiver is left untouched.
func (l Log) Append(a action.Action) (Log, error) {
	prevHash := GenesisHash
	if latest, ok := l.Latest(); ok {
		prevHash = latest.Hash
	}
	entry := Entry{
		Index:    len(l.entries),
		PrevHash: prevHash,
		Action:   a,
	}
	hash, err := calculateHash(entry)
	if err != nil {
		return l, fmt.Errorf("invalid entry: %w", err)
	}
	entry.Hash = hash
	// Clip forces a fresh backing array so older logs never see the entry.
	return Log{entries: append(slices.Clip(l.entries), entry)}, nil
}

func (l Log) Len() int { return len(l.entries) }

// Latest returns the most recently appended entry.
func (l Log) Latest() (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// GetByIndex retrieves an entry by its index in the chain.
func (l Log) GetByIndex(index int) (Entry, error) {
	if index < 0 || index >= len(l.entries) {
		return Entry{}, fmt.Errorf("index %d out of range", index)
	}
	return l.entries[index], nil
}

// Entries returns a copy of the chain.
func (l Log) Entries() []Entry {
	return slices.Clone(l.entries)
}

// Actions returns the logged actions in order.
func (l Log) Actions() []action.Action {
	actions := make([]action.Action, len(l.entries))
	for i, e := range l.entries {
		actions[i] = e.Action
	}
	return actions
}

// Verify validates the integrity of the whole chain.
func (l Log) Verify() error {
	prevHash := GenesisHash
	for i, e := range l.entries {
		if err := validateEntry(e, i, prevHash); err != nil {
			return fmt.Errorf("entry %d invalid: %w", i, err)
		}
		prevHash = e.Hash
	}
	return nil
}

func validateEntry(e Entry, index int, prevHash string) error {
	if e.Index != index {
		return fmt.Errorf("invalid index: expected %d, got %d", index, e.Index)
	}
	if e.PrevHash != prevHash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", prevHash, e.PrevHash)
	}
	expected, err := calculateHash(e)
	if err != nil {
		return err
	}
	if e.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, e.Hash)
	}
	return nil
}

// calculateHash hashes the index, the previous hash, the action type and
// the canonical payload.
func calculateHash(e Entry) (string, error) {
	payload, err := e.Action.CanonicalPayload()
	if err != nil {
		return "", err
	}
	data := fmt.Sprintf("%d%s%s%s", e.Index, e.PrevHash, e.Action.Type(), payload)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:]), nil
}
