package node

import (
	"encoding/json"
	"fmt"

	"github.com/luca-patrignani/hangouts/domain/action"
)

// message is the body exchanged between nodes. Secured is false only while
// a newcomer's Join, and the Handshakes answering it, are in flight.
type message struct {
	Secured  bool            `json:"secured"`
	Envelope action.Envelope `json:"envelope"`
}

func encodeMessage(env action.Envelope, secured bool) ([]byte, error) {
	return json.Marshal(message{Secured: secured, Envelope: env})
}

func decodeMessage(data []byte) (message, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}
