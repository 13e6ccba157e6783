package action

import (
	"encoding/json"
	"fmt"
)

type wireAction struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.payload == nil {
		return nil, ErrMissingPayload
	}
	payload, err := json.Marshal(a.payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireAction{Type: a.Type(), Payload: payload})
}

// UnmarshalJSON decodes the tagged form and validates the result.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Payload) == 0 {
		return ErrMissingPayload
	}
	var p Payload
	switch w.Type {
	case TypeMove:
		var m Move
		if err := json.Unmarshal(w.Payload, &m); err != nil {
			return fmt.Errorf("decode %s: %w", w.Type, err)
		}
		p = m
	case TypeJoin:
		var j Join
		if err := json.Unmarshal(w.Payload, &j); err != nil {
			return fmt.Errorf("decode %s: %w", w.Type, err)
		}
		p = j
	case TypeHandshake:
		var h Handshake
		if err := json.Unmarshal(w.Payload, &h); err != nil {
			return fmt.Errorf("decode %s: %w", w.Type, err)
		}
		p = h
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}
	decoded := New(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*a = decoded
	return nil
}
