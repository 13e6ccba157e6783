package action

import (
	"encoding/json"
	"fmt"
)

// Signer signs canonical payload bytes.
type Signer interface {
	Sign(payload []byte) (string, error)
}

// Envelope pairs an action with the signature over its payload. It is
// immutable: relays forward it as is and never re-sign it.
type Envelope struct {
	signature string
	action    Action
}

// NewEnvelope wraps an action and an existing signature without checking
// either. Use Seal to sign.
func NewEnvelope(a Action, signature string) Envelope {
	return Envelope{signature: signature, action: a}
}

// Seal signs the canonical payload of a with s.
func Seal(s Signer, a Action) (Envelope, error) {
	payload, err := a.CanonicalPayload()
	if err != nil {
		return Envelope{}, err
	}
	sig, err := s.Sign(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("sign %s: %w", a.Type(), err)
	}
	return Envelope{signature: sig, action: a}, nil
}

func (e Envelope) Signature() string { return e.signature }
func (e Envelope) Action() Action    { return e.action }

type wireEnvelope struct {
	Signature string `json:"signature"`
	Action    Action `json:"action"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{Signature: e.signature, Action: e.action})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.signature = w.Signature
	e.action = w.Action
	return nil
}
