package replica

import "github.com/luca-patrignani/hangouts/domain/action"

// Receive verifies env before handing its action to Apply. The verifying key
// is looked up by the playerId the payload claims, so a participant can only
// act as itself. Only the canonical payload bytes are signed; the type tag
// is outside the signature.
func Receive(s State, env action.Envelope) (State, []action.Action) {
	a := env.Action()
	if err := a.Validate(); err != nil {
		return s.reject(a, validationReason(err)), nil
	}
	key, ok := s.keys[a.Sender()]
	if !ok {
		return s.reject(a, ReasonUnknownSender), nil
	}
	payload, err := a.CanonicalPayload()
	if err != nil {
		return s.reject(a, ReasonMalformed), nil
	}
	if !s.cfg.provider.Verify(key, env.Signature(), payload) {
		return s.reject(a, ReasonBadSignature), nil
	}
	return Apply(s, a)
}

// ReceiveUnsecured applies a without any signature check. It exists so a
// newcomer's first Join can be delivered before anyone knows its key and must
// not be used for anything else.
//
// An unsecured announcement never replaces a recorded key, whatever the key
// policy: a different key for a known player drops the whole action.
func ReceiveUnsecured(s State, a action.Action) (State, []action.Action) {
	if key, ok := a.AnnouncedKey(); ok {
		if recorded, known := s.keys[a.Sender()]; known && recorded != key {
			return s.reject(a, ReasonKeyConflict), nil
		}
	}
	return Apply(s, a)
}
