// Package signing provides the signing providers replicas use to
// authenticate actions. Key material never leaves a Handle; the rest of the
// system only sees public keys and signatures as opaque strings.
package signing

import (
	"errors"
	"fmt"
)

var (
	ErrForeignHandle = errors.New("handle was not created by this provider")
	ErrNotExportable = errors.New("signing handle cannot be serialized")
)

// Handle is the private half of an identity. It can sign and derive its
// public key but never exposes the secret itself.
type Handle interface {
	Sign(payload []byte) (string, error)
	PublicKey() (string, error)
}

// Provider creates identities and checks signatures produced by them.
type Provider interface {
	// Name identifies the signature scheme, e.g. "schnorr".
	Name() string

	// GenerateIdentity creates a fresh private handle.
	GenerateIdentity() (Handle, error)

	// Sign signs payload with h. It fails if h belongs to another provider.
	Sign(h Handle, payload []byte) (string, error)

	// Verify reports whether signature was produced over payload by the
	// holder of publicKey. Malformed keys or signatures verify as false.
	Verify(publicKey, signature string, payload []byte) bool

	// PublicKeyOf derives the public key of h.
	PublicKeyOf(h Handle) (string, error)
}

// ByName returns the provider registered under name.
func ByName(name string) (Provider, error) {
	switch name {
	case SchnorrName:
		return Schnorr(), nil
	case Ed25519Name:
		return Ed25519(), nil
	default:
		return nil, fmt.Errorf("unknown signing provider %q", name)
	}
}
