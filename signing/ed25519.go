package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
)

const Ed25519Name = "ed25519"

type ed25519Provider struct{}

// Ed25519 returns a provider backed by crypto/ed25519.
func Ed25519() Provider {
	return ed25519Provider{}
}

type ed25519Handle struct {
	priv ed25519.PrivateKey
}

func (ed25519Provider) Name() string { return Ed25519Name }

func (ed25519Provider) GenerateIdentity() (Handle, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &ed25519Handle{priv: priv}, nil
}

func (ed25519Provider) Sign(h Handle, payload []byte) (string, error) {
	eh, ok := h.(*ed25519Handle)
	if !ok {
		return "", ErrForeignHandle
	}
	return eh.Sign(payload)
}

func (ed25519Provider) Verify(publicKey, signature string, payload []byte) bool {
	pub, err := hex.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

func (ed25519Provider) PublicKeyOf(h Handle) (string, error) {
	eh, ok := h.(*ed25519Handle)
	if !ok {
		return "", ErrForeignHandle
	}
	return eh.PublicKey()
}

func (h *ed25519Handle) Sign(payload []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(h.priv, payload)), nil
}

func (h *ed25519Handle) PublicKey() (string, error) {
	pub := h.priv.Public().(ed25519.PublicKey)
	return hex.EncodeToString(pub), nil
}

func (h *ed25519Handle) String() string { return "ed25519-handle" }

func (h *ed25519Handle) MarshalJSON() ([]byte, error) {
	return nil, ErrNotExportable
}
