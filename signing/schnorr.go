package signing

import (
	"encoding/base64"
	"encoding/hex"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/sign/schnorr"
	"go.dedis.ch/kyber/v4/suites"
)

const SchnorrName = "schnorr"

var suite suites.Suite = suites.MustFind("Ed25519")

type schnorrProvider struct{}

// Schnorr returns a provider signing with Schnorr signatures over the
// Ed25519 group. Public keys are hex encoded points, signatures base64.
func Schnorr() Provider {
	return schnorrProvider{}
}

type schnorrHandle struct {
	private kyber.Scalar
	public  kyber.Point
}

func (schnorrProvider) Name() string { return SchnorrName }

func (schnorrProvider) GenerateIdentity() (Handle, error) {
	private := suite.Scalar().Pick(suite.RandomStream())
	return &schnorrHandle{
		private: private,
		public:  suite.Point().Mul(private, nil),
	}, nil
}

func (schnorrProvider) Sign(h Handle, payload []byte) (string, error) {
	sh, ok := h.(*schnorrHandle)
	if !ok {
		return "", ErrForeignHandle
	}
	return sh.Sign(payload)
}

func (schnorrProvider) Verify(publicKey, signature string, payload []byte) bool {
	keyBytes, err := hex.DecodeString(publicKey)
	if err != nil {
		return false
	}
	public := suite.Point()
	if err := public.UnmarshalBinary(keyBytes); err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	return schnorr.Verify(suite, public, payload, sig) == nil
}

func (schnorrProvider) PublicKeyOf(h Handle) (string, error) {
	sh, ok := h.(*schnorrHandle)
	if !ok {
		return "", ErrForeignHandle
	}
	return sh.PublicKey()
}

func (h *schnorrHandle) Sign(payload []byte) (string, error) {
	sig, err := schnorr.Sign(suite, h.private, payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (h *schnorrHandle) PublicKey() (string, error) {
	b, err := h.public.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (h *schnorrHandle) String() string { return "schnorr-handle" }

func (h *schnorrHandle) MarshalJSON() ([]byte, error) {
	return nil, ErrNotExportable
}
