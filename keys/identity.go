package keys

import (
	"fmt"

	"signalcore/crypto/key25519"
	"signalcore/crypto/xeddsa"
)

// IdentityKey is the public half of a party's long-lived identity.
type IdentityKey struct {
	PublicKey key25519.Key
}

// NewIdentityKey wraps a 32-byte public key.
func NewIdentityKey(publicKey []byte) (*IdentityKey, error) {
	pub, err := key25519.New(publicKey)
	if err != nil {
		return nil, fmt.Errorf("identity key: %w", err)
	}
	return &IdentityKey{PublicKey: pub}, nil
}

// IdentityKeyPair is a Curve25519 identity key pair together with the
// Ed25519 verify key for its XEdDSA signatures. The verify key cannot be
// recomputed from the Curve25519 public key, so it travels with the pair.
type IdentityKeyPair struct {
	PublicKey  key25519.Key
	PrivateKey key25519.Key
	VerifyKey  key25519.Key
}

// GenerateIdentityKeyPair returns a fresh identity key pair with its verify
// key already derived.
func GenerateIdentityKeyPair() (*IdentityKeyPair, error) {
	pair, err := key25519.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating identity key pair: %w", err)
	}
	return &IdentityKeyPair{
		PublicKey:  pair.Pub,
		PrivateKey: pair.Priv,
		VerifyKey:  xeddsa.VerifyKey(pair.Priv),
	}, nil
}

// Sign signs msg with the identity key using XEdDSA.
func (kp *IdentityKeyPair) Sign(msg []byte) [xeddsa.SignatureSize]byte {
	return xeddsa.Sign(kp.PrivateKey, msg)
}

// Zero wipes the private scalar.
func (kp *IdentityKeyPair) Zero() {
	kp.PrivateKey.Zero()
}

// IdentityKeyPairRecord is the storage schema for an identity key pair, all
// fields hex-encoded. The verify key is optional: documents written before
// it was recorded omit it and it is re-derived from the private key on load.
type IdentityKeyPairRecord struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	VerifyKey  string `json:"ed25519_verify_key,omitempty"`
}

// Record serializes the pair for storage.
func (kp *IdentityKeyPair) Record() IdentityKeyPairRecord {
	return IdentityKeyPairRecord{
		PublicKey:  kp.PublicKey.Hex(),
		PrivateKey: kp.PrivateKey.Hex(),
		VerifyKey:  kp.VerifyKey.Hex(),
	}
}

// IdentityKeyPairFromRecord rebuilds a pair from its storage record.
func IdentityKeyPairFromRecord(rec IdentityKeyPairRecord) (*IdentityKeyPair, error) {
	pub, err := key25519.FromHex(rec.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("identity public key: %w", err)
	}
	priv, err := key25519.FromHex(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("identity private key: %w", err)
	}

	var verify key25519.Key
	if rec.VerifyKey != "" {
		if verify, err = key25519.FromHex(rec.VerifyKey); err != nil {
			return nil, fmt.Errorf("identity verify key: %w", err)
		}
	} else {
		verify = xeddsa.VerifyKey(priv)
	}

	return &IdentityKeyPair{
		PublicKey:  pub,
		PrivateKey: priv,
		VerifyKey:  verify,
	}, nil
}
