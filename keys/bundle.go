package keys

import (
	"errors"
	"fmt"

	"signalcore/crypto"
	"signalcore/crypto/hkdf"
	"signalcore/crypto/key25519"
	"signalcore/crypto/xeddsa"
)

var (
	ErrUntrustedBundle = errors.New("pre-key bundle signature invalid")

	hkdfInfoSessionSeed = []byte("SessionSeed")
)

// PreKeyBundle is the public material a party publishes so peers can start a
// session while it is offline. The one-time pre-key is optional.
type PreKeyBundle struct {
	RegistrationID uint32
	DeviceID       uint32

	PreKeyID *uint32
	PreKey   *key25519.Key

	SignedPreKeyID        uint32
	SignedPreKey          key25519.Key
	SignedPreKeySignature [xeddsa.SignatureSize]byte

	IdentityKey key25519.Key
	VerifyKey   key25519.Key
}

// NewPreKeyBundle assembles a bundle from local key material. oneTime may be
// nil when the party has exhausted its one-time pre-keys.
func NewPreKeyBundle(registrationID, deviceID uint32, identity *IdentityKeyPair, signed *SignedPreKeyPair, oneTime *OneTimePreKeyPair) *PreKeyBundle {
	bundle := &PreKeyBundle{
		RegistrationID:        registrationID,
		DeviceID:              deviceID,
		SignedPreKeyID:        signed.ID,
		SignedPreKey:          signed.Pair.Pub,
		SignedPreKeySignature: signed.Signature,
		IdentityKey:           identity.PublicKey,
		VerifyKey:             identity.VerifyKey,
	}
	if oneTime != nil {
		id := oneTime.ID
		pub := oneTime.Pair.Pub
		bundle.PreKeyID = &id
		bundle.PreKey = &pub
	}
	return bundle
}

// HasOneTimePreKey reports whether the bundle includes a one-time pre-key.
func (b *PreKeyBundle) HasOneTimePreKey() bool {
	return b.PreKey != nil && b.PreKeyID != nil
}

// Verify checks the signed pre-key's signature under the bundle's Ed25519
// verify key.
func (b *PreKeyBundle) Verify() bool {
	return xeddsa.Verify(b.VerifyKey, b.SignedPreKey.Bytes(), b.SignedPreKeySignature[:])
}

// InitiatorSessionSeed derives the (sharedSecret, initialRootKey) pair fed to
// DeriveRootAndChain at session establishment, from the initiator's identity
// key and the responder's signed pre-key. The bundle signature is checked
// first; an unverifiable bundle yields ErrUntrustedBundle and no key material.
//
// X25519 is symmetric, so ResponderSessionSeed over the mirrored key material
// produces the same pair on the other side.
func InitiatorSessionSeed(local *IdentityKeyPair, bundle *PreKeyBundle) (key25519.Key, key25519.Key, error) {
	if !bundle.Verify() {
		return key25519.Key{}, key25519.Key{}, ErrUntrustedBundle
	}
	dh, err := key25519.SharedSecret(local.PrivateKey, bundle.SignedPreKey)
	if err != nil {
		return key25519.Key{}, key25519.Key{}, fmt.Errorf("initiator agreement: %w", err)
	}
	defer dh.Zero()
	return deriveSessionSeed(dh)
}

// ResponderSessionSeed is the responder-side counterpart, combining the
// signed pre-key's private half with the initiator's identity key.
func ResponderSessionSeed(signed *SignedPreKeyPair, remoteIdentity key25519.Key) (key25519.Key, key25519.Key, error) {
	dh, err := key25519.SharedSecret(signed.Pair.Priv, remoteIdentity)
	if err != nil {
		return key25519.Key{}, key25519.Key{}, fmt.Errorf("responder agreement: %w", err)
	}
	defer dh.Zero()
	return deriveSessionSeed(dh)
}

func deriveSessionSeed(dh key25519.Key) (key25519.Key, key25519.Key, error) {
	buffer := make([]byte, 64)
	if _, err := hkdf.KDF(crypto.DefaultHashFunc, dh.Bytes(), nil, hkdfInfoSessionSeed, buffer); err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	sharedSecret, err := key25519.New(buffer[:32])
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	initialRootKey, err := key25519.New(buffer[32:])
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	return sharedSecret, initialRootKey, nil
}
