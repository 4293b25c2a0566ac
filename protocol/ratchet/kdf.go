package ratchet

import (
	"signalcore/crypto"
	"signalcore/crypto/hkdf"
	"signalcore/crypto/hmac"
	"signalcore/crypto/key25519"
)

var (
	// Expansion labels. Each derivation uses its own label so outputs from
	// different derivations can never collide.
	hkdfInfoRootChain   = []byte("RootKey")
	hkdfInfoMessageKeys = []byte("MessageKey")

	// Chain-advance labels for the symmetric-key ratchet.
	labelMessageSeed = []byte{0x01}
	labelChainKey    = []byte{0x02}
)

// MessageKeys is the single-use material for one message: an AES-256 key, an
// HMAC-SHA256 key and a CBC IV, all expanded from one message seed.
type MessageKeys struct {
	EncKey [32]byte
	MacKey [32]byte
	IV     [16]byte
}

// Zero wipes the message key material in place.
func (mk *MessageKeys) Zero() {
	for i := range mk.EncKey {
		mk.EncKey[i] = 0
	}
	for i := range mk.MacKey {
		mk.MacKey[i] = 0
	}
	for i := range mk.IV {
		mk.IV[i] = 0
	}
}

// DeriveRootAndChain mixes a shared secret into the previous root key and
// returns the next root key plus a fresh chain key. The shared secret is
// extracted with HMAC-SHA256 keyed by the previous root key, then expanded
// into 64 bytes split in two halves. Deterministic, so both parties derive
// the same pair from the same inputs.
func DeriveRootAndChain(sharedSecret, previousRootKey key25519.Key) (key25519.Key, key25519.Key, error) {
	prk := hmac.Hash(crypto.DefaultHashFunc, previousRootKey.Bytes(), sharedSecret.Bytes())

	buffer := make([]byte, 64)
	if n, err := hkdf.Expand(crypto.DefaultHashFunc, prk, hkdfInfoRootChain, buffer); err != nil {
		return key25519.Key{}, key25519.Key{}, err
	} else if n != 64 {
		return key25519.Key{}, key25519.Key{}, ErrInvalidDerivedLength
	}

	rootKey, err := key25519.New(buffer[:32])
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	chainKey, err := key25519.New(buffer[32:])
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	return rootKey, chainKey, nil
}

// AdvanceChain performs one symmetric ratchet step. The chain key itself is
// the HMAC-SHA256 key: label 0x02 yields the next chain key and label 0x01
// the message seed. HMAC is one-way, so earlier chain keys are unrecoverable
// from later ones.
func AdvanceChain(chainKey key25519.Key) (key25519.Key, key25519.Key, error) {
	next, err := key25519.New(hmac.Hash(crypto.DefaultHashFunc, chainKey.Bytes(), labelChainKey))
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	seed, err := key25519.New(hmac.Hash(crypto.DefaultHashFunc, chainKey.Bytes(), labelMessageSeed))
	if err != nil {
		return key25519.Key{}, key25519.Key{}, err
	}
	return next, seed, nil
}

// DeriveMessageKeys expands a message seed into the per-message cipher key,
// MAC key and IV.
func DeriveMessageKeys(seed key25519.Key) (*MessageKeys, error) {
	buffer := make([]byte, 80)
	if n, err := hkdf.KDF(crypto.DefaultHashFunc, seed.Bytes(), nil, hkdfInfoMessageKeys, buffer); err != nil {
		return nil, err
	} else if n != 80 {
		return nil, ErrInvalidDerivedLength
	}

	var mk MessageKeys
	copy(mk.EncKey[:], buffer[:32])
	copy(mk.MacKey[:], buffer[32:64])
	copy(mk.IV[:], buffer[64:])
	return &mk, nil
}
