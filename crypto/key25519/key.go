package key25519

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of every key handled by this package: Curve25519
// public and private keys as well as derived 32-byte secrets.
const KeySize = 32

var (
	ErrInvalidKeyLength = errors.New("invalid key length")
)

// Key is a fixed 32-byte key or secret (public key, private key, root key,
// chain key or message seed).
type Key [KeySize]byte

// New copies b into a Key. Any input that is not exactly 32 bytes is rejected
// with ErrInvalidKeyLength and nothing is constructed.
func New(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, ErrInvalidKeyLength
	}
	copy(k[:], b)
	return k, nil
}

// FromHex decodes a hex-encoded 32-byte key.
func FromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return New(b)
}

func (k Key) Bytes() []byte {
	return k[:]
}

func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Equals compares two keys in constant time.
func (k Key) Equals(other Key) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

// Zero wipes the key material in place. Callers drop secrets through here so
// key bytes do not linger in memory.
func (k *Key) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// Pair is a Curve25519 key pair. The private scalar is always stored clamped.
type Pair struct {
	Pub  Key
	Priv Key
}

// Zero wipes the private half of the pair.
func (p *Pair) Zero() {
	p.Priv.Zero()
}

// Clamp applies the Curve25519 private-scalar convention in place: the low
// three bits of byte 0 cleared, the high bit of byte 31 cleared and the
// second-highest bit of byte 31 set.
func Clamp(k *Key) {
	k[0] &= 0xf8
	k[31] &= 0x7f
	k[31] |= 0x40
}

// Generate returns a fresh clamped Curve25519 key pair.
func Generate() (*Pair, error) {
	var priv Key
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, err
	}
	return pairFromPrivate(priv)
}

// FromSeed derives a key pair deterministically from a 32-byte seed. Intended
// for reproducible fixtures; production keys come from Generate.
func FromSeed(seed Key) (*Pair, error) {
	return pairFromPrivate(seed)
}

func pairFromPrivate(priv Key) (*Pair, error) {
	Clamp(&priv)
	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	pub, err := New(pubBytes)
	if err != nil {
		return nil, err
	}
	return &Pair{Pub: pub, Priv: priv}, nil
}

// SharedSecret performs X25519 between a private scalar and a peer public key.
func SharedSecret(priv Key, pub Key) (Key, error) {
	secret, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return Key{}, err
	}
	return New(secret)
}
