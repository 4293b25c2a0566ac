package keys

import (
	"encoding/hex"
	"fmt"
	"time"

	"signalcore/crypto/key25519"
	"signalcore/crypto/xeddsa"
)

// PreKeyPair is a published medium-term key pair identified by a numeric ID.
type PreKeyPair struct {
	ID   uint32
	Pair key25519.Pair
}

// GeneratePreKeyPair returns a fresh pre-key pair with the given ID.
func GeneratePreKeyPair(id uint32) (*PreKeyPair, error) {
	pair, err := key25519.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating pre-key %d: %w", id, err)
	}
	return &PreKeyPair{ID: id, Pair: *pair}, nil
}

// GeneratePreKeys returns count pre-keys with consecutive IDs starting at
// startID.
func GeneratePreKeys(startID uint32, count int) ([]*PreKeyPair, error) {
	preKeys := make([]*PreKeyPair, 0, count)
	for i := 0; i < count; i++ {
		pk, err := GeneratePreKeyPair(startID + uint32(i))
		if err != nil {
			return nil, err
		}
		preKeys = append(preKeys, pk)
	}
	return preKeys, nil
}

// OneTimePreKeyPair is a pre-key consumed by a single session setup and then
// removed from the store.
type OneTimePreKeyPair struct {
	PreKeyPair
}

// GenerateOneTimePreKeys returns count one-time pre-keys with consecutive IDs.
func GenerateOneTimePreKeys(startID uint32, count int) ([]*OneTimePreKeyPair, error) {
	preKeys, err := GeneratePreKeys(startID, count)
	if err != nil {
		return nil, err
	}
	oneTime := make([]*OneTimePreKeyPair, 0, count)
	for _, pk := range preKeys {
		oneTime = append(oneTime, &OneTimePreKeyPair{PreKeyPair: *pk})
	}
	return oneTime, nil
}

// SignedPreKeyPair is a pre-key whose public half carries an XEdDSA signature
// by the owner's identity key, plus a millisecond creation timestamp for
// rotation bookkeeping.
type SignedPreKeyPair struct {
	PreKeyPair
	Timestamp int64
	Signature [xeddsa.SignatureSize]byte
}

// NewSignedPreKeyPair generates a pre-key and signs its public half with the
// identity key.
func NewSignedPreKeyPair(identity *IdentityKeyPair, id uint32) (*SignedPreKeyPair, error) {
	pk, err := GeneratePreKeyPair(id)
	if err != nil {
		return nil, err
	}
	return &SignedPreKeyPair{
		PreKeyPair: *pk,
		Timestamp:  time.Now().UnixMilli(),
		Signature:  identity.Sign(pk.Pair.Pub.Bytes()),
	}, nil
}

// VerifySignedPreKey checks a signed pre-key's signature under the issuer's
// Ed25519 verify key.
func VerifySignedPreKey(verifyKey key25519.Key, preKeyPub key25519.Key, signature [xeddsa.SignatureSize]byte) bool {
	return xeddsa.Verify(verifyKey, preKeyPub.Bytes(), signature[:])
}

// PreKeyRecord is the hex-encoded storage schema for a pre-key pair.
type PreKeyRecord struct {
	ID         uint32 `json:"key_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// SignedPreKeyRecord extends PreKeyRecord with the signature and timestamp.
type SignedPreKeyRecord struct {
	PreKeyRecord
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// Record serializes the pre-key pair for storage.
func (pk *PreKeyPair) Record() PreKeyRecord {
	return PreKeyRecord{
		ID:         pk.ID,
		PublicKey:  pk.Pair.Pub.Hex(),
		PrivateKey: pk.Pair.Priv.Hex(),
	}
}

// PreKeyPairFromRecord rebuilds a pre-key pair from its storage record.
func PreKeyPairFromRecord(rec PreKeyRecord) (*PreKeyPair, error) {
	pub, err := key25519.FromHex(rec.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("pre-key %d public key: %w", rec.ID, err)
	}
	priv, err := key25519.FromHex(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("pre-key %d private key: %w", rec.ID, err)
	}
	return &PreKeyPair{ID: rec.ID, Pair: key25519.Pair{Pub: pub, Priv: priv}}, nil
}

// Record serializes the signed pre-key pair for storage.
func (spk *SignedPreKeyPair) Record() SignedPreKeyRecord {
	return SignedPreKeyRecord{
		PreKeyRecord: spk.PreKeyPair.Record(),
		Timestamp:    spk.Timestamp,
		Signature:    hex.EncodeToString(spk.Signature[:]),
	}
}

// SignedPreKeyPairFromRecord rebuilds a signed pre-key pair from its record.
func SignedPreKeyPairFromRecord(rec SignedPreKeyRecord) (*SignedPreKeyPair, error) {
	pk, err := PreKeyPairFromRecord(rec.PreKeyRecord)
	if err != nil {
		return nil, err
	}
	spk := &SignedPreKeyPair{
		PreKeyPair: *pk,
		Timestamp:  rec.Timestamp,
	}
	sig, err := hex.DecodeString(rec.Signature)
	if err != nil {
		return nil, fmt.Errorf("signed pre-key %d signature: %w", rec.ID, err)
	}
	if len(sig) != xeddsa.SignatureSize {
		return nil, fmt.Errorf("signed pre-key %d signature: %d bytes, want %d", rec.ID, len(sig), xeddsa.SignatureSize)
	}
	copy(spk.Signature[:], sig)
	return spk, nil
}
