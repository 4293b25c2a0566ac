package ratchet

import (
	"math"

	"signalcore/crypto/key25519"
)

// SessionRecord is the mutable per-conversation ratchet state: the identity
// binding, the root key and two independent one-directional chains with
// their counters.
//
// A record is owned by a single caller. Encrypt and decrypt both
// read-modify-write the chain state non-atomically, so concurrent calls on
// the same record require external locking; independent sessions share
// nothing and may be processed in parallel.
type SessionRecord struct {
	// SessionID is an opaque stable identifier used for lookup only. It
	// never enters any cryptographic derivation.
	SessionID string

	LocalIdentityKey  key25519.Key
	RemoteIdentityKey key25519.Key

	// RootKey is updated only when a new shared secret is mixed in at
	// session (re)establishment, never per message.
	RootKey key25519.Key

	ChainKeySend    key25519.Key
	ChainKeyReceive key25519.Key

	SendChainCounter    uint32
	ReceiveChainCounter uint32
}

// NewSessionRecord builds a session from already-derived key material. Chain
// keys come from DeriveRootAndChain at establishment; in a correctly keyed
// session the send and receive chains are independent KDF outputs and never
// equal.
func NewSessionRecord(sessionID string, localIdentity, remoteIdentity, rootKey, chainKeySend, chainKeyReceive key25519.Key) *SessionRecord {
	return &SessionRecord{
		SessionID:         sessionID,
		LocalIdentityKey:  localIdentity,
		RemoteIdentityKey: remoteIdentity,
		RootKey:           rootKey,
		ChainKeySend:      chainKeySend,
		ChainKeyReceive:   chainKeyReceive,
	}
}

// OnSend advances the sending chain by one step. It returns the counter the
// message is keyed at (the value before the increment) and the message seed.
func (s *SessionRecord) OnSend() (uint32, key25519.Key, error) {
	if s.SendChainCounter == math.MaxUint32 {
		return 0, key25519.Key{}, ErrCounterOverflow
	}

	next, seed, err := AdvanceChain(s.ChainKeySend)
	if err != nil {
		return 0, key25519.Key{}, err
	}

	counter := s.SendChainCounter
	s.ChainKeySend = next
	s.SendChainCounter++
	return counter, seed, nil
}

// OnReceive is the mirror of OnSend on the receiving chain. The expected
// counter must equal the current chain position exactly: skipped message
// keys are not cached, so a gap or a replay is a session-fatal desync the
// caller resolves by re-establishing the session.
func (s *SessionRecord) OnReceive(expected uint32) (uint32, key25519.Key, error) {
	if s.ReceiveChainCounter == math.MaxUint32 {
		return 0, key25519.Key{}, ErrCounterOverflow
	}
	if expected != s.ReceiveChainCounter {
		return 0, key25519.Key{}, ErrOutOfOrderMessage
	}

	next, seed, err := AdvanceChain(s.ChainKeyReceive)
	if err != nil {
		return 0, key25519.Key{}, err
	}

	counter := s.ReceiveChainCounter
	s.ChainKeyReceive = next
	s.ReceiveChainCounter++
	return counter, seed, nil
}

// Zero wipes the session's secret key material in place. The identity
// binding is public and left intact.
func (s *SessionRecord) Zero() {
	s.RootKey.Zero()
	s.ChainKeySend.Zero()
	s.ChainKeyReceive.Zero()
}
