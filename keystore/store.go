// Package keystore persists identity keys, pre-keys and session records as
// hex-encoded documents. The ratchet core never touches storage itself; it
// consumes the already-materialized pairs and records a Store hands back.
package keystore

import (
	"context"
	"errors"
	"fmt"

	"signalcore/crypto/key25519"
	"signalcore/keys"
	"signalcore/protocol/ratchet"
)

// ErrNotFound is returned when the requested entry is absent from the store.
var ErrNotFound = errors.New("keystore: not found")

// Store is the persistence contract shared by the file- and Redis-backed
// implementations.
type Store interface {
	SaveIdentityKeyPair(ctx context.Context, kp *keys.IdentityKeyPair) error
	LoadIdentityKeyPair(ctx context.Context) (*keys.IdentityKeyPair, error)

	SavePreKeyPair(ctx context.Context, pk *keys.PreKeyPair) error
	LoadPreKeyPair(ctx context.Context, id uint32) (*keys.PreKeyPair, error)
	RemovePreKeyPair(ctx context.Context, id uint32) error

	SaveSignedPreKeyPair(ctx context.Context, spk *keys.SignedPreKeyPair) error
	LoadSignedPreKeyPair(ctx context.Context, id uint32) (*keys.SignedPreKeyPair, error)

	SaveSession(ctx context.Context, session *ratchet.SessionRecord) error
	LoadSession(ctx context.Context, sessionID string) (*ratchet.SessionRecord, error)
	RemoveSession(ctx context.Context, sessionID string) error
}

// sessionDocument is the storage schema for a session record, key material
// hex-encoded.
type sessionDocument struct {
	SessionID           string `json:"session_id"`
	LocalIdentityKey    string `json:"local_identity_key"`
	RemoteIdentityKey   string `json:"remote_identity_key"`
	RootKey             string `json:"root_key"`
	ChainKeySend        string `json:"chain_key_send"`
	ChainKeyReceive     string `json:"chain_key_receive"`
	SendChainCounter    uint32 `json:"send_chain_counter"`
	ReceiveChainCounter uint32 `json:"receive_chain_counter"`
}

func sessionToDocument(s *ratchet.SessionRecord) sessionDocument {
	return sessionDocument{
		SessionID:           s.SessionID,
		LocalIdentityKey:    s.LocalIdentityKey.Hex(),
		RemoteIdentityKey:   s.RemoteIdentityKey.Hex(),
		RootKey:             s.RootKey.Hex(),
		ChainKeySend:        s.ChainKeySend.Hex(),
		ChainKeyReceive:     s.ChainKeyReceive.Hex(),
		SendChainCounter:    s.SendChainCounter,
		ReceiveChainCounter: s.ReceiveChainCounter,
	}
}

func sessionFromDocument(doc sessionDocument) (*ratchet.SessionRecord, error) {
	local, err := key25519FromHex(doc.LocalIdentityKey, "local identity key")
	if err != nil {
		return nil, err
	}
	remote, err := key25519FromHex(doc.RemoteIdentityKey, "remote identity key")
	if err != nil {
		return nil, err
	}
	root, err := key25519FromHex(doc.RootKey, "root key")
	if err != nil {
		return nil, err
	}
	send, err := key25519FromHex(doc.ChainKeySend, "send chain key")
	if err != nil {
		return nil, err
	}
	receive, err := key25519FromHex(doc.ChainKeyReceive, "receive chain key")
	if err != nil {
		return nil, err
	}

	session := ratchet.NewSessionRecord(doc.SessionID, local, remote, root, send, receive)
	session.SendChainCounter = doc.SendChainCounter
	session.ReceiveChainCounter = doc.ReceiveChainCounter
	return session, nil
}

func key25519FromHex(s, field string) (key25519.Key, error) {
	k, err := key25519.FromHex(s)
	if err != nil {
		return key25519.Key{}, fmt.Errorf("session %s: %w", field, err)
	}
	return k, nil
}
