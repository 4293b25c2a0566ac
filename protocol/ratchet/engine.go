package ratchet

import (
	"fmt"

	"signalcore/crypto"
	"signalcore/crypto/aes256"
	"signalcore/crypto/hmac"
	"signalcore/crypto/key25519"
	"signalcore/keys"
)

// EncryptMessage advances the session's sending chain by one step and wraps
// plaintext in an authenticated envelope keyed at that position. The session
// is mutated exactly once on success and left untouched on error.
func EncryptMessage(plaintext []byte, session *SessionRecord, localIdentity *keys.IdentityKeyPair) (*SignalMessage, error) {
	work := *session

	counter, seed, err := work.OnSend()
	if err != nil {
		return nil, err
	}

	mk, err := DeriveMessageKeys(seed)
	if err != nil {
		return nil, err
	}
	defer mk.Zero()
	seed.Zero()

	ciphertext, err := aes256.Encrypt(plaintext, mk.EncKey, mk.IV)
	if err != nil {
		return nil, fmt.Errorf("encrypting message: %w", err)
	}

	msg := &SignalMessage{
		Version:          CurrentVersion,
		SenderRatchetKey: localIdentity.PublicKey,
		Counter:          counter,
		PreviousCounter:  previousCounter(counter),
		Ciphertext:       ciphertext,
	}
	msg.Mac = computeMac(mk.MacKey, associatedData(localIdentity.PublicKey, work.RemoteIdentityKey, msg), ciphertext)

	*session = work
	return msg, nil
}

// DecryptMessage authenticates and decrypts msg. All work happens on a
// scratch copy of the session: a forged, replayed or out-of-order message
// never advances the receiving chain, and the state is committed only after
// the plaintext is recovered.
func DecryptMessage(msg *SignalMessage, session *SessionRecord, localIdentity *keys.IdentityKeyPair) ([]byte, error) {
	if msg.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unrecognized version %d", ErrMalformedMessage, msg.Version)
	}

	work := *session

	_, seed, err := work.OnReceive(msg.Counter)
	if err != nil {
		return nil, err
	}

	mk, err := DeriveMessageKeys(seed)
	if err != nil {
		return nil, err
	}
	defer mk.Zero()
	seed.Zero()

	expected := computeMac(mk.MacKey, associatedData(work.RemoteIdentityKey, localIdentity.PublicKey, msg), msg.Ciphertext)
	if !hmac.Equal(expected[:], msg.Mac[:]) {
		return nil, ErrAuthenticationFailed
	}

	plaintext, err := aes256.Decrypt(msg.Ciphertext, mk.EncKey, mk.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	*session = work
	return plaintext, nil
}

// associatedData binds an envelope to the identity keys on both ends of the
// session plus the header fields, so a valid message cannot be replayed into
// another session. Sender identity always comes first.
func associatedData(senderIdentity, receiverIdentity key25519.Key, msg *SignalMessage) []byte {
	header := msg.headerBytes()
	ad := make([]byte, 0, 2*key25519.KeySize+len(header))
	ad = append(ad, senderIdentity.Bytes()...)
	ad = append(ad, receiverIdentity.Bytes()...)
	ad = append(ad, header...)
	return ad
}

// computeMac is HMAC-SHA256 over the associated data followed by the
// ciphertext, keyed by the per-message MAC key.
func computeMac(macKey [32]byte, ad, ciphertext []byte) [MacSize]byte {
	input := make([]byte, 0, len(ad)+len(ciphertext))
	input = append(input, ad...)
	input = append(input, ciphertext...)

	var mac [MacSize]byte
	copy(mac[:], hmac.Hash(crypto.DefaultHashFunc, macKey[:], input))
	return mac
}

// previousCounter is the final position of the previous sending chain. This
// ratchet never turns the sending chain with a DH step, so the boundary is
// the position immediately before the current message.
func previousCounter(counter uint32) uint32 {
	if counter == 0 {
		return 0
	}
	return counter - 1
}
