package ratchet

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalcore/crypto/key25519"
	"signalcore/keys"
)

type party struct {
	identity *keys.IdentityKeyPair
	session  *SessionRecord
}

// newMirrorSessions builds the two ends of an established conversation:
// Alice's sending chain equals Bob's receiving chain and vice versa, both
// derived from the same shared secret and initial root key.
func newMirrorSessions(t *testing.T) (party, party) {
	t.Helper()

	aliceID, err := keys.GenerateIdentityKeyPair()
	assert.NoError(t, err)
	bobID, err := keys.GenerateIdentityKeyPair()
	assert.NoError(t, err)

	var sharedSecret, initialRoot key25519.Key
	_, err = rand.Read(sharedSecret[:])
	assert.NoError(t, err)
	_, err = rand.Read(initialRoot[:])
	assert.NoError(t, err)

	rootKey, chainAliceToBob, err := DeriveRootAndChain(sharedSecret, initialRoot)
	assert.NoError(t, err)
	rootKey, chainBobToAlice, err := DeriveRootAndChain(sharedSecret, rootKey)
	assert.NoError(t, err)

	alice := party{
		identity: aliceID,
		session: NewSessionRecord("alice-to-bob-session-1",
			aliceID.PublicKey, bobID.PublicKey, rootKey, chainAliceToBob, chainBobToAlice),
	}
	bob := party{
		identity: bobID,
		session: NewSessionRecord("bob-to-alice-session-1",
			bobID.PublicKey, aliceID.PublicKey, rootKey, chainBobToAlice, chainAliceToBob),
	}
	return alice, bob
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	randomPayload := make([]byte, 347)
	_, err := rand.Read(randomPayload)
	assert.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty plaintext", []byte{}},
		{"Text message", []byte("Hello Bob, this is a secret message from Alice!")},
		{"Long repeated plaintext", bytes.Repeat([]byte{'A'}, 1000)},
		{"Arbitrary binary content", randomPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alice, bob := newMirrorSessions(t)

			msg, err := EncryptMessage(tt.plaintext, alice.session, alice.identity)
			assert.NoError(t, err)
			assert.Equal(t, alice.identity.PublicKey, msg.SenderRatchetKey)

			// Through the wire and back.
			decoded, err := Decode(msg.Encode())
			assert.NoError(t, err)

			plaintext, err := DecryptMessage(decoded, bob.session, bob.identity)
			assert.NoError(t, err)
			assert.Equal(t, tt.plaintext, plaintext)
		})
	}
}

func TestCountersAdvanceByExactlyOne(t *testing.T) {
	alice, bob := newMirrorSessions(t)

	aliceBefore := *alice.session
	bobBefore := *bob.session

	msg, err := EncryptMessage([]byte("Test message"), alice.session, alice.identity)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), msg.Counter)
	assert.Equal(t, uint32(0), msg.PreviousCounter)

	assert.Equal(t, aliceBefore.SendChainCounter+1, alice.session.SendChainCounter)
	assert.Equal(t, aliceBefore.ReceiveChainCounter, alice.session.ReceiveChainCounter)
	assert.Equal(t, aliceBefore.ChainKeyReceive, alice.session.ChainKeyReceive)
	assert.Equal(t, aliceBefore.RootKey, alice.session.RootKey)

	_, err = DecryptMessage(msg, bob.session, bob.identity)
	assert.NoError(t, err)

	assert.Equal(t, bobBefore.ReceiveChainCounter+1, bob.session.ReceiveChainCounter)
	assert.Equal(t, bobBefore.SendChainCounter, bob.session.SendChainCounter)
	assert.Equal(t, bobBefore.ChainKeySend, bob.session.ChainKeySend)
	assert.Equal(t, bobBefore.RootKey, bob.session.RootKey)

	// Second message is keyed one position later.
	msg2, err := EncryptMessage([]byte("Another message"), alice.session, alice.identity)
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), msg2.Counter)
	assert.Equal(t, uint32(0), msg2.PreviousCounter)
}

func TestTamperDetection(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(msg *SignalMessage)
	}{
		{"Flipped ciphertext bit", func(msg *SignalMessage) { msg.Ciphertext[0] ^= 0x01 }},
		{"Flipped MAC bit", func(msg *SignalMessage) { msg.Mac[0] ^= 0x01 }},
		{"Swapped ratchet key", func(msg *SignalMessage) { msg.SenderRatchetKey[5] ^= 0xff }},
		{"Altered previous counter", func(msg *SignalMessage) { msg.PreviousCounter++ }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alice, bob := newMirrorSessions(t)

			msg, err := EncryptMessage([]byte("authenticated payload"), alice.session, alice.identity)
			assert.NoError(t, err)

			tt.tamper(msg)
			before := *bob.session

			plaintext, err := DecryptMessage(msg, bob.session, bob.identity)
			assert.ErrorIs(t, err, ErrAuthenticationFailed)
			assert.Nil(t, plaintext)
			assert.Equal(t, before, *bob.session, "a failed MAC must not advance the receive chain")
		})
	}
}

func TestCrossSessionReplayFails(t *testing.T) {
	alice, bob := newMirrorSessions(t)

	// A second conversation against a different peer but with identical
	// chain keys. The identity binding in the associated data must still
	// reject Alice's message.
	malloryID, err := keys.GenerateIdentityKeyPair()
	assert.NoError(t, err)
	other := *bob.session
	other.RemoteIdentityKey = malloryID.PublicKey

	msg, err := EncryptMessage([]byte("bound to one session"), alice.session, alice.identity)
	assert.NoError(t, err)

	_, err = DecryptMessage(msg, &other, bob.identity)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestReplayAndGapsAreFatal(t *testing.T) {
	alice, bob := newMirrorSessions(t)

	first, err := EncryptMessage([]byte("first"), alice.session, alice.identity)
	assert.NoError(t, err)
	second, err := EncryptMessage([]byte("second"), alice.session, alice.identity)
	assert.NoError(t, err)

	// Delivering the second message before the first is a desync.
	_, err = DecryptMessage(second, bob.session, bob.identity)
	assert.ErrorIs(t, err, ErrOutOfOrderMessage)

	plaintext, err := DecryptMessage(first, bob.session, bob.identity)
	assert.NoError(t, err)
	assert.Equal(t, []byte("first"), plaintext)

	// Replaying an already-consumed message is a desync too.
	_, err = DecryptMessage(first, bob.session, bob.identity)
	assert.ErrorIs(t, err, ErrOutOfOrderMessage)

	plaintext, err = DecryptMessage(second, bob.session, bob.identity)
	assert.NoError(t, err)
	assert.Equal(t, []byte("second"), plaintext)
}

func TestBidirectionalConversation(t *testing.T) {
	alice, bob := newMirrorSessions(t)

	exchanges := []struct {
		from, to  *party
		plaintext string
	}{
		{&alice, &bob, "Hello, Bob!"},
		{&bob, &alice, "Hi, Alice!"},
		{&alice, &bob, "Second message from Alice"},
		{&alice, &bob, "Third message from Alice"},
		{&bob, &alice, "Bob again"},
	}

	for _, ex := range exchanges {
		msg, err := EncryptMessage([]byte(ex.plaintext), ex.from.session, ex.from.identity)
		assert.NoError(t, err)

		plaintext, err := DecryptMessage(msg, ex.to.session, ex.to.identity)
		assert.NoError(t, err)
		assert.Equal(t, []byte(ex.plaintext), plaintext)
	}

	assert.Equal(t, uint32(3), alice.session.SendChainCounter)
	assert.Equal(t, uint32(2), alice.session.ReceiveChainCounter)
	assert.Equal(t, uint32(2), bob.session.SendChainCounter)
	assert.Equal(t, uint32(3), bob.session.ReceiveChainCounter)
}

func TestDecryptRejectsUnknownVersion(t *testing.T) {
	alice, bob := newMirrorSessions(t)

	msg, err := EncryptMessage([]byte("versioned"), alice.session, alice.identity)
	assert.NoError(t, err)
	msg.Version = CurrentVersion + 1

	before := *bob.session
	_, err = DecryptMessage(msg, bob.session, bob.identity)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.Equal(t, before, *bob.session)
}

// TestPreKeyBundleEstablishment walks the collaborator path end to end: a
// published bundle seeds both parties' chains, and the resulting sessions
// exchange a message.
func TestPreKeyBundleEstablishment(t *testing.T) {
	aliceID, err := keys.GenerateIdentityKeyPair()
	assert.NoError(t, err)
	bobID, err := keys.GenerateIdentityKeyPair()
	assert.NoError(t, err)

	bobSignedPreKey, err := keys.NewSignedPreKeyPair(bobID, 1)
	assert.NoError(t, err)
	bundle := keys.NewPreKeyBundle(42, 1, bobID, bobSignedPreKey, nil)

	aliceSecret, aliceRoot, err := keys.InitiatorSessionSeed(aliceID, bundle)
	assert.NoError(t, err)
	bobSecret, bobRoot, err := keys.ResponderSessionSeed(bobSignedPreKey, aliceID.PublicKey)
	assert.NoError(t, err)

	assert.Equal(t, aliceSecret, bobSecret)
	assert.Equal(t, aliceRoot, bobRoot)

	rootKey, chainAliceToBob, err := DeriveRootAndChain(aliceSecret, aliceRoot)
	assert.NoError(t, err)
	rootKey, chainBobToAlice, err := DeriveRootAndChain(aliceSecret, rootKey)
	assert.NoError(t, err)

	aliceSession := NewSessionRecord("alice-to-bob",
		aliceID.PublicKey, bobID.PublicKey, rootKey, chainAliceToBob, chainBobToAlice)
	bobSession := NewSessionRecord("bob-to-alice",
		bobID.PublicKey, aliceID.PublicKey, rootKey, chainBobToAlice, chainAliceToBob)

	msg, err := EncryptMessage([]byte("established over a bundle"), aliceSession, aliceID)
	assert.NoError(t, err)
	plaintext, err := DecryptMessage(msg, bobSession, bobID)
	assert.NoError(t, err)
	assert.Equal(t, []byte("established over a bundle"), plaintext)
}
