package ratchet

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalcore/crypto/key25519"
)

func testMessage(t *testing.T, ciphertext []byte) *SignalMessage {
	t.Helper()

	var ratchetKey key25519.Key
	_, err := rand.Read(ratchetKey[:])
	assert.NoError(t, err)

	msg := &SignalMessage{
		Version:          CurrentVersion,
		SenderRatchetKey: ratchetKey,
		Counter:          7,
		PreviousCounter:  6,
		Ciphertext:       ciphertext,
	}
	_, err = rand.Read(msg.Mac[:])
	assert.NoError(t, err)
	return msg
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		ciphertext []byte
	}{
		{"Zero-length ciphertext", nil},
		{"Short ciphertext", []byte("ciphertext bytes")},
		{"Block-sized ciphertext", bytes.Repeat([]byte{0xcc}, 48)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := testMessage(t, tt.ciphertext)

			encoded := msg.Encode()
			decoded, err := Decode(encoded)
			assert.NoError(t, err)
			assert.Equal(t, msg, decoded, "field-for-field round trip")
		})
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	valid := testMessage(t, []byte("some ciphertext")).Encode()

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty input", nil},
		{"Below fixed-field minimum", valid[:minMessageSize-1]},
		{"Unrecognized version", func() []byte {
			d := append([]byte(nil), valid...)
			d[0] = CurrentVersion + 1
			return d
		}()},
		{"Truncated ciphertext", append(append([]byte(nil), valid[:len(valid)-MacSize-4]...), valid[len(valid)-MacSize:]...)},
		{"Length field overstates ciphertext", func() []byte {
			d := append([]byte(nil), valid...)
			d[44]++ // low byte of ciphertext_len
			return d
		}()},
		{"Trailing garbage", append(append([]byte(nil), valid...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrMalformedMessage)
			assert.Nil(t, msg)
		})
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	msg := testMessage(t, []byte("aliasing check"))
	encoded := msg.Encode()

	decoded, err := Decode(encoded)
	assert.NoError(t, err)

	encoded[headerSize] ^= 0xff
	assert.Equal(t, msg.Ciphertext, decoded.Ciphertext, "decoded ciphertext is an independent copy")
}
