package ratchet

import (
	"encoding/binary"
	"fmt"

	"signalcore/crypto/key25519"
)

const (
	// CurrentVersion tags the envelope layout produced by Encode.
	CurrentVersion = 3

	// MacSize is the length of the envelope's trailing authentication tag.
	MacSize = 32

	headerSize     = 1 + key25519.KeySize + 4 + 4 + 4
	minMessageSize = headerSize + MacSize
)

// SignalMessage is the authenticated wire envelope for one ratchet message.
// Values are immutable once built; a fresh envelope is constructed per
// message.
type SignalMessage struct {
	Version          uint8
	SenderRatchetKey key25519.Key
	Counter          uint32
	PreviousCounter  uint32
	Ciphertext       []byte
	Mac              [MacSize]byte
}

// Encode serializes the envelope into its fixed big-endian layout:
// [version:1][ratchetKey:32][counter:4][prevCounter:4][ctLen:4][ct:N][mac:32].
func (m *SignalMessage) Encode() []byte {
	buf := make([]byte, 0, minMessageSize+len(m.Ciphertext))
	buf = m.appendHeader(buf)
	buf = append(buf, m.Ciphertext...)
	buf = append(buf, m.Mac[:]...)
	return buf
}

// headerBytes is the fixed-width authenticated prefix of the envelope:
// everything up to and including the ciphertext length.
func (m *SignalMessage) headerBytes() []byte {
	return m.appendHeader(make([]byte, 0, headerSize))
}

func (m *SignalMessage) appendHeader(buf []byte) []byte {
	buf = append(buf, m.Version)
	buf = append(buf, m.SenderRatchetKey.Bytes()...)
	buf = binary.BigEndian.AppendUint32(buf, m.Counter)
	buf = binary.BigEndian.AppendUint32(buf, m.PreviousCounter)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Ciphertext)))
	return buf
}

// Decode parses data into a SignalMessage. It is side-effect free and fails
// with ErrMalformedMessage when the input is shorter than the fixed-field
// minimum, carries an unrecognized version, or declares a ciphertext length
// that does not match the bytes before the trailing MAC.
func Decode(data []byte) (*SignalMessage, error) {
	if len(data) < minMessageSize {
		return nil, fmt.Errorf("%w: %d bytes, below the %d-byte minimum", ErrMalformedMessage, len(data), minMessageSize)
	}

	version := data[0]
	if version != CurrentVersion {
		return nil, fmt.Errorf("%w: unrecognized version %d", ErrMalformedMessage, version)
	}

	ratchetKey, err := key25519.New(data[1 : 1+key25519.KeySize])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	counter := binary.BigEndian.Uint32(data[33:37])
	previousCounter := binary.BigEndian.Uint32(data[37:41])
	ciphertextLen := binary.BigEndian.Uint32(data[41:45])
	if uint64(ciphertextLen) != uint64(len(data)-minMessageSize) {
		return nil, fmt.Errorf("%w: ciphertext length %d does not match %d remaining bytes",
			ErrMalformedMessage, ciphertextLen, len(data)-minMessageSize)
	}

	var ciphertext []byte
	if ciphertextLen > 0 {
		ciphertext = make([]byte, ciphertextLen)
		copy(ciphertext, data[headerSize:headerSize+int(ciphertextLen)])
	}

	msg := &SignalMessage{
		Version:          version,
		SenderRatchetKey: ratchetKey,
		Counter:          counter,
		PreviousCounter:  previousCounter,
		Ciphertext:       ciphertext,
	}
	copy(msg.Mac[:], data[len(data)-MacSize:])
	return msg, nil
}
