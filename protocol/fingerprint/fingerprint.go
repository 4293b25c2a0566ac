package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"

	"signalcore/crypto/key25519"
)

const iterations = 5200

// Fingerprint derives the 30-digit displayable safety number for a public
// key bound to a user identifier, mimicking what the Signal app does: the
// key and identifier are hashed through 5200 rounds of SHA-512 and the first
// 30 digest bytes are mapped to six 5-digit groups.
func Fingerprint(pubKey key25519.Key, userIdentifier []byte) [30]int {
	digest := append(pubKey.Bytes(), userIdentifier...)
	hash := sha512.New()
	for i := 0; i < iterations; i++ {
		hash.Write(digest)
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var result [30]int
	for i := 0; i < 6; i++ {
		chunk := digest[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			result[i*5+j] = int(num % 10)
			num /= 10
		}
	}
	return result
}
