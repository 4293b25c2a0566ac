package hkdf

import (
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Expand fills buffer from prk with HKDF-Expand semantics (no extract step).
// Returns the number of bytes read.
func Expand(hash func() hash.Hash, prk []byte, info []byte, buffer []byte) (int, error) {
	return io.ReadFull(hkdf.Expand(hash, prk, info), buffer)
}

// KDF runs full HKDF (extract then expand) over keyMaterial and fills buffer.
func KDF(hash func() hash.Hash, keyMaterial []byte, salt []byte, info []byte, buffer []byte) (int, error) {
	hkdfReader := hkdf.New(hash, keyMaterial, salt, info)
	return io.ReadFull(hkdfReader, buffer)
}
