package xeddsa

import (
	"crypto/ed25519"

	"signalcore/crypto/key25519"
)

// SignatureSize is the size of an XEdDSA signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Sign produces an Ed25519 signature over msg, using the Curve25519 private
// scalar as the Ed25519 seed. Both key forms share the same scalar and
// clamping convention, so one identity key signs and agrees on secrets.
func Sign(curvePriv key25519.Key, msg []byte) [SignatureSize]byte {
	signingKey := ed25519.NewKeyFromSeed(curvePriv.Bytes())
	var sig [SignatureSize]byte
	copy(sig[:], ed25519.Sign(signingKey, msg))
	return sig
}

// VerifyKey derives the Ed25519 verify key matching signatures produced by
// Sign with the same private key. The derivation is one-way from the private
// scalar and cannot be recomputed from the Curve25519 public key, so callers
// cache the result alongside the key pair.
func VerifyKey(curvePriv key25519.Key) key25519.Key {
	signingKey := ed25519.NewKeyFromSeed(curvePriv.Bytes())
	var vk key25519.Key
	copy(vk[:], signingKey.Public().(ed25519.PublicKey))
	return vk
}

// Verify reports whether sig is a valid signature over msg under the given
// Ed25519 verify key. Verification of untrusted input fails routinely, so
// malformed keys or signatures yield false rather than an error.
func Verify(verifyKey key25519.Key, msg []byte, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(verifyKey.Bytes()), msg, sig)
}
