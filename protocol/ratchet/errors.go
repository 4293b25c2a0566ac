package ratchet

import "errors"

var (
	ErrInvalidDerivedLength = errors.New("kdf output has unexpected length")
	ErrMalformedMessage     = errors.New("malformed message")
	ErrAuthenticationFailed = errors.New("message authentication failed")
	ErrOutOfOrderMessage    = errors.New("message counter out of order")
	ErrCounterOverflow      = errors.New("chain counter overflow")
)
