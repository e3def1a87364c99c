package corecrypter

import (
	"crypto/rand"
	"io"

	"github.com/geneticgrabbag/securefs/internal/tlog"
)

// RandomBytes generates len cryptographically secure random bytes
func RandomBytes(len int) ([]byte, error) {
	data := make([]byte, len)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		tlog.Warn.Printf("Generate random bytes failed: %v", err)
		return nil, err
	}
	return data, nil
}

// RandBytes generates len random bytes, panicking when the system
// random source fails. Used where a broken random source must never
// produce a predictable IV or key.
func RandBytes(len int) []byte {
	data := make([]byte, len)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		panic(err)
	}
	return data
}

// RandomID generates a fresh 32-byte file identifier
func RandomID() ([]byte, error) {
	return RandomBytes(IDSize)
}

// RandomKey generates a fresh 32-byte key
func RandomKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

// NonZeroIV fills iv with random bytes, retrying until it is not
// all-zero. The all-zero IV is the on-disk marker for sparse blocks.
func NonZeroIV(iv []byte) {
	for {
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			panic(err)
		}
		if !IsAllZero(iv) {
			return
		}
	}
}

// IsAllZero reports whether every byte of p is zero
func IsAllZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
