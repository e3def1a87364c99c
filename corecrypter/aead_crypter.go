package corecrypter

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AEADCrypter wraps AES-GCM with a fixed IV size. Version-1 filesystems
// use 32-byte IVs, which the stdlib supports via NewGCMWithNonceSize.
type AEADCrypter struct {
	block  cipher.Block
	aead   cipher.AEAD
	ivSize int
}

// NewAEADCrypter creates an AEADCrypter for the given 32-byte key and
// IV size.
func NewAEADCrypter(key []byte, ivSize int) (*AEADCrypter, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key length error, expected: %d, actual: %d", KeySize, len(key))
	}
	if ivSize < MinIVSize || ivSize > MaxIVSize {
		return nil, fmt.Errorf("iv size %d out of range [%d, %d]", ivSize, MinIVSize, MaxIVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, err
	}
	return &AEADCrypter{block: block, aead: aead, ivSize: ivSize}, nil
}

// IVSize returns the fixed IV size of this crypter
func (c *AEADCrypter) IVSize() int {
	return c.ivSize
}

// Encrypt encrypts plain under iv with ad as associated data.
// len(ciphertext) == len(plain), len(tag) == TagSize.
func (c *AEADCrypter) Encrypt(plain, iv, ad []byte) (ciphertext, tag []byte) {
	sealed := c.aead.Seal(nil, iv, plain, ad)
	return sealed[:len(plain)], sealed[len(plain):]
}

// Decrypt decrypts ciphertext and verifies tag. The second return is
// false when authentication fails.
func (c *AEADCrypter) Decrypt(ciphertext, iv, ad, tag []byte) ([]byte, bool) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plain, err := c.aead.Open(nil, iv, sealed, ad)
	if err != nil {
		return nil, false
	}
	return plain, true
}
