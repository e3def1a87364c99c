package corecrypter

import "encoding/binary"

// Unauthenticated GCM decryption for the repair tool. The stdlib AEAD
// refuses to release plaintext when the tag does not verify; forensic
// recovery needs the keystream anyway, so the CTR part of GCM is
// reimplemented here. NIST SP 800-38D notation.

// DecryptNoVerify decrypts ciphertext without checking the tag. Used
// for blocks in insecure mode and for header reads whose tag fails -
// callers must treat the output as untrusted.
func (c *AEADCrypter) DecryptNoVerify(ciphertext, iv []byte) []byte {
	plain := make([]byte, len(ciphertext))
	ctr := c.counterBlock(iv)
	inc32(&ctr)
	var ks [16]byte
	for i := 0; i < len(ciphertext); i += 16 {
		c.block.Encrypt(ks[:], ctr[:])
		inc32(&ctr)
		for j := i; j < i+16 && j < len(ciphertext); j++ {
			plain[j] = ciphertext[j] ^ ks[j-i]
		}
	}
	return plain
}

// counterBlock derives J0 from the IV
func (c *AEADCrypter) counterBlock(iv []byte) [16]byte {
	var j0 [16]byte
	if len(iv) == 12 {
		copy(j0[:], iv)
		j0[15] = 1
		return j0
	}
	// J0 = GHASH(IV || pad || [0]64 || [len(IV) in bits]64)
	var h [16]byte
	c.block.Encrypt(h[:], j0[:])
	var y [16]byte
	for i := 0; i < len(iv); i += 16 {
		var blk [16]byte
		copy(blk[:], iv[i:])
		xor16(&y, &blk)
		y = gfMul(y, h)
	}
	var lenBlk [16]byte
	binary.BigEndian.PutUint64(lenBlk[8:], uint64(len(iv))*8)
	xor16(&y, &lenBlk)
	return gfMul(y, h)
}

func xor16(dst, src *[16]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// inc32 increments the low 32 bits of the counter, big endian
func inc32(ctr *[16]byte) {
	n := binary.BigEndian.Uint32(ctr[12:]) + 1
	binary.BigEndian.PutUint32(ctr[12:], n)
}

// gfMul multiplies x and y in GF(2^128) with the GCM polynomial.
// Bit-by-bit, no tables: this path only runs after a failed tag check
// and only once per IV, so speed does not matter.
func gfMul(x, y [16]byte) [16]byte {
	var z [16]byte
	v := y
	for i := 0; i < 128; i++ {
		if x[i/8]&(0x80>>uint(i%8)) != 0 {
			xor16(&z, &v)
		}
		lsb := v[15] & 1
		for j := 15; j > 0; j-- {
			v[j] = v[j]>>1 | v[j-1]<<7
		}
		v[0] >>= 1
		if lsb != 0 {
			v[0] ^= 0xe1
		}
	}
	return z
}
