package corecrypter

import (
	"bytes"
	"testing"
)

func TestDeriveFileKeys(t *testing.T) {
	master := RandBytes(KeySize)
	id := RandBytes(IDSize)

	data1, meta1, err := DeriveFileKeys(master, id)
	if err != nil {
		t.Fatal(err)
	}
	data2, meta2, err := DeriveFileKeys(master, id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data1, data2) || !bytes.Equal(meta1, meta2) {
		t.Error("derivation is not deterministic")
	}
	if bytes.Equal(data1, meta1) {
		t.Error("data key equals metadata key")
	}
	if bytes.Equal(data1, master) {
		t.Error("derived key equals master key")
	}

	otherID := RandBytes(IDSize)
	data3, _, err := DeriveFileKeys(master, otherID)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(data1, data3) {
		t.Error("two files derived the same data key")
	}
}

func TestSecureBytesWipe(t *testing.T) {
	buf := NewSecureBytes(64)
	copy(buf, RandBytes(64))
	buf.Wipe()
	if !IsAllZero(buf) {
		t.Error("Wipe left nonzero bytes")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := RandBytes(32)
	b := append([]byte(nil), a...)
	if !ConstantTimeCompare(a, b) {
		t.Error("equal slices compared unequal")
	}
	b[31] ^= 1
	if ConstantTimeCompare(a, b) {
		t.Error("differing slices compared equal")
	}
	if ConstantTimeCompare(a, a[:31]) {
		t.Error("different lengths compared equal")
	}
}

func TestNonZeroIV(t *testing.T) {
	iv := make([]byte, MinIVSize)
	for i := 0; i < 100; i++ {
		NonZeroIV(iv)
		if IsAllZero(iv) {
			t.Fatal("NonZeroIV produced the reserved all-zero value")
		}
	}
}
