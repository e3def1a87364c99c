package stream

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

// driveStream runs a random sequence of write/read/resize/size/flush
// steps against s and an in-memory reference, failing on the first
// observable difference. Same shape as the original stream torture
// test, with a fixed seed for reproducibility.
func driveStream(t *testing.T, s Base, seed int64, steps int) {
	t.Helper()
	if err := s.Resize(0); err != nil {
		t.Fatalf("initial resize: %v", err)
	}
	ref := NewMemStream()
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, 4096*5)
	rng.Read(data)
	const maxOff = 7*4096 + 1
	buf := make([]byte, len(data))
	refBuf := make([]byte, len(data))

	for i := 0; i < steps; i++ {
		a := rng.Intn(maxOff + 1)
		b := rng.Intn(maxOff + 1)
		switch rng.Intn(5) {
		case 0:
			n := b
			if n > len(data) {
				n = len(data)
			}
			if err := s.Write(data[:n], int64(a)); err != nil {
				t.Fatalf("step %d: write(%d, %d): %v", i, a, n, err)
			}
			if err := ref.Write(data[:n], int64(a)); err != nil {
				t.Fatal(err)
			}
		case 1:
			n := b
			if n > len(buf) {
				n = len(buf)
			}
			rn, err := s.Read(buf[:n], int64(a))
			if err != nil {
				t.Fatalf("step %d: read(%d, %d): %v", i, a, n, err)
			}
			refN, _ := ref.Read(refBuf[:n], int64(a))
			if rn != refN {
				t.Fatalf("step %d: read count %d, want %d", i, rn, refN)
			}
			if !bytes.Equal(buf[:rn], refBuf[:refN]) {
				t.Fatalf("step %d: read content mismatch at offset %d length %d", i, a, n)
			}
		case 2:
			sz, err := s.Size()
			if err != nil {
				t.Fatalf("step %d: size: %v", i, err)
			}
			refSz, _ := ref.Size()
			if sz != refSz {
				t.Fatalf("step %d: size %d, want %d", i, sz, refSz)
			}
		case 3:
			if err := s.Resize(int64(a)); err != nil {
				t.Fatalf("step %d: resize(%d): %v", i, a, err)
			}
			if err := ref.Resize(int64(a)); err != nil {
				t.Fatal(err)
			}
		case 4:
			if err := s.Flush(); err != nil {
				t.Fatalf("step %d: flush: %v", i, err)
			}
		}
	}

	// Final sweep over the full content
	sz, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	refSz, _ := ref.Size()
	if sz != refSz {
		t.Fatalf("final size %d, want %d", sz, refSz)
	}
	got := make([]byte, sz+1)
	want := make([]byte, sz+1)
	gn, err := s.Read(got, 0)
	if err != nil {
		t.Fatal(err)
	}
	wn, _ := ref.Read(want, 0)
	if gn != wn || !bytes.Equal(got[:gn], want[:wn]) {
		t.Fatal("final content mismatch")
	}
}

func TestMemStreamGapZeroFill(t *testing.T) {
	s := NewMemStream()
	if err := s.Write([]byte("xy"), 100); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 102)
	n, err := s.Read(buf, 0)
	if err != nil || n != 102 {
		t.Fatalf("read: n=%d err=%v", n, err)
	}
	if !corecrypter.IsAllZero(buf[:100]) {
		t.Error("gap before a past-end write is not zero-filled")
	}
	if string(buf[100:]) != "xy" {
		t.Error("written bytes lost")
	}
}

func TestHMACStreamRandomized(t *testing.T) {
	key := corecrypter.RandBytes(corecrypter.KeySize)
	id := corecrypter.RandBytes(corecrypter.IDSize)
	s, err := NewHMACStream(key, id, NewMemStream(), true)
	if err != nil {
		t.Fatal(err)
	}
	driveStream(t, s, 1, 5000)
}

func TestHMACStreamReopen(t *testing.T) {
	key := corecrypter.RandBytes(corecrypter.KeySize)
	id := corecrypter.RandBytes(corecrypter.IDSize)
	backing := NewMemStream()

	s, err := NewHMACStream(key, id, backing, true)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("some metadata payload")
	if err := s.Write(payload, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewHMACStream(key, id, backing, true)
	if err != nil {
		t.Fatalf("reopen with check failed: %v", err)
	}
	buf := make([]byte, len(payload))
	n, err := s2.Read(buf, 0)
	if err != nil || n != len(payload) || !bytes.Equal(buf, payload) {
		t.Fatalf("reopened read: n=%d err=%v", n, err)
	}
}

func TestHMACStreamTamper(t *testing.T) {
	key := corecrypter.RandBytes(corecrypter.KeySize)
	id := corecrypter.RandBytes(corecrypter.IDSize)
	backing := NewMemStream()
	s, err := NewHMACStream(key, id, backing, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write([]byte("payload under protection"), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	// Any single flipped byte must be caught, in the MAC prefix and in
	// the payload alike.
	raw := backing.Bytes()
	for _, pos := range []int{0, HMACLen - 1, HMACLen, len(raw) - 1} {
		raw[pos] ^= 1
		_, err := NewHMACStream(key, id, backing, true)
		var fmtErr *InvalidFormatError
		if !errors.As(err, &fmtErr) {
			t.Errorf("flipped byte %d: got %v, want InvalidFormatError", pos, err)
		}
		raw[pos] ^= 1
	}

	// Wrong id fails even with intact bytes
	otherID := corecrypter.RandBytes(corecrypter.IDSize)
	if _, err := NewHMACStream(key, otherID, backing, true); err == nil {
		t.Error("open with wrong id succeeded")
	}
	// Insecure mode opens anyway
	raw[HMACLen] ^= 1
	if _, err := NewHMACStream(key, id, backing, false); err != nil {
		t.Errorf("insecure open failed: %v", err)
	}
	raw[HMACLen] ^= 1

	// Truncated MAC prefix
	if err := backing.Resize(10); err != nil {
		t.Fatal(err)
	}
	var fmtErr *InvalidFormatError
	_, err = NewHMACStream(key, id, backing, true)
	if !errors.As(err, &fmtErr) {
		t.Errorf("truncated prefix: got %v, want InvalidFormatError", err)
	}
}

func TestHMACStreamIdempotentFlush(t *testing.T) {
	key := corecrypter.RandBytes(corecrypter.KeySize)
	id := corecrypter.RandBytes(corecrypter.IDSize)
	backing := NewMemStream()
	s, err := NewHMACStream(key, id, backing, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(corecrypter.RandBytes(1000), 17); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	snapshot := append([]byte(nil), backing.Bytes()...)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(snapshot, backing.Bytes()) {
		t.Error("second flush changed on-disk bytes")
	}
}

// xorEncrypter is a horribly insecure block cipher, only for testing
// the generic block walking in CryptStream.
type xorEncrypter struct{}

func (xorEncrypter) EncryptBlock(blockNo int64, plain, cipher []byte) error {
	k := byte(blockNo)
	for i := range plain {
		cipher[i] = plain[i] ^ k
	}
	return nil
}

func (xorEncrypter) DecryptBlock(blockNo int64, cipher, plain []byte) error {
	k := byte(blockNo)
	for i := range cipher {
		plain[i] = cipher[i] ^ k
	}
	return nil
}

func TestCryptStreamRandomized(t *testing.T) {
	for _, blockSize := range []int{512, 1000, 8000} {
		s := NewCryptStream(NewMemStream(), xorEncrypter{}, blockSize)
		driveStream(t, s, int64(blockSize), 5000)
	}
}
