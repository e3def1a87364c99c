package stream

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

func TestFileStreamBasics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	s, err := OpenFileStream(path, true)
	if err != nil {
		t.Fatal(err)
	}

	// Write past EOF: the gap must read as zeros
	if err := s.Write([]byte("tail"), 1000); err != nil {
		t.Fatal(err)
	}
	sz, err := s.Size()
	if err != nil || sz != 1004 {
		t.Fatalf("size %d, want 1004 (%v)", sz, err)
	}
	buf := make([]byte, 1004)
	n, err := s.Read(buf, 0)
	if err != nil || n != 1004 {
		t.Fatalf("read: n=%d err=%v", n, err)
	}
	if !corecrypter.IsAllZero(buf[:1000]) {
		t.Error("gap not zero-filled")
	}
	if string(buf[1000:]) != "tail" {
		t.Error("payload mismatch")
	}

	// Short read past EOF
	n, err = s.Read(buf, 1002)
	if err != nil || n != 2 {
		t.Fatalf("short read: n=%d err=%v", n, err)
	}
	n, err = s.Read(buf, 2000)
	if err != nil || n != 0 {
		t.Fatalf("read past EOF: n=%d err=%v", n, err)
	}

	// Resize down and up
	if err := s.Resize(2); err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(10); err != nil {
		t.Fatal(err)
	}
	n, err = s.Read(buf[:10], 0)
	if err != nil || n != 10 {
		t.Fatalf("read after resize: n=%d err=%v", n, err)
	}
	if !corecrypter.IsAllZero(buf[2:10]) {
		t.Error("resize extension not zero-filled")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Content persists across reopen
	s2, err := OpenFileStream(path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	sz, err = s2.Size()
	if err != nil || sz != 10 {
		t.Fatalf("size after reopen: %d (%v)", sz, err)
	}
}

func TestFileStreamRandomized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	s, err := OpenFileStream(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	driveStream(t, s, 7, 2000)
}

func TestCachedStreamRandomized(t *testing.T) {
	inner := NewMemStream()
	s, err := NewCachedStream(inner, 4096, 2*4096)
	if err != nil {
		t.Fatal(err)
	}
	driveStream(t, s, 11, 5000)
}

func TestCachedStreamServesFromCache(t *testing.T) {
	inner := NewMemStream()
	s, err := NewCachedStream(inner, 16, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := corecrypter.RandBytes(64)
	if err := s.Write(want, 0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	for i := 0; i < 2; i++ {
		n, err := s.Read(buf, 0)
		if err != nil || n != 64 || !bytes.Equal(buf, want) {
			t.Fatalf("pass %d: n=%d err=%v", i, n, err)
		}
	}
	// Overwrite must invalidate the cached blocks
	copy(want[16:32], corecrypter.RandBytes(16))
	if err := s.Write(want[16:32], 16); err != nil {
		t.Fatal(err)
	}
	n, err := s.Read(buf, 0)
	if err != nil || n != 64 || !bytes.Equal(buf, want) {
		t.Fatalf("after overwrite: n=%d err=%v", n, err)
	}
	// Shrink must not leave stale tail blocks
	if err := s.Resize(8); err != nil {
		t.Fatal(err)
	}
	n, err = s.Read(buf, 0)
	if err != nil || n != 8 || !bytes.Equal(buf[:8], want[:8]) {
		t.Fatalf("after shrink: n=%d err=%v", n, err)
	}
}
