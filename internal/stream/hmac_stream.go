package stream

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

// HMACLen is the size of the MAC prefix reserved at the start of the
// backing stream.
const HMACLen = sha256.Size

// HMACStream binds a keyed MAC to a backing stream. The first HMACLen
// bytes of the backing store hold HMAC-SHA256(key, id || payload);
// caller-visible offset 0 is backing offset HMACLen.
//
// The MAC is recomputed lazily in one pass over the payload at flush
// time. Acceptable because HMAC streams only ever hold the per-file
// metadata side file, bounded by one small record per block.
type HMACStream struct {
	key     []byte
	id      []byte
	backing Base
	dirty   bool
}

// NewHMACStream wraps backing. With check set, a non-empty stream has
// its stored MAC verified immediately; a mismatch or truncated prefix
// is an InvalidFormatError.
func NewHMACStream(key, id []byte, backing Base, check bool) (*HMACStream, error) {
	s := &HMACStream{
		key:     append([]byte(nil), key...),
		id:      append([]byte(nil), id...),
		backing: backing,
	}
	if !check {
		return s, nil
	}
	stored := make([]byte, HMACLen)
	n, err := backing.Read(stored, 0)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Fresh file
		return s, nil
	}
	if n != HMACLen {
		return nil, &InvalidFormatError{ID: s.id, Msg: "the header field for stream is not of enough length"}
	}
	computed, err := s.runMAC()
	if err != nil {
		return nil, err
	}
	if !corecrypter.ConstantTimeCompare(computed, stored) {
		return nil, &InvalidFormatError{ID: s.id, Msg: "invalid HMAC"}
	}
	return s, nil
}

// runMAC computes the MAC over id || payload
func (s *HMACStream) runMAC() ([]byte, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(s.id)
	buf := make([]byte, 4096)
	off := int64(HMACLen)
	for {
		n, err := s.backing.Read(buf, off)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		mac.Write(buf[:n])
		off += int64(n)
	}
	return mac.Sum(nil), nil
}

func (s *HMACStream) Read(p []byte, off int64) (int, error) {
	return s.backing.Read(p, off+HMACLen)
}

func (s *HMACStream) Write(p []byte, off int64) error {
	if err := s.backing.Write(p, off+HMACLen); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *HMACStream) Resize(size int64) error {
	if err := s.backing.Resize(size + HMACLen); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *HMACStream) Size() (int64, error) {
	sz, err := s.backing.Size()
	if err != nil {
		return 0, err
	}
	if sz < HMACLen {
		return 0, nil
	}
	return sz - HMACLen, nil
}

// Flush recomputes and stores the MAC if any write happened since the
// last flush, then flushes the backing stream.
func (s *HMACStream) Flush() error {
	if !s.dirty {
		return nil
	}
	mac, err := s.runMAC()
	if err != nil {
		return err
	}
	if err := s.backing.Write(mac, 0); err != nil {
		return err
	}
	if err := s.backing.Flush(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *HMACStream) IsSparse() bool {
	return s.backing.IsSparse()
}

func (s *HMACStream) Close() error {
	errFlush := s.Flush()
	errClose := s.backing.Close()
	if errFlush != nil {
		return errFlush
	}
	return errClose
}
