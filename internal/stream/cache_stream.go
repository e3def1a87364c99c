package stream

import (
	lru "github.com/hashicorp/golang-lru"
)

// Caches plaintext blocks to speed up sequential read and
// write-on-read over an encrypted stream.

// DefaultCacheBytes bounds the per-file cache memory
const DefaultCacheBytes = 128 * 1024

// CachedStream decorates a Base with an LRU cache of full decrypted
// blocks. Single-writer only, like every stream in this package.
type CachedStream struct {
	Base
	blockSize int64
	cache     *lru.Cache
}

// NewCachedStream wraps inner with a cache of at most
// cacheBytes/blockSize blocks.
func NewCachedStream(inner Base, blockSize, cacheBytes int) (*CachedStream, error) {
	if cacheBytes <= 0 {
		cacheBytes = DefaultCacheBytes
	}
	entries := cacheBytes / blockSize
	if entries < 1 {
		entries = 1
	}
	cache, err := lru.New(entries)
	if err != nil {
		return nil, err
	}
	return &CachedStream{Base: inner, blockSize: int64(blockSize), cache: cache}, nil
}

// cachedBlock returns the plaintext of block blockNo, from cache or by
// reading it whole from the inner stream.
func (s *CachedStream) cachedBlock(blockNo int64) ([]byte, error) {
	if content, ok := s.cache.Get(blockNo); ok {
		return content.([]byte), nil
	}
	buf := make([]byte, s.blockSize)
	n, err := s.Base.Read(buf, blockNo*s.blockSize)
	if err != nil {
		return nil, err
	}
	block := buf[:n]
	s.cache.Add(blockNo, block)
	return block, nil
}

func (s *CachedStream) Read(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		blockNo := off / s.blockSize
		begin := int(off - blockNo*s.blockSize)
		block, err := s.cachedBlock(blockNo)
		if err != nil {
			return total, err
		}
		if len(block) <= begin {
			return total, nil
		}
		n := copy(p, block[begin:])
		total += n
		p = p[n:]
		off += int64(n)
		if begin+n < int(s.blockSize) {
			// Short block, nothing behind it
			return total, nil
		}
	}
	return total, nil
}

func (s *CachedStream) Write(p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}
	cur, err := s.Base.Size()
	if err != nil {
		return err
	}
	if off+int64(len(p)) > cur {
		// Extending writes zero-fill unseen ranges; drop everything
		// instead of tracking which cached blocks they touch.
		s.cache.Purge()
	} else {
		first := off / s.blockSize
		last := (off + int64(len(p)) - 1) / s.blockSize
		for blockNo := first; blockNo <= last; blockNo++ {
			s.cache.Remove(blockNo)
		}
	}
	return s.Base.Write(p, off)
}

func (s *CachedStream) Resize(size int64) error {
	s.cache.Purge()
	return s.Base.Resize(size)
}
