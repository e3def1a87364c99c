package stream

import (
	"github.com/geneticgrabbag/securefs/corecrypter"
)

// Encrypter is the per-block cipher a CryptStream delegates to.
// EncryptBlock also records the block's IV/tag wherever the concrete
// implementation keeps them; DecryptBlock reads and verifies them.
// Ciphertext length always equals plaintext length.
type Encrypter interface {
	EncryptBlock(blockNo int64, plain, cipher []byte) error
	DecryptBlock(blockNo int64, cipher, plain []byte) error
}

// CryptStream turns a backing stream of ciphertext into a random-access
// plaintext stream, one independently encrypted block at a time. Block
// k occupies backing offsets [k*blockSize, k*blockSize+len_k); only the
// final block may be short, so backing size equals plaintext size.
type CryptStream struct {
	backing   Base
	enc       Encrypter
	blockSize int64
}

// NewCryptStream builds a CryptStream over backing with the given
// block cipher and block size.
func NewCryptStream(backing Base, enc Encrypter, blockSize int) *CryptStream {
	if blockSize <= 0 {
		panic("block size must be positive")
	}
	return &CryptStream{backing: backing, enc: enc, blockSize: int64(blockSize)}
}

// BlockSize returns the plaintext block size
func (c *CryptStream) BlockSize() int {
	return int(c.blockSize)
}

// readBlock reads and decrypts block blockNo into out, which must hold
// a full block. Returns the number of plaintext bytes, 0 when the
// block does not exist.
func (c *CryptStream) readBlock(blockNo int64, out []byte) (int, error) {
	cipher := make([]byte, c.blockSize)
	n, err := c.backing.Read(cipher, blockNo*c.blockSize)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := c.enc.DecryptBlock(blockNo, cipher[:n], out[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// readBlockRange reads the plaintext range [begin, end) of block
// blockNo into out.
func (c *CryptStream) readBlockRange(blockNo int64, begin, end int, out []byte) (int, error) {
	if int64(begin) == 0 && int64(end) == c.blockSize {
		return c.readBlock(blockNo, out)
	}
	if begin >= end {
		return 0, nil
	}
	buf := corecrypter.NewSecureBytes(int(c.blockSize))
	defer buf.Wipe()
	n, err := c.readBlock(blockNo, buf)
	if err != nil {
		return 0, err
	}
	if n <= begin {
		return 0, nil
	}
	if end > n {
		end = n
	}
	return copy(out, buf[begin:end]), nil
}

// writeBlock encrypts plain and stores it as block blockNo.
// len(plain) <= blockSize. The ciphertext buffer needs no wiping.
func (c *CryptStream) writeBlock(blockNo int64, plain []byte) error {
	cipher := make([]byte, len(plain))
	if err := c.enc.EncryptBlock(blockNo, plain, cipher); err != nil {
		return err
	}
	return c.backing.Write(cipher, blockNo*c.blockSize)
}

// readThenWriteBlock patches the range [begin, end) of block blockNo
// with input, re-encrypting the whole block.
func (c *CryptStream) readThenWriteBlock(blockNo int64, input []byte, begin, end int) error {
	if int64(begin) == 0 && int64(end) == c.blockSize {
		return c.writeBlock(blockNo, input[:c.blockSize])
	}
	if begin >= end {
		return nil
	}
	buf := corecrypter.NewSecureBytes(int(c.blockSize))
	defer buf.Wipe()
	n, err := c.readBlock(blockNo, buf)
	if err != nil {
		return err
	}
	copy(buf[begin:end], input)
	if n > end {
		end = n
	}
	return c.writeBlock(blockNo, buf[:end])
}

func (c *CryptStream) Read(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		blockNo := off / c.blockSize
		startOfBlock := blockNo * c.blockSize
		begin := int(off - startOfBlock)
		end := int(min64(c.blockSize, off+int64(len(p))-startOfBlock))
		n, err := c.readBlockRange(blockNo, begin, end, p)
		if err != nil {
			return total, err
		}
		total += n
		if n < end-begin {
			return total, nil
		}
		p = p[n:]
		off += int64(n)
	}
	return total, nil
}

func (c *CryptStream) Write(p []byte, off int64) error {
	// Zero-length writes do not extend, like pwrite
	if len(p) == 0 {
		return nil
	}
	cur, err := c.Size()
	if err != nil {
		return err
	}
	if off > cur {
		if err := c.Resize(off); err != nil {
			return err
		}
	}
	return c.uncheckedWrite(p, off)
}

// uncheckedWrite walks the blocks of [off, off+len(p)) without the
// hole-extension check. The caller guarantees off <= size.
func (c *CryptStream) uncheckedWrite(p []byte, off int64) error {
	for len(p) > 0 {
		blockNo := off / c.blockSize
		startOfBlock := blockNo * c.blockSize
		begin := int(off - startOfBlock)
		end := int(min64(c.blockSize, off+int64(len(p))-startOfBlock))
		if err := c.readThenWriteBlock(blockNo, p, begin, end); err != nil {
			return err
		}
		n := end - begin
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// zeroFill writes zeros over the plaintext range [off, finish)
func (c *CryptStream) zeroFill(off, finish int64) error {
	zeros := make([]byte, c.blockSize)
	for off < finish {
		blockNo := off / c.blockSize
		startOfBlock := blockNo * c.blockSize
		begin := int(off - startOfBlock)
		end := int(min64(c.blockSize, finish-startOfBlock))
		if err := c.readThenWriteBlock(blockNo, zeros, begin, end); err != nil {
			return err
		}
		off += int64(end - begin)
	}
	return nil
}

func (c *CryptStream) Resize(size int64) error {
	return c.resizeWithSparse(size, c.IsSparse())
}

// resizeWithSparse implements resize with an explicit sparseness
// decision, so wrappers that add their own streams (and therefore
// their own sparseness) can reuse the block logic.
func (c *CryptStream) resizeWithSparse(size int64, sparse bool) error {
	cur, err := c.Size()
	if err != nil {
		return err
	}
	switch {
	case size == cur:
		return nil
	case size < cur:
		// A shrink landing mid-block re-encrypts the now-final block
		// truncated to its new length.
		residue := size % c.blockSize
		blockNo := size / c.blockSize
		if residue > 0 {
			buf := corecrypter.NewSecureBytes(int(c.blockSize))
			defer buf.Wipe()
			if _, err := c.readBlock(blockNo, buf); err != nil {
				return err
			}
			if err := c.writeBlock(blockNo, buf[:residue]); err != nil {
				return err
			}
		}
	default:
		oldBlockNo := cur / c.blockSize
		newBlockNo := size / c.blockSize
		if !sparse || oldBlockNo == newBlockNo {
			if err := c.zeroFill(cur, size); err != nil {
				return err
			}
		} else {
			// Only the edge blocks need real zero ciphertext; the
			// blocks strictly between stay holes.
			if err := c.zeroFill(cur, (oldBlockNo+1)*c.blockSize); err != nil {
				return err
			}
			if err := c.zeroFill(newBlockNo*c.blockSize, size); err != nil {
				return err
			}
		}
	}
	return c.backing.Resize(size)
}

func (c *CryptStream) Size() (int64, error) {
	return c.backing.Size()
}

func (c *CryptStream) Flush() error {
	return c.backing.Flush()
}

func (c *CryptStream) IsSparse() bool {
	return c.backing.IsSparse()
}

func (c *CryptStream) Close() error {
	if err := c.Flush(); err != nil {
		c.backing.Close()
		return err
	}
	return c.backing.Close()
}
