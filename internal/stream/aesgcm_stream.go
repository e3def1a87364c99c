package stream

import (
	"github.com/geneticgrabbag/securefs/corecrypter"
)

// MaxBlockNumber caps how many blocks a single file may have
const MaxBlockNumber = int64(1) << 30

// AESGCMCryptStream instantiates CryptStream with AES-GCM. Per-block
// IV/tag records and an encrypted 32-byte per-file header live in a
// companion metadata stream, itself HMAC-protected:
//
//	offset 0:                      IV_h || TAG_h || CT_h(32)
//	offset H_e + k*(ivSize+16):    IV_k || TAG_k for block k
//
// An all-zero IV_k marks block k as a sparse hole of plaintext zeros.
// The file id is the associated data of every GCM invocation, binding
// both blocks and header to this file.
type AESGCMCryptStream struct {
	*CryptStream
	meta   *HMACStream
	aead   *corecrypter.AEADCrypter
	id     []byte
	ivSize int
	check  bool
}

// NewAESGCMCryptStream assembles the encrypted stream over dataStream
// with its metadata in metaStream. It returns the stream and its
// Header view - two handles onto the same object.
//
// In check mode the metadata HMAC is verified immediately and GCM tag
// failures surface as MessageVerificationError; with check off both
// are suppressed, which only the repair tool should ever do.
func NewAESGCMCryptStream(dataStream, metaStream Base, dataKey, metaKey, id []byte,
	check bool, blockSize, ivSize int) (*AESGCMCryptStream, Header, error) {
	meta, err := NewHMACStream(metaKey, id, metaStream, check)
	if err != nil {
		return nil, nil, err
	}
	aead, err := corecrypter.NewAEADCrypter(dataKey, ivSize)
	if err != nil {
		return nil, nil, err
	}
	s := &AESGCMCryptStream{
		meta:   meta,
		aead:   aead,
		id:     append([]byte(nil), id...),
		ivSize: ivSize,
		check:  check,
	}
	s.CryptStream = NewCryptStream(dataStream, s, blockSize)
	return s, s, nil
}

func (s *AESGCMCryptStream) metaSize() int {
	return s.ivSize + corecrypter.TagSize
}

func (s *AESGCMCryptStream) headerSize() int {
	return 32
}

func (s *AESGCMCryptStream) encryptedHeaderSize() int {
	return s.headerSize() + s.metaSize()
}

// metaPosForIV returns the metadata offset of block blockNo's record
func (s *AESGCMCryptStream) metaPosForIV(blockNo int64) int64 {
	return int64(s.encryptedHeaderSize()) + int64(s.metaSize())*blockNo
}

func (s *AESGCMCryptStream) checkBlockNumber(blockNo int64) error {
	if blockNo > MaxBlockNumber {
		return &StreamTooLongError{
			Max:       MaxBlockNumber * s.blockSize,
			Requested: blockNo * s.blockSize,
		}
	}
	return nil
}

// EncryptBlock implements Encrypter. It never fails authentication;
// the only error sources are the block cap and metadata I/O.
func (s *AESGCMCryptStream) EncryptBlock(blockNo int64, plain, cipher []byte) error {
	if len(plain) == 0 {
		return nil
	}
	if err := s.checkBlockNumber(blockNo); err != nil {
		return err
	}
	record := make([]byte, s.metaSize())
	iv := record[:s.ivSize]
	corecrypter.NonZeroIV(iv)
	ct, tag := s.aead.Encrypt(plain, iv, s.id)
	copy(cipher, ct)
	copy(record[s.ivSize:], tag)
	return s.meta.Write(record, s.metaPosForIV(blockNo))
}

// DecryptBlock implements Encrypter
func (s *AESGCMCryptStream) DecryptBlock(blockNo int64, cipher, plain []byte) error {
	if len(cipher) == 0 {
		return nil
	}
	if err := s.checkBlockNumber(blockNo); err != nil {
		return err
	}
	record := make([]byte, s.metaSize())
	n, err := s.meta.Read(record, s.metaPosForIV(blockNo))
	if err != nil {
		return err
	}
	if n != s.metaSize() {
		return &CorruptedMetaDataError{ID: s.id, Msg: "MAC/IV not found"}
	}
	iv := record[:s.ivSize]
	tag := record[s.ivSize:]
	if corecrypter.IsAllZero(iv) {
		// Sparse hole: no ciphertext was ever stored
		for i := range plain {
			plain[i] = 0
		}
		return nil
	}
	pt, ok := s.aead.Decrypt(cipher, iv, s.id, tag)
	if !ok {
		if s.check {
			return &MessageVerificationError{ID: s.id, Offset: blockNo * s.blockSize}
		}
		pt = s.aead.DecryptNoVerify(cipher, iv)
	}
	copy(plain, pt)
	corecrypter.SecureBytes(pt).Wipe()
	return nil
}

// Resize also trims or extends the metadata stream to exactly cover
// the new block count, so no stale records linger after a shrink and
// fresh records read as zero IVs (holes) after a sparse grow.
func (s *AESGCMCryptStream) Resize(size int64) error {
	if err := s.resizeWithSparse(size, s.IsSparse()); err != nil {
		return err
	}
	numBlocks := (size + s.blockSize - 1) / s.blockSize
	return s.meta.Resize(s.metaPosForIV(numBlocks))
}

// Write extends-with-holes through the overridden Resize before
// delegating to the generic block walk.
func (s *AESGCMCryptStream) Write(p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}
	cur, err := s.Size()
	if err != nil {
		return err
	}
	if off > cur {
		if err := s.Resize(off); err != nil {
			return err
		}
	}
	return s.uncheckedWrite(p, off)
}

func (s *AESGCMCryptStream) Flush() error {
	if err := s.CryptStream.Flush(); err != nil {
		return err
	}
	return s.meta.Flush()
}

func (s *AESGCMCryptStream) IsSparse() bool {
	return s.CryptStream.IsSparse() && s.meta.IsSparse()
}

func (s *AESGCMCryptStream) Close() error {
	errData := s.CryptStream.Close()
	errMeta := s.meta.Close()
	if errData != nil {
		return errData
	}
	return errMeta
}

// ReadHeader implements Header. The GCM result is not rechecked here:
// the metadata HMAC verified at open already covers the header record.
func (s *AESGCMCryptStream) ReadHeader(p []byte) (bool, error) {
	if len(p) > s.headerSize() {
		return false, &InvalidArgumentError{Msg: "header too long"}
	}
	record := make([]byte, s.encryptedHeaderSize())
	n, err := s.meta.Read(record, 0)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if n != s.encryptedHeaderSize() {
		return false, &CorruptedMetaDataError{ID: s.id, Msg: "not enough header field"}
	}
	iv := record[:s.ivSize]
	tag := record[s.ivSize:s.metaSize()]
	ct := record[s.metaSize():]
	pt, ok := s.aead.Decrypt(ct, iv, s.id, tag)
	if !ok {
		pt = s.aead.DecryptNoVerify(ct, iv)
	}
	copy(p, pt)
	corecrypter.SecureBytes(pt).Wipe()
	return true, nil
}

// WriteHeader implements Header. Short input is zero-padded to the
// full 32 bytes before encryption.
func (s *AESGCMCryptStream) WriteHeader(p []byte) error {
	if len(p) > s.headerSize() {
		return &InvalidArgumentError{Msg: "header too long"}
	}
	plain := corecrypter.NewSecureBytes(s.headerSize())
	defer plain.Wipe()
	copy(plain, p)

	record := make([]byte, s.encryptedHeaderSize())
	iv := record[:s.ivSize]
	copy(iv, corecrypter.RandBytes(s.ivSize))
	ct, tag := s.aead.Encrypt(plain, iv, s.id)
	copy(record[s.ivSize:], tag)
	copy(record[s.metaSize():], ct)
	return s.meta.Write(record, 0)
}

// MaxHeaderLength implements Header
func (s *AESGCMCryptStream) MaxHeaderLength() int {
	return s.headerSize()
}

// FlushHeader implements Header
func (s *AESGCMCryptStream) FlushHeader() error {
	return s.meta.Flush()
}
