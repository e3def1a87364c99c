package keycrypter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

// Wrapping format: PBKDF2-HMAC-SHA256 stretches the password into the
// wrapping key, AES-GCM wraps the 32-byte master key. The associated
// data is the literal string "version=1" for both on-disk versions.

const (
	saltLen     = 32
	configIVLen = 32

	// DefaultRounds is used when the caller passes rounds == 0
	DefaultRounds = 400000

	// DefaultBlockSize for version-2 filesystems
	DefaultBlockSize = 4096
)

const versionHeader = "version=1"

// ErrWrongPassword is returned whenever the config cannot be
// unwrapped. Cryptographic failure and any other integrity failure are
// deliberately indistinguishable.
var ErrWrongPassword = errors.New("wrong password")

// EncryptedKey holds the wrapped master key, all fields hex encoded
type EncryptedKey struct {
	IV  string `json:"IV"`
	MAC string `json:"MAC"`
	Key string `json:"key"`
}

// Config is the content of the .securefs.json document
type Config struct {
	Version      int          `json:"version"`
	Iterations   int          `json:"iterations"`
	Salt         string       `json:"salt"`
	EncryptedKey EncryptedKey `json:"encrypted_key"`
	// Version 2 only; version 1 fixes these to 4096 and 32
	BlockSize int `json:"block_size,omitempty"`
	IVSize    int `json:"iv_size,omitempty"`
}

func (cfg *Config) String() string {
	bs, ivs := cfg.Geometry()
	return fmt.Sprintf("On-disk version: %d\nPBKDF2 iterations: %d\nBlock size: %d\nIV size: %d\n",
		cfg.Version, cfg.Iterations, bs, ivs)
}

// Geometry returns the block size and IV size the config mandates
func (cfg *Config) Geometry() (blockSize, ivSize int) {
	if cfg.Version == 1 {
		return DefaultBlockSize, 32
	}
	return cfg.BlockSize, cfg.IVSize
}

// GenerateConfig wraps masterKey under password into a fresh Config.
// rounds == 0 selects DefaultRounds. blockSize and ivSize are recorded
// for version 2 and must be 4096 and 32 for version 1.
func GenerateConfig(version int, masterKey, password []byte, rounds, blockSize, ivSize int) (*Config, error) {
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("unsupported version %d", version)
	}
	if len(masterKey) != corecrypter.KeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", corecrypter.KeySize, len(masterKey))
	}
	if ivSize < corecrypter.MinIVSize || ivSize > corecrypter.MaxIVSize {
		return nil, fmt.Errorf("iv size %d out of range [%d, %d]",
			ivSize, corecrypter.MinIVSize, corecrypter.MaxIVSize)
	}
	if rounds == 0 {
		rounds = DefaultRounds
	}
	salt, err := corecrypter.RandomBytes(saltLen)
	if err != nil {
		return nil, err
	}

	wrappingKey := pbkdf2.Key(password, salt, rounds, corecrypter.KeySize, sha256.New)
	defer corecrypter.WipeBytes(wrappingKey)
	crypter, err := corecrypter.NewAEADCrypter(wrappingKey, configIVLen)
	if err != nil {
		return nil, err
	}
	iv := corecrypter.RandBytes(configIVLen)
	ct, tag := crypter.Encrypt(masterKey, iv, []byte(versionHeader))

	cfg := &Config{
		Version:    version,
		Iterations: rounds,
		Salt:       hex.EncodeToString(salt),
		EncryptedKey: EncryptedKey{
			IV:  hex.EncodeToString(iv),
			MAC: hex.EncodeToString(tag),
			Key: hex.EncodeToString(ct),
		},
	}
	if version == 2 {
		cfg.BlockSize = blockSize
		cfg.IVSize = ivSize
	}
	return cfg, nil
}

// ParseConfig unwraps the master key. Any failure to decrypt is
// ErrWrongPassword; geometry comes from Geometry().
func ParseConfig(cfg *Config, password []byte) (masterKey []byte, blockSize, ivSize int, err error) {
	if cfg.Version != 1 && cfg.Version != 2 {
		return nil, 0, 0, fmt.Errorf("unsupported version %d", cfg.Version)
	}
	blockSize, ivSize = cfg.Geometry()

	salt, err := hex.DecodeString(cfg.Salt)
	if err != nil {
		return nil, 0, 0, ErrWrongPassword
	}
	iv, err := hex.DecodeString(cfg.EncryptedKey.IV)
	if err != nil {
		return nil, 0, 0, ErrWrongPassword
	}
	tag, err := hex.DecodeString(cfg.EncryptedKey.MAC)
	if err != nil {
		return nil, 0, 0, ErrWrongPassword
	}
	ct, err := hex.DecodeString(cfg.EncryptedKey.Key)
	if err != nil {
		return nil, 0, 0, ErrWrongPassword
	}
	if len(iv) != configIVLen || len(ct) != corecrypter.KeySize {
		return nil, 0, 0, ErrWrongPassword
	}

	wrappingKey := pbkdf2.Key(password, salt, cfg.Iterations, corecrypter.KeySize, sha256.New)
	defer corecrypter.WipeBytes(wrappingKey)
	crypter, err := corecrypter.NewAEADCrypter(wrappingKey, configIVLen)
	if err != nil {
		return nil, 0, 0, ErrWrongPassword
	}
	masterKey, ok := crypter.Decrypt(ct, iv, []byte(versionHeader), tag)
	if !ok {
		return nil, 0, 0, ErrWrongPassword
	}
	return masterKey, blockSize, ivSize, nil
}
