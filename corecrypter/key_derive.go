package corecrypter

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Per-file key derivation. The file id is the HKDF salt, so two files
// never share block keys even under one master key. The same
// (master, id) pair always derives the same keys - required to reopen.

const (
	infoDataKey = "securefs/data"
	infoMetaKey = "securefs/meta"
)

// DeriveFileKeys derives the data and metadata keys for the file
// identified by id from the master key.
func DeriveFileKeys(master, id []byte) (dataKey, metaKey []byte, err error) {
	dataKey, err = deriveKey(master, id, infoDataKey)
	if err != nil {
		return nil, nil, err
	}
	metaKey, err = deriveKey(master, id, infoMetaKey)
	if err != nil {
		WipeBytes(dataKey)
		return nil, nil, err
	}
	return dataKey, metaKey, nil
}

func deriveKey(master, id []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, master, id, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
