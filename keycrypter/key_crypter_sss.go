package keycrypter

import (
	"crypto/sha256"
	"errors"

	"github.com/codahale/sss"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

// Shamir's Secret Sharing of the master key. Each share carries its
// share id as a trailing byte; a sha256 checksum over the key travels
// inside the shared secret so a wrong combination is detected.

const checksumLen = 16

// SplitKey splits key into n shares, any k of which reconstruct it
func SplitKey(key []byte, n, k byte) ([][]byte, error) {
	sum := sha256.Sum256(key)
	payload := make([]byte, 0, len(key)+checksumLen)
	payload = append(payload, key...)
	payload = append(payload, sum[:checksumLen]...)
	splits, err := sss.Split(n, k, payload)
	if err != nil {
		return nil, err
	}
	shares := make([][]byte, 0, n)
	for id, share := range splits {
		shares = append(shares, append(share, id))
	}
	return shares, nil
}

// CombineKey reconstructs the key from shares produced by SplitKey
func CombineKey(shares [][]byte) ([]byte, error) {
	shareMap := make(map[byte][]byte, len(shares))
	for _, share := range shares {
		if len(share) < 2 {
			return nil, errors.New("malformed key share")
		}
		id := share[len(share)-1]
		shareMap[id] = share[:len(share)-1]
	}
	payload := sss.Combine(shareMap)
	if len(payload) < checksumLen+1 {
		return nil, errors.New("combined secret too short")
	}
	key := payload[:len(payload)-checksumLen]
	sum := sha256.Sum256(key)
	if !corecrypter.ConstantTimeCompare(sum[:checksumLen], payload[len(key):]) {
		corecrypter.WipeBytes(payload)
		return nil, errors.New("key shares broken or below the threshold count")
	}
	return key, nil
}
