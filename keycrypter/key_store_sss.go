package keycrypter

import (
	"fmt"
	"os"
)

// LoadKeyShares reads key shares from the given files and reconstructs
// the master key.
func LoadKeyShares(paths []string) ([]byte, error) {
	shares := make([][]byte, len(paths))
	for i, path := range paths {
		s, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key share [%s] failed: %w", path, err)
		}
		shares[i] = s
	}
	return CombineKey(shares)
}

// StoreKeyShares splits the master key into one share per path and
// writes them out. k is the threshold count needed to reconstruct.
func StoreKeyShares(paths []string, k byte, key []byte) error {
	shares, err := SplitKey(key, byte(len(paths)), k)
	if err != nil {
		return fmt.Errorf("split key failed: %w", err)
	}
	for i, path := range paths {
		if err := os.WriteFile(path, shares[i], 0600); err != nil {
			return fmt.Errorf("write key share [%s] failed: %w", path, err)
		}
	}
	return nil
}
