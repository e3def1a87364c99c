package keycrypter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geneticgrabbag/securefs/corecrypter"
)

const (
	// ConfigFileName is the config document in the base directory
	ConfigFileName = ".securefs.json"
	// ConfigTmpFileName is used for atomic replacement
	ConfigTmpFileName = ".securefs.json.tmp"
)

// ReadConfigFile reads and unmarshals the config document at path
func ReadConfigFile(path string) (*Config, error) {
	js, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	return &cfg, nil
}

// WriteConfigFile atomically replaces the config document in baseDir
// via the temp file + rename dance.
func WriteConfigFile(baseDir string, cfg *Config) error {
	js, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}
	// For convenience for the user, add a newline at the end.
	js = append(js, '\n')
	tmp := filepath.Join(baseDir, ConfigTmpFileName)
	if err := os.WriteFile(tmp, js, 0600); err != nil {
		return fmt.Errorf("write config temp file failed: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(baseDir, ConfigFileName)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config file failed: %w", err)
	}
	return nil
}

// LoadMasterKey reads the config in baseDir and unwraps the master key
// with password.
func LoadMasterKey(baseDir string, password []byte) (masterKey []byte, blockSize, ivSize int, err error) {
	cfg, err := ReadConfigFile(filepath.Join(baseDir, ConfigFileName))
	if err != nil {
		return nil, 0, 0, err
	}
	return ParseConfig(cfg, password)
}

// ChangePassword rewraps the master key in baseDir under newPassword,
// regenerating the salt. The on-disk geometry and version are kept.
func ChangePassword(baseDir string, oldPassword, newPassword []byte) error {
	cfg, err := ReadConfigFile(filepath.Join(baseDir, ConfigFileName))
	if err != nil {
		return err
	}
	masterKey, blockSize, ivSize, err := ParseConfig(cfg, oldPassword)
	if err != nil {
		return err
	}
	defer corecrypter.WipeBytes(masterKey)
	fresh, err := GenerateConfig(cfg.Version, masterKey, newPassword, cfg.Iterations, blockSize, ivSize)
	if err != nil {
		return err
	}
	return WriteConfigFile(baseDir, fresh)
}
