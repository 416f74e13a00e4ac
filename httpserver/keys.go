package httpserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// SigningKeyLength is the size of generated signing keys in bytes
const SigningKeyLength = 32

// GenerateSigningKey generates a new signing key for token generation
func GenerateSigningKey() ([]byte, error) {
	key := make([]byte, SigningKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// LoadOrCreateSigningKey reads the signing key at path. A missing key file is created
// with a fresh key that only the owner can read.
func LoadOrCreateSigningKey(fsys afero.Fs, path string) ([]byte, error) {
	key, err := afero.ReadFile(fsys, path)
	if err == nil {
		if len(key) == 0 {
			return nil, fmt.Errorf("signing key %s is empty", path)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	key, err = GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write signing key: %w", err)
	}
	return key, nil
}
