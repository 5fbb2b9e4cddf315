package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the AES-256 key size used for sealing persisted secrets.
	KeySize = 32

	keyfileSize = 32
)

// Seal encrypts plaintext with AES-256-GCM. The random nonce is prepended to
// the returned ciphertext. aad binds the ciphertext to its storage location.
func Seal(plaintext, rawKey, aad []byte) ([]byte, error) {
	if len(rawKey) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(rawKey), KeySize)
	}

	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts ciphertext produced by Seal.
func Open(ciphertext, rawKey, aad []byte) ([]byte, error) {
	if len(rawKey) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(rawKey), KeySize)
	}

	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce size")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("decrypting ciphertext: %w", err)
	}
	return plaintext, nil
}

// DeriveKey expands seed material into a purpose-bound AES key via
// HKDF-SHA256. The same seed with a different info label yields an
// independent key.
func DeriveKey(seed, info []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, seed, nil, info)
	k := make([]byte, KeySize)
	if _, err := io.ReadFull(h, k); err != nil {
		return nil, fmt.Errorf("reading from HKDF: %w", err)
	}
	return k, nil
}

// LoadOrCreateKeyfile returns the random seed stored at path, generating it
// on first use. The file is created 0600 inside a 0700 directory.
func LoadOrCreateKeyfile(path string) ([]byte, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != keyfileSize {
			return nil, fmt.Errorf("keyfile %s: unexpected size %d", path, len(seed))
		}
		return seed, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading keyfile: %w", err)
	}

	seed = make([]byte, keyfileSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generating keyfile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating keyfile directory: %w", err)
	}
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		return nil, fmt.Errorf("writing keyfile: %w", err)
	}
	return seed, nil
}

// WipeBytes zeroes b in place.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
