// Package secrets seals provider credentials before they reach storage.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keyInfo   = "admin-platform/ai-provider-keys/v1"
)

// ErrCorrupt is returned when a sealed value fails authentication.
var ErrCorrupt = errors.New("secrets: sealed value is corrupt or was sealed with another key")

// Box implements ports.SecretSealer with NaCl secretbox. Sealed values are
// the random nonce followed by the ciphertext.
type Box struct {
	key [32]byte
}

// NewBox derives the box key from secret with HKDF-SHA256.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("secrets: empty key")
	}
	var b Box
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), b.key[:]); err != nil {
		return nil, fmt.Errorf("secrets: derive key: %w", err)
	}
	return &b, nil
}

func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("secrets: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrCorrupt
	}
	return out, nil
}
