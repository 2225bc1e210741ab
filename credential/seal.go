package credential

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	// scrypt cost parameters for deriving the key from the passphrase.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var sealMagic = []byte("pgr1")

// ErrDecrypt is returned when a stored token cannot be opened with the
// configured passphrase.
var ErrDecrypt = errors.New("credential: cannot decrypt stored token")

// sealer encrypts tokens with a passphrase-derived key.
// Layout: magic | salt | nonce | secretbox.
type sealer struct {
	passphrase []byte

	mu sync.Mutex
	// key cache for the most recently used salt
	salt []byte
	key  *[keySize]byte
}

func newSealer(passphrase string) *sealer {
	return &sealer{passphrase: []byte(passphrase)}
}

// deriveKey returns the key for salt, reusing the cached one when the salt matches.
func (s *sealer) deriveKey(salt []byte) (*[keySize]byte, error) {
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key, nil
	}

	raw, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}

	var key [keySize]byte
	copy(key[:], raw)
	s.salt = append([]byte(nil), salt...)
	s.key = &key
	return s.key, nil
}

func (s *sealer) seal(plain []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salt := s.salt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func (s *sealer) open(sealed []byte) (string, error) {
	header := len(sealMagic) + saltSize + nonceSize
	if len(sealed) < header+secretbox.Overhead || !bytes.Equal(sealed[:len(sealMagic)], sealMagic) {
		return "", ErrDecrypt
	}

	salt := sealed[len(sealMagic) : len(sealMagic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[len(sealMagic)+saltSize:header])

	s.mu.Lock()
	key, err := s.deriveKey(salt)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	plain, ok := secretbox.Open(nil, sealed[header:], &nonce, key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
