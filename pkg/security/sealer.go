package security

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/littlelight-store/backend/pkg/config"
)

const (
	keyDerivationTime    = 1
	keyDerivationMemory  = 64 * 1024
	keyDerivationThreads = 4
)

// ErrSealedTooShort signals a ciphertext without a full nonce.
var ErrSealedTooShort = errors.New("sealed value too short")

// Sealer encrypts small secrets (game account credentials) at rest.
// Output layout is nonce || ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a XChaCha20-Poly1305 key from the configured secret.
func NewSealer(cfg config.CredentialsConfig) (*Sealer, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("credentials secret is required")
	}
	salt := cfg.Salt
	if salt == "" {
		salt = "littlelight-credentials"
	}
	key := argon2.IDKey([]byte(cfg.Secret), []byte(salt), keyDerivationTime, keyDerivationMemory, keyDerivationThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}
