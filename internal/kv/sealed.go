package kv

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltKey   = "kv:salt"
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

// ErrSealed is returned when a stored value cannot be opened, either
// because it was written with another passphrase or it was tampered with.
var ErrSealed = errors.New("kv: cannot open sealed value")

// Sealed encrypts every value with AES-256-GCM before handing it to the
// wrapped Store. The key is derived from a passphrase with Argon2id; the
// salt lives unencrypted in the wrapped store under "kv:salt".
type Sealed struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealed loads or creates the salt and derives the value key.
func NewSealed(ctx context.Context, inner Store, passphrase string) (*Sealed, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealed store: empty passphrase")
	}

	salt, err := loadSalt(ctx, inner)
	if err != nil {
		return nil, err
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

func loadSalt(ctx context.Context, inner Store) ([]byte, error) {
	encoded, err := inner.Get(ctx, saltKey)
	if err == nil {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(salt) != saltSize {
			return nil, fmt.Errorf("stored salt is invalid")
		}
		return salt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := Set(ctx, inner, saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

// seal output format: base64([12-byte nonce][ciphertext]). The key name is
// bound as additional data so values cannot be swapped between keys.
func (s *Sealed) seal(key, value string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(key, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return "", ErrSealed
	}
	plain, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], []byte(key))
	if err != nil {
		return "", ErrSealed
	}
	return string(plain), nil
}

func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	value, err := s.open(key, sealed)
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *Sealed) SetMany(ctx context.Context, entries map[string]string) error {
	sealed := make(map[string]string, len(entries))
	for k, v := range entries {
		out, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed[k] = out
	}
	return s.inner.SetMany(ctx, sealed)
}

func (s *Sealed) RemoveMany(ctx context.Context, keys ...string) error {
	return s.inner.RemoveMany(ctx, keys...)
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}
