// Package session persists the authenticated session in a single durable
// slot. The token is stored on its own so it can be read without decoding
// the whole profile.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/envios/internal/kv"
	"github.com/dukerupert/envios/internal/model"
)

const (
	tokenKey = "auth_token"
	userKey  = "user_data"
)

// ValidationError reports a session that must not be persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid session: %s %s", e.Field, e.Reason)
}

// Store is the session slot. It satisfies api.TokenSource.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
}

func NewStore(store kv.Store, logger *slog.Logger) *Store {
	return &Store{kv: store, logger: logger}
}

// Set persists sess after filling defaults. A session without a token is
// rejected and leaves any stored session untouched.
func (s *Store) Set(ctx context.Context, sess model.Session) error {
	if sess.Token == "" {
		return &ValidationError{Field: "token", Reason: "is required"}
	}
	sess = sess.WithDefaults()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	err = s.kv.SetMany(ctx, map[string]string{
		tokenKey: sess.Token,
		userKey:  string(data),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Token returns the stored bearer token. Storage failures read as "no token".
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, err := s.kv.Get(ctx, tokenKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("read auth token", "error", err)
		}
		return "", false
	}
	return token, token != ""
}

// Get returns the stored session. Missing or malformed data reads as absent.
func (s *Store) Get(ctx context.Context) (model.Session, bool) {
	data, err := s.kv.Get(ctx, userKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("read session", "error", err)
		}
		return model.Session{}, false
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		s.logger.Warn("stored session is malformed", "error", err)
		return model.Session{}, false
	}
	if sess.Token == "" {
		s.logger.Warn("stored session has no token")
		return model.Session{}, false
	}
	return sess.WithDefaults(), true
}

// Clear removes the session. Clearing an empty slot is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.RemoveMany(ctx, tokenKey, userKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
