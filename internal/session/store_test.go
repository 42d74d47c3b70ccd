package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/envios/internal/kv"
	"github.com/dukerupert/envios/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	backing, err := kv.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { backing.Close() })
	return NewStore(backing, discardLogger()), backing
}

// failingKV fails every operation.
type failingKV struct{}

var errStorage = errors.New("storage unavailable")

func (failingKV) Get(context.Context, string) (string, error) { return "", errStorage }
func (failingKV) SetMany(context.Context, map[string]string) error { return errStorage }
func (failingKV) RemoveMany(context.Context, ...string) error { return errStorage }
func (failingKV) Close() error { return nil }

func TestSessionRoundTrip(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	sessions := []model.Session{
		{Token: "abc"},
		{UserID: 1, Email: "centro@example.com", Role: model.RoleBranch, Token: "abc",
			Branches: []model.Branch{{ID: 4, Name: "Centro", City: "Bogotá"}}},
		{UserID: 9, Role: model.RoleCourier, Token: "xyz", Branches: []model.Branch{}},
	}

	for _, in := range sessions {
		if err := s.Set(ctx, in); err != nil {
			t.Fatalf("set %+v: %v", in, err)
		}
		got, ok := s.Get(ctx)
		if !ok {
			t.Fatalf("get after set: absent")
		}
		want := in.WithDefaults()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("session = %+v, want %+v", got, want)
		}
		token, ok := s.Token(ctx)
		if !ok || token != in.Token {
			t.Errorf("token = %q (%v), want %q", token, ok, in.Token)
		}
	}
}

func TestSetWithoutTokenKeepsPreviousSession(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, model.Session{UserID: 1, Token: "abc"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	err := s.Set(ctx, model.Session{UserID: 2, Email: "other@example.com"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Field != "token" {
		t.Errorf("field = %q, want %q", verr.Field, "token")
	}

	got, ok := s.Get(ctx)
	if !ok {
		t.Fatal("previous session was removed")
	}
	if got.UserID != 1 || got.Token != "abc" {
		t.Errorf("session = %+v, want previous session", got)
	}
}

func TestScenarioLoginResponsePersisted(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	resp := model.LoginResponse{
		User:     model.User{ID: 1, Role: model.RoleBranch},
		Token:    "abc",
		Branches: []model.Branch{{Name: "Centro"}},
	}
	if err := s.Set(ctx, resp.Session()); err != nil {
		t.Fatalf("set: %v", err)
	}

	token, _ := s.Token(ctx)
	if token != "abc" {
		t.Errorf("token = %q, want %q", token, "abc")
	}
	got, _ := s.Get(ctx)
	if got.BranchName != "Centro" {
		t.Errorf("branch name = %q, want %q", got.BranchName, "Centro")
	}
}

func TestGetMalformedIsAbsent(t *testing.T) {
	s, backing := setupStore(t)
	ctx := context.Background()

	if err := kv.Set(ctx, backing, userKey, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := s.Get(ctx); ok {
		t.Error("expected malformed session to read as absent")
	}

	if err := kv.Set(ctx, backing, userKey, `{"id": 3}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := s.Get(ctx); ok {
		t.Error("expected tokenless session to read as absent")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear empty: %v", err)
	}
	if err := s.Set(ctx, model.Session{Token: "abc"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
	if _, ok := s.Token(ctx); ok {
		t.Error("expected no token after clear")
	}
	if _, ok := s.Get(ctx); ok {
		t.Error("expected no session after clear")
	}
}

func TestStorageFailuresReadAsAbsent(t *testing.T) {
	s := NewStore(failingKV{}, discardLogger())
	ctx := context.Background()

	if _, ok := s.Token(ctx); ok {
		t.Error("expected no token when storage fails")
	}
	if _, ok := s.Get(ctx); ok {
		t.Error("expected no session when storage fails")
	}
	if err := s.Set(ctx, model.Session{Token: "abc"}); !errors.Is(err, errStorage) {
		t.Errorf("set err = %v, want storage error", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, errStorage) {
		t.Errorf("clear err = %v, want storage error", err)
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()

	if _, ok := TokenExpiry("abc"); ok {
		t.Error("expected opaque token to have no expiry")
	}
	if Expired("abc", now) {
		t.Error("opaque token must never read as expired")
	}

	exp := now.Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, exp)
	got, ok := TokenExpiry(tok)
	if !ok {
		t.Fatal("expected expiry for JWT")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
	if Expired(tok, now) {
		t.Error("token expiring in an hour read as expired")
	}
	if !Expired(tok, now.Add(2*time.Hour)) {
		t.Error("expected token to be expired two hours later")
	}
}
