package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/session"
)

var (
	// ErrInvalidCredentials is the only login failure shown to a user.
	ErrInvalidCredentials = errors.New("credenciales incorrectas")
	ErrUnknownRole        = errors.New("auth: role has no dashboard")
	ErrMissingCredentials = errors.New("auth: email and password are required")
)

// Dashboard is the home screen an actor lands on after login.
type Dashboard string

const (
	DashboardNone   Dashboard = ""
	DashboardAdmin  Dashboard = "admin"
	DashboardDriver Dashboard = "driver"
	DashboardBranch Dashboard = "branch"
)

// DashboardOf maps a backend role to its dashboard.
func DashboardOf(r model.Role) (Dashboard, bool) {
	switch r {
	case model.RoleAdmin:
		return DashboardAdmin, true
	case model.RoleDriver, model.RoleCourier:
		return DashboardDriver, true
	case model.RoleBranch:
		return DashboardBranch, true
	default:
		return DashboardNone, false
	}
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.LoginResponse, error)
}

type Service struct {
	api      Authenticator
	sessions *session.Store
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(api Authenticator, sessions *session.Store, logger *slog.Logger) *Service {
	return &Service{api: api, sessions: sessions, logger: logger, now: time.Now}
}

// Login authenticates, persists the session and picks the dashboard.
// Every backend or transport failure is reported as ErrInvalidCredentials;
// the cause is only logged.
func (s *Service) Login(ctx context.Context, email, password string) (model.Session, Dashboard, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Session{}, DashboardNone, ErrMissingCredentials
	}

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("login failed", "email", email, "error", err)
		return model.Session{}, DashboardNone, ErrInvalidCredentials
	}
	if resp.Token == "" {
		s.logger.Warn("login response without token", "email", email)
		return model.Session{}, DashboardNone, ErrInvalidCredentials
	}

	sess := resp.Session()
	dash, ok := DashboardOf(sess.Role)
	if !ok {
		s.logger.Warn("login with unmapped role", "email", email, "role", sess.Role)
		if err := s.sessions.Clear(ctx); err != nil {
			s.logger.Warn("clear session", "error", err)
		}
		return model.Session{}, DashboardNone, fmt.Errorf("role %d: %w", sess.Role, ErrUnknownRole)
	}

	if err := s.sessions.Set(ctx, sess); err != nil {
		return model.Session{}, DashboardNone, fmt.Errorf("persist session: %w", err)
	}
	s.logger.Info("logged in", "user_id", sess.UserID, "dashboard", dash)
	return sess, dash, nil
}

// Current returns the stored session. A session whose token carries an
// expired exp claim is cleared and reported absent.
func (s *Service) Current(ctx context.Context) (model.Session, bool) {
	sess, ok := s.sessions.Get(ctx)
	if !ok {
		return model.Session{}, false
	}
	if session.Expired(sess.Token, s.now()) {
		s.logger.Info("session token expired", "user_id", sess.UserID)
		if err := s.sessions.Clear(ctx); err != nil {
			s.logger.Warn("clear expired session", "error", err)
		}
		return model.Session{}, false
	}
	return sess, true
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
