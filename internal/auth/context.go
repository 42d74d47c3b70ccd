package auth

import (
	"context"

	"github.com/dukerupert/envios/internal/model"
)

type contextKey struct{}

func WithSession(ctx context.Context, s model.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (model.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(model.Session)
	return s, ok
}

func UserID(ctx context.Context) model.Int {
	s, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return s.UserID
}

func DashboardFor(ctx context.Context) Dashboard {
	s, ok := FromContext(ctx)
	if !ok {
		return DashboardNone
	}
	d, _ := DashboardOf(s.Role)
	return d
}

func IsAdmin(ctx context.Context) bool {
	return DashboardFor(ctx) == DashboardAdmin
}
