package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/envios/internal/model"
)

func TestWithSessionAndFromContext(t *testing.T) {
	s := model.Session{UserID: 7, Email: "sucursal@99envios.app", Role: model.RoleBranch, Token: "tok"}

	ctx := WithSession(context.Background(), s)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected session in context")
	}
	if got.UserID != 7 {
		t.Errorf("UserID = %d, want 7", got.UserID)
	}
	if got.Token != "tok" {
		t.Errorf("Token = %q, want %q", got.Token, "tok")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing session")
	}
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
	if DashboardFor(context.Background()) != DashboardNone {
		t.Error("expected no dashboard for missing context")
	}
}

func TestIsAdmin(t *testing.T) {
	ctx := WithSession(context.Background(), model.Session{Role: model.RoleAdmin})
	if !IsAdmin(ctx) {
		t.Error("expected IsAdmin = true for role 1")
	}
	ctx = WithSession(context.Background(), model.Session{Role: model.RoleCourier})
	if IsAdmin(ctx) {
		t.Error("expected IsAdmin = false for role 4")
	}
}

func TestDashboardOf(t *testing.T) {
	tests := []struct {
		role model.Role
		want Dashboard
		ok   bool
	}{
		{model.RoleAdmin, DashboardAdmin, true},
		{model.RoleDriver, DashboardDriver, true},
		{model.RoleBranch, DashboardBranch, true},
		{model.RoleCourier, DashboardDriver, true},
		{9, DashboardNone, false},
	}
	for _, tt := range tests {
		got, ok := DashboardOf(tt.role)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DashboardOf(%d) = %q, %v; want %q, %v", tt.role, got, ok, tt.want, tt.ok)
		}
	}
}
