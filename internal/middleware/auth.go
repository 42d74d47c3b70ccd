package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/model"
)

type SessionSource interface {
	Current(ctx context.Context) (model.Session, bool)
}

// RequireSession rejects requests when no usable session is stored and
// otherwise puts the session in the request context.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := sessions.Current(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not logged in")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), sess)))
		})
	}
}

// RequireDashboard allows only sessions whose role lands on one of the
// given dashboards.
func RequireDashboard(allowed ...auth.Dashboard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := auth.DashboardFor(r.Context())
			for _, a := range allowed {
				if d == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden")
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
