package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/handler"
	"github.com/dukerupert/envios/internal/inventory"
	"github.com/dukerupert/envios/internal/middleware"
	"github.com/dukerupert/envios/internal/report"
	ws "github.com/dukerupert/envios/internal/websocket"
)

type Deps struct {
	Auth           *auth.Service
	Inventory      *inventory.Service
	Reports        report.Backend
	OriginPatterns []string
	Logger         *slog.Logger
}

type Server struct {
	auth        *auth.Service
	hub         *ws.Hub
	sessionH    *handler.SessionHandler
	inventoryH  *handler.InventoryHandler
	dashboardH  *handler.DashboardHandler
	rateLimiter *middleware.RateLimiter
	origins     []string
	unsubscribe func()
	logger      *slog.Logger
}

// New wires the handlers and starts forwarding inventory cache events to
// websocket clients.
func New(d Deps) *Server {
	logger := d.Logger
	hub := ws.NewHub(logger.With("component", "websocket"))

	return &Server{
		auth:        d.Auth,
		hub:         hub,
		sessionH:    handler.NewSessionHandler(d.Auth, logger.With("component", "session")),
		inventoryH:  handler.NewInventoryHandler(d.Inventory, logger.With("component", "inventory")),
		dashboardH:  handler.NewDashboardHandler(d.Reports, logger.With("component", "dashboard")),
		rateLimiter: middleware.NewRateLimiter(),
		origins:     d.OriginPatterns,
		unsubscribe: d.Inventory.Cache().Subscribe(hub.Publish),
		logger:      logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Close stops forwarding cache events.
func (s *Server) Close() {
	s.unsubscribe()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no session required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("POST /api/login", s.rateLimited(10, http.HandlerFunc(s.sessionH.Login)))
	outerMux.HandleFunc("POST /api/logout", s.sessionH.Logout)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/", middleware.RequireSession(s.auth)(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session", s.sessionH.Current)

	mux.HandleFunc("GET /api/inventory", s.inventoryH.List)
	mux.Handle("POST /api/inventory/refresh", s.rateLimited(6, http.HandlerFunc(s.inventoryH.Refresh)))

	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Summary)
	adminOnly := middleware.RequireDashboard(auth.DashboardAdmin)
	mux.Handle("GET /api/report", adminOnly(http.HandlerFunc(s.dashboardH.DriverReport)))

	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.origins, s.logger.With("component", "websocket")))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(perMinute int, h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, perMinute, time.Minute)(h)
}
