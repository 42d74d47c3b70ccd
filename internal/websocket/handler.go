package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// Handler upgrades the request and attaches the connection to hub.
// originPatterns lists extra allowed Origin hosts; same-host is always
// accepted.
func Handler(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("accept websocket", "error", err)
			return
		}
		NewClient(hub, conn).Run(r.Context())
	}
}
