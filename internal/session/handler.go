package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/entityinstall/audio-gateway/internal/lease"
	"github.com/entityinstall/audio-gateway/internal/observability"
	"github.com/entityinstall/audio-gateway/internal/registry"
	"github.com/entityinstall/audio-gateway/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Connections are not authenticated at this layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades inbound connections and runs one session per connection.
// The client may supply its identity via the client_id query parameter;
// otherwise an opaque one is generated.
func Handler(cfg Config, store storage.Store, reg registry.Registry, leases *lease.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log := observability.GetLogger()
			log.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			clientID = uuid.NewString()
		}
		logger := observability.SessionLogger(clientID)
		logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Client connected")

		sess := New(conn, clientID, r.RemoteAddr, cfg, store, reg, leases, logger)
		if err := sess.Run(r.Context()); err != nil {
			logger.Error().Err(err).Msg("Session startup failed")
		}
	}
}
