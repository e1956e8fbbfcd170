package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/houseflow/houseflow/internal/lighthouse"
)

// lighthouseUpgrader upgrades /lighthouse/ws connections. Origin checking
// is not meaningful here: the caller is a device's own firmware, not a
// browser, and authentication is the Basic handshake below.
var lighthouseUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleLighthouseWS authenticates a device via the Basic handshake,
// rejects a duplicate connection, then upgrades and runs its session
// until the connection ends.
func (s *Server) handleLighthouseWS(w http.ResponseWriter, r *http.Request) {
	deviceID, password, err := lighthouse.ParseBasicAuth(r)
	if err != nil {
		writeUnauthorized(w, "malformed authorization header")
		return
	}

	if _, err := lighthouse.Authenticate(r.Context(), s.db, deviceID, password); err != nil {
		writeUnauthorized(w, "invalid device credentials")
		return
	}

	if _, connected := s.registry.Get(deviceID); connected {
		writeConflict(w, ErrCodeAlreadyConnected, "device already connected")
		return
	}

	conn, err := lighthouseUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("lighthouse upgrade failed", "device_id", deviceID, "error", err)
		return
	}

	sess := lighthouse.New(deviceID, conn, s.lighthouseConfig(), s.registry, s.telemetry, s.logger)
	if err := sess.Run(r.Context()); err != nil {
		// Run only returns an error when registry insertion lost a race
		// against a connection that slipped in after our pre-check; the
		// pumps never started, so the upgraded connection is still ours
		// to close.
		s.logger.Warn("lighthouse session rejected", "device_id", deviceID, "error", err)
		conn.Close()
	}
}

func (s *Server) lighthouseConfig() lighthouse.Config {
	ping := time.Duration(s.cfg.Lighthouse.PingIntervalSecs) * time.Second
	if ping <= 0 {
		ping = 30 * time.Second
	}
	pong := time.Duration(s.cfg.Lighthouse.PongTimeoutSecs) * time.Second
	if pong <= 0 {
		pong = 10 * time.Second
	}
	return lighthouse.Config{PingInterval: ping, PongTimeout: pong}
}
